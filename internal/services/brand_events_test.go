package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
)

func TestEventLifecycle(t *testing.T) {
	f := newFixture(t)
	brand := f.addBrand(t, "Main")
	f.addMember(t, "alice", authz.RoleMember, brand.ID)
	alice := f.identity("alice")
	start := f.now().Add(24 * time.Hour)
	end := start.Add(3 * time.Hour)

	ev, err := f.events.Create(f.ctx, alice, f.orgID, EventInput{BrandID: brand.ID, Name: " Launch ", Venue: "Hall A", StartsAt: start, EndsAt: &end})
	require.NoError(t, err)
	assert.Equal(t, "Launch", ev.Name)
	assert.Equal(t, "alice", ev.CreatedBy)

	updated, err := f.events.Update(f.ctx, alice, f.orgID, ev.ID, EventInput{Name: "Launch Party", StartsAt: start})
	require.NoError(t, err)
	assert.Equal(t, "Launch Party", updated.Name)
	assert.Nil(t, updated.EndsAt)

	got, err := f.events.Get(f.ctx, alice, f.orgID, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch Party", got.Name)

	err = f.events.Delete(f.ctx, alice, f.orgID, ev.ID)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err), "members cannot delete events")
	require.NoError(t, f.events.Delete(f.ctx, f.owner(), f.orgID, ev.ID))
	_, err = f.events.Get(f.ctx, f.owner(), f.orgID, ev.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestEventValidation(t *testing.T) {
	f := newFixture(t)
	brand := f.addBrand(t, "Main")
	other := f.addBrand(t, "Other")
	start := f.now()
	before := start.Add(-time.Hour)

	tests := []struct {
		name string
		in   EventInput
	}{
		{"no brand", EventInput{Name: "x", StartsAt: start}},
		{"no name", EventInput{BrandID: brand.ID, StartsAt: start}},
		{"no start", EventInput{BrandID: brand.ID, Name: "x"}},
		{"ends before start", EventInput{BrandID: brand.ID, Name: "x", StartsAt: start, EndsAt: &before}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.events.Create(f.ctx, f.owner(), f.orgID, tt.in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	ev, err := f.events.Create(f.ctx, f.owner(), f.orgID, EventInput{BrandID: brand.ID, Name: "x", StartsAt: start})
	require.NoError(t, err)
	_, err = f.events.Update(f.ctx, f.owner(), f.orgID, ev.ID, EventInput{BrandID: other.ID, Name: "x", StartsAt: start})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.events.Create(f.ctx, f.owner(), f.orgID, EventInput{BrandID: "ghost", Name: "x", StartsAt: start})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestEventBrandScope(t *testing.T) {
	f := newFixture(t)
	seen := f.addBrand(t, "Seen")
	hidden := f.addBrand(t, "Hidden")
	f.addMember(t, "scoped", authz.RoleMember, seen.ID)
	scoped := f.identity("scoped")

	a, err := f.events.Create(f.ctx, f.owner(), f.orgID, EventInput{BrandID: seen.ID, Name: "A", StartsAt: f.now()})
	require.NoError(t, err)
	b, err := f.events.Create(f.ctx, f.owner(), f.orgID, EventInput{BrandID: hidden.ID, Name: "B", StartsAt: f.now()})
	require.NoError(t, err)

	list, err := f.events.List(f.ctx, scoped, f.orgID, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	_, err = f.events.List(f.ctx, scoped, f.orgID, hidden.ID)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
	_, err = f.events.Get(f.ctx, scoped, f.orgID, b.ID)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
	_, err = f.events.Create(f.ctx, scoped, f.orgID, EventInput{BrandID: hidden.ID, Name: "C", StartsAt: f.now()})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	byBrand, err := f.events.List(f.ctx, f.owner(), f.orgID, hidden.ID)
	require.NoError(t, err)
	require.Len(t, byBrand, 1)
	assert.Equal(t, b.ID, byBrand[0].ID)
}

func TestDeleteEventRemovesItsCodes(t *testing.T) {
	f := newFixture(t)
	brand := f.addBrand(t, "Main")
	ev, err := f.events.Create(f.ctx, f.owner(), f.orgID, EventInput{BrandID: brand.ID, Name: "Show", StartsAt: f.now()})
	require.NoError(t, err)
	attached, err := f.qrcodes.Create(f.ctx, f.owner(), f.orgID, QRCodeInput{BrandID: brand.ID, EventID: ev.ID, Label: "Door", TargetURL: "https://acme.test/a"})
	require.NoError(t, err)
	loose, err := f.qrcodes.Create(f.ctx, f.owner(), f.orgID, QRCodeInput{BrandID: brand.ID, Label: "Poster", TargetURL: "https://acme.test/b"})
	require.NoError(t, err)

	require.NoError(t, f.events.Delete(f.ctx, f.owner(), f.orgID, ev.ID))

	_, err = f.store.GetQRCode(f.ctx, f.orgID, attached.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.store.GetQRCode(f.ctx, f.orgID, loose.ID)
	assert.NoError(t, err)
}
