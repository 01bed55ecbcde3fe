package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/events"
)

func ptr[T any](v T) *T { return &v }

func TestUpdateMember(t *testing.T) {
	f := newFixture(t)
	brand := f.addBrand(t, "Main")
	f.addMember(t, "admin", authz.RoleAdmin)
	f.addMember(t, "alice", authz.RoleMember)

	var mu sync.Mutex
	var changed []string
	f.bus.On(events.MembershipChanged, func(data interface{}) {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, data.(events.MembershipChange).UserID)
	})

	m, err := f.members.Update(f.ctx, f.identity("admin"), f.orgID, "alice", UpdateMemberInput{
		Role:               ptr(authz.RoleAdmin),
		Permissions:        ptr([]string{"events:read", "events:read", "brands:read"}),
		BrandAccess:        ptr([]string{brand.ID}),
		AutoGrantNewBrands: ptr(true),
	})
	require.NoError(t, err)
	f.bus.Wait()

	assert.Equal(t, authz.RoleAdmin, m.Role)
	assert.Equal(t, []string{"events:read", "brands:read"}, []string(m.Permissions))
	assert.Equal(t, []string{brand.ID}, []string(m.BrandAccess))
	assert.True(t, m.AutoGrantNewBrands)

	stored, err := f.store.GetMember(f.ctx, f.orgID, "alice")
	require.NoError(t, err)
	assert.Equal(t, m.Permissions, stored.Permissions)

	mu.Lock()
	assert.Equal(t, []string{"alice"}, changed)
	mu.Unlock()
}

func TestUpdateMemberRules(t *testing.T) {
	f := newFixture(t)
	seen := f.addBrand(t, "Seen")
	hidden := f.addBrand(t, "Hidden")
	f.addMember(t, "admin", authz.RoleAdmin)
	f.addMember(t, "scoped", authz.RoleAdmin, seen.ID)
	f.addMember(t, "alice", authz.RoleMember)
	f.addMember(t, "member", authz.RoleMember)

	tests := []struct {
		name   string
		caller string
		target string
		in     UpdateMemberInput
		kind   apperr.Kind
	}{
		{"admin cannot promote to owner", "admin", "alice", UpdateMemberInput{Role: ptr(authz.RoleOwner)}, apperr.KindAuthorization},
		{"admin cannot edit owner", "admin", "owner", UpdateMemberInput{AutoGrantNewBrands: ptr(true)}, apperr.KindAuthorization},
		{"admin cannot grant wildcard", "admin", "alice", UpdateMemberInput{Permissions: ptr([]string{"*"})}, apperr.KindAuthorization},
		{"unknown permission", "admin", "alice", UpdateMemberInput{Permissions: ptr([]string{"brands:fly"})}, apperr.KindValidation},
		{"unknown role", "admin", "alice", UpdateMemberInput{Role: ptr(authz.Role("boss"))}, apperr.KindValidation},
		{"member lacks users:update", "member", "alice", UpdateMemberInput{AutoGrantNewBrands: ptr(true)}, apperr.KindAuthorization},
		{"scoped admin cannot widen", "scoped", "alice", UpdateMemberInput{BrandAccess: ptr([]string{hidden.ID})}, apperr.KindAuthorization},
		{"scoped admin cannot clear scope", "scoped", "alice", UpdateMemberInput{BrandAccess: ptr([]string{})}, apperr.KindAuthorization},
		{"brand from elsewhere", "owner", "alice", UpdateMemberInput{BrandAccess: ptr([]string{"ghost"})}, apperr.KindValidation},
		{"missing target", "owner", "ghost", UpdateMemberInput{}, apperr.KindNotFound},
		{"last owner cannot step down", "owner", "owner", UpdateMemberInput{Role: ptr(authz.RoleAdmin)}, apperr.KindState},
		{"scoped admin grants seen brand", "scoped", "alice", UpdateMemberInput{BrandAccess: ptr([]string{seen.ID})}, ""},
		{"owner promotes to owner", "owner", "admin", UpdateMemberInput{Role: ptr(authz.RoleOwner)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.members.Update(f.ctx, f.identity(tt.caller), f.orgID, tt.target, tt.in)
			if tt.kind == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	// with a second owner in place the original may step down
	_, err := f.members.Update(f.ctx, f.owner(), f.orgID, "owner", UpdateMemberInput{Role: ptr(authz.RoleAdmin)})
	require.NoError(t, err)
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "admin", authz.RoleAdmin)
	f.addMember(t, "alice", authz.RoleMember)

	require.NoError(t, f.members.Remove(f.ctx, f.identity("admin"), f.orgID, "alice"))
	_, err := f.store.GetMember(f.ctx, f.orgID, "alice")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = f.members.Remove(f.ctx, f.identity("admin"), f.orgID, "owner")
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	err = f.members.Remove(f.ctx, f.owner(), f.orgID, "owner")
	assert.Equal(t, apperr.KindState, apperr.KindOf(err))

	err = f.members.Remove(f.ctx, f.owner(), f.orgID, "nobody")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListMembers(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "alice", authz.RoleMember)

	members, err := f.members.List(f.ctx, f.identity("alice"), f.orgID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "owner", members[0].UserID)

	_, err = f.members.List(f.ctx, f.identity("stranger"), f.orgID)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestEnsureProfile(t *testing.T) {
	f := newFixture(t)

	profile, err := f.members.EnsureProfile(f.ctx, authz.Identity{UserID: "u1", Email: "U1@Example.com", Name: "U One"})
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.UserID)

	stored, err := f.store.GetProfile(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", stored.Email)
	assert.Equal(t, "U One", stored.DisplayName)

	_, err = f.members.EnsureProfile(f.ctx, authz.Identity{})
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
}
