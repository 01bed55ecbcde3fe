package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
)

func newTestSink(t *testing.T, maxBytes int) (*RedisClaimsSink, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisClaimsSink(client, "", maxBytes), mr
}

func TestRedisClaimsSinkRoundTrip(t *testing.T) {
	sink, mr := newTestSink(t, 0)
	ctx := context.Background()

	got, err := sink.GetClaims(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	payload := authz.ClaimsPayload{
		Orgs: map[string]authz.OrgClaims{"org1": {P: []string{"b:r", "e:u"}, B: []string{}}},
		CV:   4,
	}
	require.NoError(t, sink.SetClaims(ctx, "u1", payload))

	raw, err := mr.Get("claims:u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"orgs":{"org1":{"p":["b:r","e:u"],"b":[]}},"cv":4}`, raw)

	got, err = sink.GetClaims(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, payload, *got)
}

func TestRedisClaimsSinkRefusesOversize(t *testing.T) {
	sink, mr := newTestSink(t, 30)

	err := sink.SetClaims(context.Background(), "u1", authz.ClaimsPayload{
		Orgs: map[string]authz.OrgClaims{"a-rather-long-organization-id": {P: []string{"*"}, B: []string{}}},
		CV:   1,
	})

	assert.Equal(t, apperr.KindSizeLimit, apperr.KindOf(err))
	assert.False(t, mr.Exists("claims:u1"))
}

func TestRedisClaimsSinkCorruptPayload(t *testing.T) {
	sink, mr := newTestSink(t, 0)
	require.NoError(t, mr.Set("claims:u1", "{not json"))

	_, err := sink.GetClaims(context.Background(), "u1")

	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestClaimsServiceWithRedisSink(t *testing.T) {
	f := newFixture(t)
	sink, _ := newTestSink(t, 0)
	svc := NewClaimsService(f.store, sink, nil)

	_, err := svc.UpdateUserClaims(f.ctx, f.ownerID)
	require.NoError(t, err)
	update, err := svc.UpdateUserClaims(f.ctx, f.ownerID)
	require.NoError(t, err)

	assert.EqualValues(t, 2, update.Payload.CV)
	current, err := svc.CurrentClaims(f.ctx, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, update.Payload, *current)
}

func TestClaimsServiceReplacesCorruptPayload(t *testing.T) {
	f := newFixture(t)
	sink, mr := newTestSink(t, 0)
	svc := NewClaimsService(f.store, sink, nil)

	first, err := svc.UpdateUserClaims(f.ctx, f.ownerID)
	require.NoError(t, err)
	require.NoError(t, mr.Set("claims:"+f.ownerID, "{not json"))

	rebuilt, err := svc.UpdateUserClaims(f.ctx, f.ownerID)
	require.NoError(t, err)
	assert.Greater(t, rebuilt.Payload.CV, first.Payload.CV)
	assert.Contains(t, rebuilt.Payload.Orgs, f.orgID)

	current, err := svc.CurrentClaims(f.ctx, f.ownerID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, rebuilt.Payload, *current)

	again, err := svc.UpdateUserClaims(f.ctx, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, rebuilt.Payload.CV+1, again.Payload.CV)
}

func TestClaimsServiceCorruptPayloadWithoutProfile(t *testing.T) {
	f := newFixture(t)
	sink, mr := newTestSink(t, 0)
	svc := NewClaimsService(f.store, sink, nil)
	require.NoError(t, mr.Set("claims:stranger", "[]"))

	update, err := svc.UpdateUserClaims(f.ctx, "stranger")
	require.NoError(t, err)
	assert.EqualValues(t, 1, update.Payload.CV)
	assert.Empty(t, update.Payload.Orgs)
}
