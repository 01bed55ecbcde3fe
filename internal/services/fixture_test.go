package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"brandhub/internal/authz"
	"brandhub/internal/events"
	"brandhub/internal/models"
	"brandhub/internal/store"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *fakeMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) GetSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://cdn.test/" + key + "?sig=1", nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type fakeCleaner struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeCleaner) DeleteObjectLater(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

type fakeRefresher struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeRefresher) RefreshClaims(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return nil
}

func (f *fakeRefresher) Users() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.users...)
}

type memorySink struct {
	mu       sync.Mutex
	payloads map[string]authz.ClaimsPayload
	setErr   error
}

func newMemorySink() *memorySink {
	return &memorySink{payloads: map[string]authz.ClaimsPayload{}}
}

func (s *memorySink) GetClaims(ctx context.Context, userID string) (*authz.ClaimsPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payloads[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memorySink) SetClaims(ctx context.Context, userID string, payload authz.ClaimsPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.payloads[userID] = payload
	return nil
}

type fixture struct {
	store    *store.MemoryStore
	bus      *events.EventBus
	mailer   *fakeMailer
	storage  *fakeStorage
	cleaner  *fakeCleaner
	orgs     *OrganizationService
	members  *MemberService
	invites  *InvitationService
	brands   *BrandService
	events   *EventService
	qrcodes  *QRCodeService
	clock    time.Time
	clockMu  sync.Mutex
	ctx      context.Context
	ownerID  string
	orgID    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   store.NewMemoryStore(),
		bus:     events.NewEventBus(),
		mailer:  &fakeMailer{},
		storage: newFakeStorage(),
		cleaner: &fakeCleaner{},
		clock:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ctx:     context.Background(),
	}
	f.orgs = NewOrganizationService(f.store, f.bus)
	f.orgs.now = f.now
	f.members = NewMemberService(f.store, f.bus)
	f.invites = NewInvitationService(f.store, f.bus, f.mailer, InvitationOptions{TTL: 72 * time.Hour, AppURL: "https://app.test/"})
	f.invites.now = f.now
	f.brands = NewBrandService(f.store, f.bus, f.storage, f.cleaner)
	f.events = NewEventService(f.store)
	f.qrcodes = NewQRCodeService(f.store)

	f.ownerID = "owner"
	org, err := f.orgs.Create(f.ctx, f.identity(f.ownerID), "Acme Events")
	require.NoError(t, err)
	f.orgID = org.ID
	t.Cleanup(f.bus.Wait)
	return f
}

func (f *fixture) now() time.Time {
	f.clockMu.Lock()
	defer f.clockMu.Unlock()
	return f.clock
}

func (f *fixture) advance(d time.Duration) {
	f.clockMu.Lock()
	defer f.clockMu.Unlock()
	f.clock = f.clock.Add(d)
}

func (f *fixture) identity(userID string) authz.Identity {
	return authz.Identity{UserID: userID, Email: userID + "@example.com", Name: strings.ToUpper(userID)}
}

func (f *fixture) addMember(t *testing.T, userID string, role authz.Role, brands ...string) *models.OrganizationMember {
	t.Helper()
	m := &models.OrganizationMember{
		OrganizationID: f.orgID,
		UserID:         userID,
		Email:          userID + "@example.com",
		DisplayName:    strings.ToUpper(userID),
		Role:           role,
		BrandAccess:    brands,
	}
	require.NoError(t, f.store.CreateMember(f.ctx, m))
	return m
}

func (f *fixture) addBrand(t *testing.T, name string) *models.Brand {
	t.Helper()
	b, err := f.brands.Create(f.ctx, f.identity(f.ownerID), f.orgID, BrandInput{Name: name})
	require.NoError(t, err)
	return b
}

func (f *fixture) owner() authz.Identity {
	return f.identity(f.ownerID)
}

var errBoom = errors.New("boom")

func readerOf(s string) io.Reader {
	return bytes.NewBufferString(s)
}
