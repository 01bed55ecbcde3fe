package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"brandhub/internal/apperr"
	"brandhub/internal/models"
)

// MemoryStore is an in-process Store. Transactions hold the store lock for
// their whole duration and commit by swapping in a modified copy of the state.
type MemoryStore struct {
	mu     *sync.Mutex
	root   *memoryRoot
	state  *memoryState
	inTx   bool
	faults *faults
}

var _ Store = (*MemoryStore)(nil)

type memoryRoot struct {
	state *memoryState
}

type memoryState struct {
	orgs        map[string]models.Organization
	deletions   map[string]models.DeletionRequest
	members     map[string]models.OrganizationMember
	profiles    map[string]models.UserProfile
	invitations map[string]models.Invitation
	brands      map[string]models.Brand
	events      map[string]models.Event
	qrcodes     map[string]models.QRCode
	lastStamp   time.Time
}

type faults struct {
	mu  sync.Mutex
	ops map[string]error
}

func NewMemoryStore() *MemoryStore {
	state := &memoryState{
		orgs:        map[string]models.Organization{},
		deletions:   map[string]models.DeletionRequest{},
		members:     map[string]models.OrganizationMember{},
		profiles:    map[string]models.UserProfile{},
		invitations: map[string]models.Invitation{},
		brands:      map[string]models.Brand{},
		events:      map[string]models.Event{},
		qrcodes:     map[string]models.QRCode{},
	}
	return &MemoryStore{
		mu:     &sync.Mutex{},
		root:   &memoryRoot{state: state},
		faults: &faults{ops: map[string]error{}},
	}
}

// InjectFault makes every later call to the named method fail with err. A nil
// err clears the fault.
func (m *MemoryStore) InjectFault(op string, err error) {
	m.faults.mu.Lock()
	defer m.faults.mu.Unlock()
	if err == nil {
		delete(m.faults.ops, op)
		return
	}
	m.faults.ops[op] = err
}

func (m *MemoryStore) fault(op string) error {
	m.faults.mu.Lock()
	defer m.faults.mu.Unlock()
	return m.faults.ops[op]
}

// begin locks the store unless already inside a transaction and returns the
// state to operate on with its release func.
func (m *MemoryStore) begin() (*memoryState, func()) {
	if m.inTx {
		return m.state, func() {}
	}
	m.mu.Lock()
	return m.root.state, m.mu.Unlock
}

func (m *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if err := m.fault("Transaction"); err != nil {
		return err
	}
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.root.state.clone()
	tx := &MemoryStore{mu: m.mu, root: m.root, state: working, inTx: true, faults: m.faults}
	if err := fn(tx); err != nil {
		return err
	}
	m.root.state = working
	return nil
}

// stamp returns a strictly increasing timestamp so listings have a stable order.
func (s *memoryState) stamp() time.Time {
	now := time.Now()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = now
	return now
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		orgs:        make(map[string]models.Organization, len(s.orgs)),
		deletions:   make(map[string]models.DeletionRequest, len(s.deletions)),
		members:     make(map[string]models.OrganizationMember, len(s.members)),
		profiles:    make(map[string]models.UserProfile, len(s.profiles)),
		invitations: make(map[string]models.Invitation, len(s.invitations)),
		brands:      make(map[string]models.Brand, len(s.brands)),
		events:      make(map[string]models.Event, len(s.events)),
		qrcodes:     make(map[string]models.QRCode, len(s.qrcodes)),
		lastStamp:   s.lastStamp,
	}
	for k, v := range s.orgs {
		out.orgs[k] = v
	}
	for k, v := range s.deletions {
		out.deletions[k] = v
	}
	for k, v := range s.members {
		out.members[k] = copyMember(v)
	}
	for k, v := range s.profiles {
		out.profiles[k] = v
	}
	for k, v := range s.invitations {
		out.invitations[k] = copyInvitation(v)
	}
	for k, v := range s.brands {
		out.brands[k] = v
	}
	for k, v := range s.events {
		out.events[k] = copyEvent(v)
	}
	for k, v := range s.qrcodes {
		out.qrcodes[k] = v
	}
	return out
}

func copyMember(m models.OrganizationMember) models.OrganizationMember {
	m.Permissions = slices.Clone(m.Permissions)
	m.BrandAccess = slices.Clone(m.BrandAccess)
	return m
}

func copyInvitation(inv models.Invitation) models.Invitation {
	inv.BrandAccess = slices.Clone(inv.BrandAccess)
	if inv.AcceptedAt != nil {
		t := *inv.AcceptedAt
		inv.AcceptedAt = &t
	}
	if inv.RespondedAt != nil {
		t := *inv.RespondedAt
		inv.RespondedAt = &t
	}
	return inv
}

func copyEvent(e models.Event) models.Event {
	if e.EndsAt != nil {
		t := *e.EndsAt
		e.EndsAt = &t
	}
	return e
}

func memberKey(orgID, userID string) string {
	return orgID + "\x00" + userID
}

func sortByCreated[T any](items []T, created func(T) time.Time) []T {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).Before(created(items[j]))
	})
	return items
}

func (m *MemoryStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if err := m.fault("CreateOrganization"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	org.EnsureID()
	if _, ok := s.orgs[org.ID]; ok {
		return apperr.Conflict(org.ID, "organization already exists")
	}
	org.CreatedAt = s.stamp()
	org.UpdatedAt = org.CreatedAt
	s.orgs[org.ID] = *org
	return nil
}

func (m *MemoryStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	if err := m.fault("GetOrganization"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	org, ok := s.orgs[id]
	if !ok {
		return nil, apperr.NotFound("organization not found")
	}
	return &org, nil
}

func (m *MemoryStore) ListOrganizations(ctx context.Context, ids []string) ([]models.Organization, error) {
	if err := m.fault("ListOrganizations"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	var out []models.Organization
	for _, id := range ids {
		if org, ok := s.orgs[id]; ok {
			out = append(out, org)
		}
	}
	return sortByCreated(out, func(o models.Organization) time.Time { return o.CreatedAt }), nil
}

func (m *MemoryStore) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	if err := m.fault("UpdateOrganization"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	if _, ok := s.orgs[org.ID]; !ok {
		return apperr.NotFound("organization not found")
	}
	org.UpdatedAt = s.stamp()
	s.orgs[org.ID] = *org
	return nil
}

func (m *MemoryStore) CreateDeletionRequest(ctx context.Context, req *models.DeletionRequest) error {
	if err := m.fault("CreateDeletionRequest"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	req.EnsureID()
	req.CreatedAt = s.stamp()
	req.UpdatedAt = req.CreatedAt
	s.deletions[req.ID] = *req
	return nil
}

func (m *MemoryStore) GetDeletionRequest(ctx context.Context, id string) (*models.DeletionRequest, error) {
	if err := m.fault("GetDeletionRequest"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	req, ok := s.deletions[id]
	if !ok {
		return nil, apperr.NotFound("deletion request not found")
	}
	return &req, nil
}

func (m *MemoryStore) CreateMember(ctx context.Context, member *models.OrganizationMember) error {
	if err := m.fault("CreateMember"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	key := memberKey(member.OrganizationID, member.UserID)
	if existing, ok := s.members[key]; ok {
		return apperr.Conflict(existing.ID, "membership already exists")
	}
	member.EnsureID()
	member.Email = models.NormalizeEmail(member.Email)
	member.CreatedAt = s.stamp()
	member.UpdatedAt = member.CreatedAt
	s.members[key] = copyMember(*member)
	return nil
}

func (m *MemoryStore) GetMember(ctx context.Context, orgID, userID string) (*models.OrganizationMember, error) {
	if err := m.fault("GetMember"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	member, ok := s.members[memberKey(orgID, userID)]
	if !ok {
		return nil, apperr.NotFound("membership not found")
	}
	out := copyMember(member)
	return &out, nil
}

func (m *MemoryStore) FindMemberByEmail(ctx context.Context, orgID, email string) (*models.OrganizationMember, error) {
	if err := m.fault("FindMemberByEmail"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	email = models.NormalizeEmail(email)
	for _, member := range s.members {
		if member.OrganizationID == orgID && member.Email == email {
			out := copyMember(member)
			return &out, nil
		}
	}
	return nil, apperr.NotFound("membership not found")
}

func (m *MemoryStore) listMembers(op string, match func(models.OrganizationMember) bool) ([]models.OrganizationMember, error) {
	if err := m.fault(op); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	var out []models.OrganizationMember
	for _, member := range s.members {
		if match(member) {
			out = append(out, copyMember(member))
		}
	}
	return sortByCreated(out, func(o models.OrganizationMember) time.Time { return o.CreatedAt }), nil
}

func (m *MemoryStore) ListMembers(ctx context.Context, orgID string) ([]models.OrganizationMember, error) {
	return m.listMembers("ListMembers", func(o models.OrganizationMember) bool {
		return o.OrganizationID == orgID
	})
}

func (m *MemoryStore) ListMembershipsByUser(ctx context.Context, userID string) ([]models.OrganizationMember, error) {
	return m.listMembers("ListMembershipsByUser", func(o models.OrganizationMember) bool {
		return o.UserID == userID
	})
}

func (m *MemoryStore) UpdateMember(ctx context.Context, member *models.OrganizationMember) error {
	if err := m.fault("UpdateMember"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	key := memberKey(member.OrganizationID, member.UserID)
	if _, ok := s.members[key]; !ok {
		return apperr.NotFound("membership not found")
	}
	member.Email = models.NormalizeEmail(member.Email)
	member.UpdatedAt = s.stamp()
	s.members[key] = copyMember(*member)
	return nil
}

func (m *MemoryStore) DeleteMember(ctx context.Context, orgID, userID string) error {
	if err := m.fault("DeleteMember"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	key := memberKey(orgID, userID)
	if _, ok := s.members[key]; !ok {
		return apperr.NotFound("membership not found")
	}
	delete(s.members, key)
	return nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if err := m.fault("GetProfile"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, apperr.NotFound("user profile not found")
	}
	return &profile, nil
}

func (m *MemoryStore) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	if err := m.fault("UpsertProfile"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	now := s.stamp()
	existing, ok := s.profiles[profile.UserID]
	if ok {
		existing.Email = models.NormalizeEmail(profile.Email)
		existing.DisplayName = profile.DisplayName
		existing.UpdatedAt = now
		s.profiles[profile.UserID] = existing
		*profile = existing
		return nil
	}
	profile.Email = models.NormalizeEmail(profile.Email)
	profile.CreatedAt = now
	profile.UpdatedAt = now
	s.profiles[profile.UserID] = *profile
	return nil
}

func (m *MemoryStore) IncrementClaimsVersion(ctx context.Context, userID string) (int64, error) {
	if err := m.fault("IncrementClaimsVersion"); err != nil {
		return 0, err
	}
	s, done := m.begin()
	defer done()

	now := s.stamp()
	profile, ok := s.profiles[userID]
	if !ok {
		profile = models.UserProfile{UserID: userID, CreatedAt: now}
	}
	profile.ClaimsVersion++
	profile.UpdatedAt = now
	s.profiles[userID] = profile
	return profile.ClaimsVersion, nil
}

func (m *MemoryStore) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	if err := m.fault("CreateInvitation"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	email := models.NormalizeEmail(inv.Email)
	for _, existing := range s.invitations {
		if existing.Token == inv.Token {
			return apperr.Conflict(existing.ID, "invitation token already in use")
		}
		if inv.Status == models.InvitationStatusPending && existing.Status == models.InvitationStatusPending &&
			existing.OrganizationID == inv.OrganizationID && existing.Email == email {
			return apperr.Conflict("", "invitation already exists")
		}
	}
	inv.EnsureID()
	inv.Email = email
	inv.CreatedAt = s.stamp()
	inv.UpdatedAt = inv.CreatedAt
	s.invitations[inv.ID] = copyInvitation(*inv)
	return nil
}

func (m *MemoryStore) GetInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	if err := m.fault("GetInvitation"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	inv, ok := s.invitations[id]
	if !ok {
		return nil, apperr.NotFound("invitation not found")
	}
	out := copyInvitation(inv)
	return &out, nil
}

func (m *MemoryStore) findInvitation(op string, match func(models.Invitation) bool) (*models.Invitation, error) {
	if err := m.fault(op); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	for _, inv := range s.invitations {
		if match(inv) {
			out := copyInvitation(inv)
			return &out, nil
		}
	}
	return nil, apperr.NotFound("invitation not found")
}

func (m *MemoryStore) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	return m.findInvitation("GetInvitationByToken", func(inv models.Invitation) bool {
		return token != "" && inv.Token == token
	})
}

func (m *MemoryStore) FindPendingInvitation(ctx context.Context, orgID, email string) (*models.Invitation, error) {
	email = models.NormalizeEmail(email)
	return m.findInvitation("FindPendingInvitation", func(inv models.Invitation) bool {
		return inv.OrganizationID == orgID && inv.Email == email && inv.Status == models.InvitationStatusPending
	})
}

func (m *MemoryStore) listInvitations(op string, limit int, match func(models.Invitation) bool) ([]models.Invitation, error) {
	if err := m.fault(op); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	var out []models.Invitation
	for _, inv := range s.invitations {
		if match(inv) {
			out = append(out, copyInvitation(inv))
		}
	}
	out = sortByCreated(out, func(i models.Invitation) time.Time { return i.CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListInvitations(ctx context.Context, orgID string, status models.InvitationStatus) ([]models.Invitation, error) {
	return m.listInvitations("ListInvitations", 0, func(inv models.Invitation) bool {
		return inv.OrganizationID == orgID && (status == "" || inv.Status == status)
	})
}

func (m *MemoryStore) ListExpiredInvitations(ctx context.Context, now time.Time, limit int) ([]models.Invitation, error) {
	return m.listInvitations("ListExpiredInvitations", limit, func(inv models.Invitation) bool {
		return inv.Status == models.InvitationStatusPending && inv.IsExpired(now)
	})
}

func (m *MemoryStore) TransitionInvitation(ctx context.Context, inv *models.Invitation, from models.InvitationStatus) error {
	if err := m.fault("TransitionInvitation"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	stored, ok := s.invitations[inv.ID]
	if !ok {
		return apperr.NotFound("invitation not found")
	}
	if stored.Status != from {
		return apperr.InvalidState("invitation is already %s", stored.Status)
	}
	stored.Status = inv.Status
	stored.ExpiresAt = inv.ExpiresAt
	stored.AcceptedAt = inv.AcceptedAt
	stored.RespondedAt = inv.RespondedAt
	stored.UpdatedAt = s.stamp()
	s.invitations[inv.ID] = copyInvitation(stored)
	inv.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryStore) CreateBrand(ctx context.Context, brand *models.Brand) error {
	if err := m.fault("CreateBrand"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	brand.EnsureID()
	brand.CreatedAt = s.stamp()
	brand.UpdatedAt = brand.CreatedAt
	s.brands[brand.ID] = *brand
	return nil
}

func (m *MemoryStore) GetBrand(ctx context.Context, orgID, id string) (*models.Brand, error) {
	if err := m.fault("GetBrand"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	brand, ok := s.brands[id]
	if !ok || brand.OrganizationID != orgID {
		return nil, apperr.NotFound("brand not found")
	}
	return &brand, nil
}

func (m *MemoryStore) ListBrands(ctx context.Context, orgID string) ([]models.Brand, error) {
	if err := m.fault("ListBrands"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	var out []models.Brand
	for _, brand := range s.brands {
		if brand.OrganizationID == orgID {
			out = append(out, brand)
		}
	}
	return sortByCreated(out, func(b models.Brand) time.Time { return b.CreatedAt }), nil
}

func (m *MemoryStore) UpdateBrand(ctx context.Context, brand *models.Brand) error {
	if err := m.fault("UpdateBrand"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	if stored, ok := s.brands[brand.ID]; !ok || stored.OrganizationID != brand.OrganizationID {
		return apperr.NotFound("brand not found")
	}
	brand.UpdatedAt = s.stamp()
	s.brands[brand.ID] = *brand
	return nil
}

func (m *MemoryStore) DeleteBrand(ctx context.Context, orgID, id string) error {
	if err := m.fault("DeleteBrand"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	if stored, ok := s.brands[id]; !ok || stored.OrganizationID != orgID {
		return apperr.NotFound("brand not found")
	}
	delete(s.brands, id)
	return nil
}

func (m *MemoryStore) CreateEvent(ctx context.Context, event *models.Event) error {
	if err := m.fault("CreateEvent"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	event.EnsureID()
	event.CreatedAt = s.stamp()
	event.UpdatedAt = event.CreatedAt
	s.events[event.ID] = copyEvent(*event)
	return nil
}

func (m *MemoryStore) GetEvent(ctx context.Context, orgID, id string) (*models.Event, error) {
	if err := m.fault("GetEvent"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	event, ok := s.events[id]
	if !ok || event.OrganizationID != orgID {
		return nil, apperr.NotFound("event not found")
	}
	out := copyEvent(event)
	return &out, nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, orgID, brandID string) ([]models.Event, error) {
	if err := m.fault("ListEvents"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	var out []models.Event
	for _, event := range s.events {
		if event.OrganizationID == orgID && (brandID == "" || event.BrandID == brandID) {
			out = append(out, copyEvent(event))
		}
	}
	return sortByCreated(out, func(e models.Event) time.Time { return e.CreatedAt }), nil
}

func (m *MemoryStore) UpdateEvent(ctx context.Context, event *models.Event) error {
	if err := m.fault("UpdateEvent"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	if stored, ok := s.events[event.ID]; !ok || stored.OrganizationID != event.OrganizationID {
		return apperr.NotFound("event not found")
	}
	event.UpdatedAt = s.stamp()
	s.events[event.ID] = copyEvent(*event)
	return nil
}

func (m *MemoryStore) DeleteEvent(ctx context.Context, orgID, id string) error {
	if err := m.fault("DeleteEvent"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	if stored, ok := s.events[id]; !ok || stored.OrganizationID != orgID {
		return apperr.NotFound("event not found")
	}
	delete(s.events, id)
	return nil
}

func (m *MemoryStore) CreateQRCode(ctx context.Context, code *models.QRCode) error {
	if err := m.fault("CreateQRCode"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	code.EnsureID()
	code.CreatedAt = s.stamp()
	code.UpdatedAt = code.CreatedAt
	s.qrcodes[code.ID] = *code
	return nil
}

func (m *MemoryStore) GetQRCode(ctx context.Context, orgID, id string) (*models.QRCode, error) {
	code, err := m.FindQRCode(ctx, id)
	if err != nil {
		return nil, err
	}
	if code.OrganizationID != orgID {
		return nil, apperr.NotFound("qr code not found")
	}
	return code, nil
}

func (m *MemoryStore) FindQRCode(ctx context.Context, id string) (*models.QRCode, error) {
	if err := m.fault("FindQRCode"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	code, ok := s.qrcodes[id]
	if !ok {
		return nil, apperr.NotFound("qr code not found")
	}
	return &code, nil
}

func (m *MemoryStore) ListQRCodes(ctx context.Context, orgID, brandID, eventID string) ([]models.QRCode, error) {
	if err := m.fault("ListQRCodes"); err != nil {
		return nil, err
	}
	s, done := m.begin()
	defer done()

	var out []models.QRCode
	for _, code := range s.qrcodes {
		if code.OrganizationID != orgID {
			continue
		}
		if brandID != "" && code.BrandID != brandID {
			continue
		}
		if eventID != "" && code.EventID != eventID {
			continue
		}
		out = append(out, code)
	}
	return sortByCreated(out, func(c models.QRCode) time.Time { return c.CreatedAt }), nil
}

func (m *MemoryStore) UpdateQRCode(ctx context.Context, code *models.QRCode) error {
	if err := m.fault("UpdateQRCode"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	if stored, ok := s.qrcodes[code.ID]; !ok || stored.OrganizationID != code.OrganizationID {
		return apperr.NotFound("qr code not found")
	}
	code.UpdatedAt = s.stamp()
	s.qrcodes[code.ID] = *code
	return nil
}

func (m *MemoryStore) DeleteQRCode(ctx context.Context, orgID, id string) error {
	if err := m.fault("DeleteQRCode"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	if stored, ok := s.qrcodes[id]; !ok || stored.OrganizationID != orgID {
		return apperr.NotFound("qr code not found")
	}
	delete(s.qrcodes, id)
	return nil
}

func (m *MemoryStore) RecordScan(ctx context.Context, id string) error {
	if err := m.fault("RecordScan"); err != nil {
		return err
	}
	s, done := m.begin()
	defer done()

	code, ok := s.qrcodes[id]
	if !ok {
		return apperr.NotFound("qr code not found")
	}
	code.ScanCount++
	s.qrcodes[id] = code
	return nil
}
