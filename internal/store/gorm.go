package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brandhub/internal/apperr"
	"brandhub/internal/models"
)

// GormStore is the postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// translate maps gorm errors onto the apperr taxonomy.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("", "%s already exists", what)
	default:
		return apperr.Wrap(apperr.KindInternal, err, "%s", what)
	}
}

func first[T any](ctx context.Context, db *gorm.DB, what string, query string, args ...interface{}) (*T, error) {
	var entity T
	if err := db.WithContext(ctx).Where(query, args...).First(&entity).Error; err != nil {
		return nil, translate(err, what)
	}
	return &entity, nil
}

func find[T any](ctx context.Context, what string, query *gorm.DB) ([]T, error) {
	var entities []T
	if err := query.WithContext(ctx).Order("created_at asc").Find(&entities).Error; err != nil {
		return nil, translate(err, what)
	}
	return entities, nil
}

func create[T any](ctx context.Context, db *gorm.DB, what string, entity *T) error {
	return translate(db.WithContext(ctx).Create(entity).Error, what)
}

func save[T any](ctx context.Context, db *gorm.DB, what string, entity *T) error {
	return translate(db.WithContext(ctx).Save(entity).Error, what)
}

func remove[T any](ctx context.Context, db *gorm.DB, what string, query string, args ...interface{}) error {
	var model T
	res := db.WithContext(ctx).Where(query, args...).Delete(&model)
	if res.Error != nil {
		return translate(res.Error, what)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("%s not found", what)
	}
	return nil
}

func (s *GormStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	return create(ctx, s.db, "organization", org)
}

func (s *GormStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	return first[models.Organization](ctx, s.db, "organization", "id = ?", id)
}

func (s *GormStore) ListOrganizations(ctx context.Context, ids []string) ([]models.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return find[models.Organization](ctx, "organizations", s.db.Where("id IN ?", ids))
}

func (s *GormStore) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	return save(ctx, s.db, "organization", org)
}

func (s *GormStore) CreateDeletionRequest(ctx context.Context, req *models.DeletionRequest) error {
	return create(ctx, s.db, "deletion request", req)
}

func (s *GormStore) GetDeletionRequest(ctx context.Context, id string) (*models.DeletionRequest, error) {
	return first[models.DeletionRequest](ctx, s.db, "deletion request", "id = ?", id)
}

func (s *GormStore) CreateMember(ctx context.Context, member *models.OrganizationMember) error {
	return create(ctx, s.db, "membership", member)
}

func (s *GormStore) GetMember(ctx context.Context, orgID, userID string) (*models.OrganizationMember, error) {
	return first[models.OrganizationMember](ctx, s.db, "membership",
		"organization_id = ? AND user_id = ?", orgID, userID)
}

func (s *GormStore) FindMemberByEmail(ctx context.Context, orgID, email string) (*models.OrganizationMember, error) {
	return first[models.OrganizationMember](ctx, s.db, "membership",
		"organization_id = ? AND email = ?", orgID, models.NormalizeEmail(email))
}

func (s *GormStore) ListMembers(ctx context.Context, orgID string) ([]models.OrganizationMember, error) {
	return find[models.OrganizationMember](ctx, "memberships", s.db.Where("organization_id = ?", orgID))
}

func (s *GormStore) ListMembershipsByUser(ctx context.Context, userID string) ([]models.OrganizationMember, error) {
	return find[models.OrganizationMember](ctx, "memberships", s.db.Where("user_id = ?", userID))
}

func (s *GormStore) UpdateMember(ctx context.Context, member *models.OrganizationMember) error {
	return save(ctx, s.db, "membership", member)
}

func (s *GormStore) DeleteMember(ctx context.Context, orgID, userID string) error {
	return remove[models.OrganizationMember](ctx, s.db, "membership",
		"organization_id = ? AND user_id = ?", orgID, userID)
}

func (s *GormStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	return first[models.UserProfile](ctx, s.db, "user profile", "user_id = ?", userID)
}

func (s *GormStore) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "updated_at"}),
	}).Create(profile).Error
	return translate(err, "user profile")
}

func (s *GormStore) IncrementClaimsVersion(ctx context.Context, userID string) (int64, error) {
	profile := &models.UserProfile{UserID: userID, ClaimsVersion: 1}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"claims_version": gorm.Expr("user_profiles.claims_version + 1"),
			"updated_at":     time.Now(),
		}),
	}).Create(profile).Error
	if err != nil {
		return 0, translate(err, "user profile")
	}
	stored, err := s.GetProfile(ctx, userID)
	if err != nil {
		return 0, err
	}
	return stored.ClaimsVersion, nil
}

func (s *GormStore) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	return create(ctx, s.db, "invitation", inv)
}

func (s *GormStore) GetInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	return first[models.Invitation](ctx, s.db, "invitation", "id = ?", id)
}

func (s *GormStore) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	return first[models.Invitation](ctx, s.db, "invitation", "token = ?", token)
}

func (s *GormStore) FindPendingInvitation(ctx context.Context, orgID, email string) (*models.Invitation, error) {
	return first[models.Invitation](ctx, s.db, "invitation",
		"organization_id = ? AND email = ? AND status = ?",
		orgID, models.NormalizeEmail(email), models.InvitationStatusPending)
}

func (s *GormStore) ListInvitations(ctx context.Context, orgID string, status models.InvitationStatus) ([]models.Invitation, error) {
	query := s.db.Where("organization_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	return find[models.Invitation](ctx, "invitations", query)
}

func (s *GormStore) ListExpiredInvitations(ctx context.Context, now time.Time, limit int) ([]models.Invitation, error) {
	query := s.db.Where("status = ? AND expires_at <= ?", models.InvitationStatusPending, now)
	if limit > 0 {
		query = query.Limit(limit)
	}
	return find[models.Invitation](ctx, "invitations", query)
}

func (s *GormStore) TransitionInvitation(ctx context.Context, inv *models.Invitation, from models.InvitationStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ? AND status = ?", inv.ID, from).
		Updates(map[string]interface{}{
			"status":       inv.Status,
			"expires_at":   inv.ExpiresAt,
			"accepted_at":  inv.AcceptedAt,
			"responded_at": inv.RespondedAt,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error, "invitation")
	}
	if res.RowsAffected == 0 {
		current, err := s.GetInvitation(ctx, inv.ID)
		if err != nil {
			return err
		}
		return apperr.InvalidState("invitation is already %s", current.Status)
	}
	return nil
}

func (s *GormStore) CreateBrand(ctx context.Context, brand *models.Brand) error {
	return create(ctx, s.db, "brand", brand)
}

func (s *GormStore) GetBrand(ctx context.Context, orgID, id string) (*models.Brand, error) {
	return first[models.Brand](ctx, s.db, "brand", "organization_id = ? AND id = ?", orgID, id)
}

func (s *GormStore) ListBrands(ctx context.Context, orgID string) ([]models.Brand, error) {
	return find[models.Brand](ctx, "brands", s.db.Where("organization_id = ?", orgID))
}

func (s *GormStore) UpdateBrand(ctx context.Context, brand *models.Brand) error {
	return save(ctx, s.db, "brand", brand)
}

func (s *GormStore) DeleteBrand(ctx context.Context, orgID, id string) error {
	return remove[models.Brand](ctx, s.db, "brand", "organization_id = ? AND id = ?", orgID, id)
}

func (s *GormStore) CreateEvent(ctx context.Context, event *models.Event) error {
	return create(ctx, s.db, "event", event)
}

func (s *GormStore) GetEvent(ctx context.Context, orgID, id string) (*models.Event, error) {
	return first[models.Event](ctx, s.db, "event", "organization_id = ? AND id = ?", orgID, id)
}

func (s *GormStore) ListEvents(ctx context.Context, orgID, brandID string) ([]models.Event, error) {
	query := s.db.Where("organization_id = ?", orgID)
	if brandID != "" {
		query = query.Where("brand_id = ?", brandID)
	}
	return find[models.Event](ctx, "events", query)
}

func (s *GormStore) UpdateEvent(ctx context.Context, event *models.Event) error {
	return save(ctx, s.db, "event", event)
}

func (s *GormStore) DeleteEvent(ctx context.Context, orgID, id string) error {
	return remove[models.Event](ctx, s.db, "event", "organization_id = ? AND id = ?", orgID, id)
}

func (s *GormStore) CreateQRCode(ctx context.Context, code *models.QRCode) error {
	return create(ctx, s.db, "qr code", code)
}

func (s *GormStore) GetQRCode(ctx context.Context, orgID, id string) (*models.QRCode, error) {
	return first[models.QRCode](ctx, s.db, "qr code", "organization_id = ? AND id = ?", orgID, id)
}

func (s *GormStore) FindQRCode(ctx context.Context, id string) (*models.QRCode, error) {
	return first[models.QRCode](ctx, s.db, "qr code", "id = ?", id)
}

func (s *GormStore) ListQRCodes(ctx context.Context, orgID, brandID, eventID string) ([]models.QRCode, error) {
	query := s.db.Where("organization_id = ?", orgID)
	if brandID != "" {
		query = query.Where("brand_id = ?", brandID)
	}
	if eventID != "" {
		query = query.Where("event_id = ?", eventID)
	}
	return find[models.QRCode](ctx, "qr codes", query)
}

func (s *GormStore) UpdateQRCode(ctx context.Context, code *models.QRCode) error {
	return save(ctx, s.db, "qr code", code)
}

func (s *GormStore) DeleteQRCode(ctx context.Context, orgID, id string) error {
	return remove[models.QRCode](ctx, s.db, "qr code", "organization_id = ? AND id = ?", orgID, id)
}

func (s *GormStore) RecordScan(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.QRCode{}).Where("id = ?", id).
		UpdateColumn("scan_count", gorm.Expr("scan_count + 1"))
	if res.Error != nil {
		return translate(res.Error, "qr code")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("qr code not found")
	}
	return nil
}
