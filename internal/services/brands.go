package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/events"
	"brandhub/internal/models"
	"brandhub/internal/store"
	"brandhub/internal/utils/logger"
)

const (
	MaxBrandNameLength = 100
	MaxLogoBytes       = 5 << 20
	logoURLTTL         = time.Hour
)

type BrandInput struct {
	Name        string
	Description string
}

type BrandService struct {
	store   store.Store
	bus     *events.EventBus
	storage ObjectStorage
	cleaner ObjectCleaner
	logger  *logger.Logger
}

// NewBrandService wires brand CRUD. storage and cleaner may be nil, in which
// case logo upload is unavailable.
func NewBrandService(st store.Store, bus *events.EventBus, storage ObjectStorage, cleaner ObjectCleaner) *BrandService {
	return &BrandService{
		store:   st,
		bus:     bus,
		storage: storage,
		cleaner: cleaner,
		logger:  logger.New("Brands"),
	}
}

func validateName(what, name string, max int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Invalid("%s name is required", what)
	}
	if len([]rune(name)) > max {
		return "", apperr.Invalid("%s name must be at most %d characters", what, max)
	}
	return name, nil
}

// Create stores the brand and extends every restricted member who opted into
// new brands, plus a restricted creator, so nobody loses sight of it.
func (s *BrandService) Create(ctx context.Context, caller authz.Identity, orgID string, in BrandInput) (*models.Brand, error) {
	if _, err := authorize(ctx, s.store, orgID, caller, authz.BrandsCreate, ""); err != nil {
		return nil, err
	}
	name, err := validateName("brand", in.Name, MaxBrandNameLength)
	if err != nil {
		return nil, err
	}

	brand := &models.Brand{
		OrganizationID: orgID,
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		CreatedBy:      caller.UserID,
	}
	var granted []string
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateBrand(ctx, brand); err != nil {
			return err
		}
		members, err := tx.ListMembers(ctx, orgID)
		if err != nil {
			return err
		}
		for i := range members {
			m := &members[i]
			if !m.Restricted() || !(m.AutoGrantNewBrands || m.UserID == caller.UserID) {
				continue
			}
			if slices.Contains(m.BrandAccess, brand.ID) {
				continue
			}
			m.BrandAccess = append(m.BrandAccess, brand.ID)
			if err := tx.UpdateMember(ctx, m); err != nil {
				return err
			}
			granted = append(granted, m.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, s.logger.Error("Failed to create brand in %s", err, orgID)
	}

	s.logger.Success("Brand %s created in %s, auto-granted to %d members", brand.ID, orgID, len(granted))
	for _, userID := range granted {
		s.bus.Emit(events.MembershipChanged, events.MembershipChange{
			OrganizationID: orgID, UserID: userID, Reason: "brand auto-granted",
		})
	}
	return brand, nil
}

func (s *BrandService) Get(ctx context.Context, caller authz.Identity, orgID, brandID string) (*models.Brand, error) {
	if _, err := authorize(ctx, s.store, orgID, caller, authz.BrandsRead, brandID); err != nil {
		return nil, err
	}
	brand, err := s.store.GetBrand(ctx, orgID, brandID)
	if err != nil {
		return nil, err
	}
	s.signLogo(ctx, brand)
	return brand, nil
}

// List returns the brands visible to the caller.
func (s *BrandService) List(ctx context.Context, caller authz.Identity, orgID string) ([]models.Brand, error) {
	member, err := authorize(ctx, s.store, orgID, caller, authz.BrandsRead, "")
	if err != nil {
		return nil, err
	}
	brands, err := s.store.ListBrands(ctx, orgID)
	if err != nil {
		return nil, err
	}
	view := member.Authz()
	out := make([]models.Brand, 0, len(brands))
	for i := range brands {
		if authz.HasBrandAccess(view, brands[i].ID) {
			s.signLogo(ctx, &brands[i])
			out = append(out, brands[i])
		}
	}
	return out, nil
}

func (s *BrandService) Update(ctx context.Context, caller authz.Identity, orgID, brandID string, in BrandInput) (*models.Brand, error) {
	if _, err := authorize(ctx, s.store, orgID, caller, authz.BrandsUpdate, brandID); err != nil {
		return nil, err
	}
	name, err := validateName("brand", in.Name, MaxBrandNameLength)
	if err != nil {
		return nil, err
	}
	brand, err := s.store.GetBrand(ctx, orgID, brandID)
	if err != nil {
		return nil, err
	}
	brand.Name = name
	brand.Description = strings.TrimSpace(in.Description)
	if err := s.store.UpdateBrand(ctx, brand); err != nil {
		return nil, s.logger.Error("Failed to update brand %s", err, brandID)
	}
	return brand, nil
}

// Delete removes the brand with its events and QR codes. Member brand lists
// keep the stale ID: pruning could empty a list and silently widen access.
func (s *BrandService) Delete(ctx context.Context, caller authz.Identity, orgID, brandID string) error {
	if _, err := authorize(ctx, s.store, orgID, caller, authz.BrandsDelete, brandID); err != nil {
		return err
	}

	var logoPath string
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		brand, err := tx.GetBrand(ctx, orgID, brandID)
		if err != nil {
			return err
		}
		logoPath = brand.LogoPath

		codes, err := tx.ListQRCodes(ctx, orgID, brandID, "")
		if err != nil {
			return err
		}
		for _, code := range codes {
			if err := tx.DeleteQRCode(ctx, orgID, code.ID); err != nil {
				return err
			}
		}
		evs, err := tx.ListEvents(ctx, orgID, brandID)
		if err != nil {
			return err
		}
		for _, ev := range evs {
			if err := tx.DeleteEvent(ctx, orgID, ev.ID); err != nil {
				return err
			}
		}
		return tx.DeleteBrand(ctx, orgID, brandID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Brand %s deleted from %s by %s", brandID, orgID, caller.UserID)
	s.scheduleCleanup(ctx, logoPath)
	s.bus.Emit(events.BrandDeleted, events.BrandRemoval{OrganizationID: orgID, BrandID: brandID, LogoPath: logoPath})
	return nil
}

// UploadLogo stores a new logo and schedules the previous one for removal.
func (s *BrandService) UploadLogo(ctx context.Context, caller authz.Identity, orgID, brandID, filename, contentType string, size int64, body io.Reader) (*models.Brand, error) {
	if _, err := authorize(ctx, s.store, orgID, caller, authz.BrandsUpdate, brandID); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, apperr.New(apperr.KindInternal, "object storage is not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.Invalid("logo must be an image, got %q", contentType)
	}
	if size <= 0 || size > MaxLogoBytes {
		return nil, apperr.Invalid("logo must be between 1 byte and %d bytes", MaxLogoBytes)
	}

	brand, err := s.store.GetBrand(ctx, orgID, brandID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("orgs/%s/brands/%s/logo-%s%s", orgID, brandID, uuid.New().String(), strings.ToLower(filepath.Ext(filename)))
	if err := s.storage.PutObject(ctx, key, body, size, contentType); err != nil {
		return nil, s.logger.Error("Failed to upload logo for brand %s", err, brandID)
	}

	previous := brand.LogoPath
	brand.LogoPath = key
	brand.LogoURL = ""
	if err := s.store.UpdateBrand(ctx, brand); err != nil {
		s.scheduleCleanup(ctx, key)
		return nil, s.logger.Error("Failed to record logo for brand %s", err, brandID)
	}

	s.scheduleCleanup(ctx, previous)
	s.signLogo(ctx, brand)
	return brand, nil
}

func (s *BrandService) scheduleCleanup(ctx context.Context, key string) {
	if key == "" || s.cleaner == nil {
		return
	}
	if err := s.cleaner.DeleteObjectLater(ctx, key); err != nil {
		_ = s.logger.Error("Failed to schedule cleanup of %s", err, key)
	}
}

func (s *BrandService) signLogo(ctx context.Context, brand *models.Brand) {
	if brand.LogoPath == "" || brand.LogoURL != "" || s.storage == nil {
		return
	}
	url, err := s.storage.GetSignedURL(ctx, brand.LogoPath, logoURLTTL)
	if err != nil {
		s.logger.Warn("Could not sign logo URL for brand %s: %v", brand.ID, err)
		return
	}
	brand.LogoURL = url
}
