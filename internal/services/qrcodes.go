package services

import (
	"context"
	"net/url"
	"strings"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/models"
	"brandhub/internal/store"
	"brandhub/internal/utils/logger"
)

const MaxQRCodeLabelLength = 100

type QRCodeInput struct {
	BrandID   string
	EventID   string
	Label     string
	TargetURL string
}

type QRCodeService struct {
	store  store.Store
	logger *logger.Logger
}

func NewQRCodeService(st store.Store) *QRCodeService {
	return &QRCodeService{store: st, logger: logger.New("QRCodes")}
}

func validateTargetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.Invalid("target URL must be an absolute http(s) URL")
	}
	return u.String(), nil
}

// checkEvent confirms eventID, when set, belongs to brandID.
func (s *QRCodeService) checkEvent(ctx context.Context, orgID, brandID, eventID string) error {
	if eventID == "" {
		return nil
	}
	event, err := s.store.GetEvent(ctx, orgID, eventID)
	if err != nil {
		return err
	}
	if event.BrandID != brandID {
		return apperr.Invalid("event %s belongs to a different brand", eventID)
	}
	return nil
}

func (s *QRCodeService) Create(ctx context.Context, caller authz.Identity, orgID string, in QRCodeInput) (*models.QRCode, error) {
	if in.BrandID == "" {
		return nil, apperr.Invalid("brand is required")
	}
	if _, err := authorize(ctx, s.store, orgID, caller, authz.QRCodesCreate, in.BrandID); err != nil {
		return nil, err
	}
	label, err := validateName("qr code", in.Label, MaxQRCodeLabelLength)
	if err != nil {
		return nil, err
	}
	target, err := validateTargetURL(in.TargetURL)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetBrand(ctx, orgID, in.BrandID); err != nil {
		return nil, err
	}
	if err := s.checkEvent(ctx, orgID, in.BrandID, in.EventID); err != nil {
		return nil, err
	}

	code := &models.QRCode{
		OrganizationID: orgID,
		BrandID:        in.BrandID,
		EventID:        in.EventID,
		Label:          label,
		TargetURL:      target,
		CreatedBy:      caller.UserID,
	}
	if err := s.store.CreateQRCode(ctx, code); err != nil {
		return nil, s.logger.Error("Failed to create qr code in %s", err, orgID)
	}
	return code, nil
}

func (s *QRCodeService) load(ctx context.Context, caller authz.Identity, orgID, codeID string, perm authz.Permission) (*models.QRCode, error) {
	member, err := actorIn(ctx, s.store, orgID, caller)
	if err != nil {
		return nil, err
	}
	code, err := s.store.GetQRCode(ctx, orgID, codeID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(member.Authz(), perm, code.BrandID); err != nil {
		return nil, err
	}
	return code, nil
}

func (s *QRCodeService) Get(ctx context.Context, caller authz.Identity, orgID, codeID string) (*models.QRCode, error) {
	return s.load(ctx, caller, orgID, codeID, authz.QRCodesRead)
}

func (s *QRCodeService) List(ctx context.Context, caller authz.Identity, orgID, brandID, eventID string) ([]models.QRCode, error) {
	member, err := authorize(ctx, s.store, orgID, caller, authz.QRCodesRead, brandID)
	if err != nil {
		return nil, err
	}
	codes, err := s.store.ListQRCodes(ctx, orgID, brandID, eventID)
	if err != nil {
		return nil, err
	}
	view := member.Authz()
	out := make([]models.QRCode, 0, len(codes))
	for _, code := range codes {
		if authz.HasBrandAccess(view, code.BrandID) {
			out = append(out, code)
		}
	}
	return out, nil
}

// Update edits label, target and event link. Codes stay with their brand.
func (s *QRCodeService) Update(ctx context.Context, caller authz.Identity, orgID, codeID string, in QRCodeInput) (*models.QRCode, error) {
	code, err := s.load(ctx, caller, orgID, codeID, authz.QRCodesUpdate)
	if err != nil {
		return nil, err
	}
	if in.BrandID != "" && in.BrandID != code.BrandID {
		return nil, apperr.Invalid("qr codes cannot move between brands")
	}
	label, err := validateName("qr code", in.Label, MaxQRCodeLabelLength)
	if err != nil {
		return nil, err
	}
	target, err := validateTargetURL(in.TargetURL)
	if err != nil {
		return nil, err
	}
	if err := s.checkEvent(ctx, orgID, code.BrandID, in.EventID); err != nil {
		return nil, err
	}

	code.Label = label
	code.TargetURL = target
	code.EventID = in.EventID
	if err := s.store.UpdateQRCode(ctx, code); err != nil {
		return nil, s.logger.Error("Failed to update qr code %s", err, codeID)
	}
	return code, nil
}

func (s *QRCodeService) Delete(ctx context.Context, caller authz.Identity, orgID, codeID string) error {
	code, err := s.load(ctx, caller, orgID, codeID, authz.QRCodesDelete)
	if err != nil {
		return err
	}
	return s.store.DeleteQRCode(ctx, orgID, code.ID)
}

// Resolve records a scan and returns where the code points. It needs no
// caller: scanners are anonymous.
func (s *QRCodeService) Resolve(ctx context.Context, codeID string) (string, error) {
	code, err := s.store.FindQRCode(ctx, codeID)
	if err != nil {
		return "", err
	}
	if err := s.store.RecordScan(ctx, code.ID); err != nil {
		s.logger.Warn("Could not record scan for %s: %v", code.ID, err)
	}
	return code.TargetURL, nil
}
