package authz

import (
	"encoding/json"
	"sort"

	"brandhub/internal/apperr"
	"brandhub/internal/utils/logger"
)

const (
	// DefaultMaxClaimsBytes is the identity provider's custom-claims ceiling.
	DefaultMaxClaimsBytes = 1000
	// DefaultSoftRatio is the fraction of MaxBytes past which a warning is logged.
	DefaultSoftRatio = 0.95
)

// MembershipData is one organization membership as seen by the encoder.
type MembershipData struct {
	OrganizationID string
	Role           Role
	Permissions    []Permission
	BrandAccess    []string
}

// OrgClaims holds abbreviated permissions and brand scope for one organization.
type OrgClaims struct {
	P []string `json:"p"`
	B []string `json:"b"`
}

// ClaimsPayload is the compact structure attached to the user's identity token.
type ClaimsPayload struct {
	Orgs map[string]OrgClaims `json:"orgs"`
	CV   int64                `json:"cv"`
}

// Size returns the serialized length of the payload in bytes.
func (p ClaimsPayload) Size() int {
	b, err := json.Marshal(p)
	if err != nil {
		return 0
	}
	return len(b)
}

// IsFallback reports whether p carries no organizations, which clients read
// as "fetch authorization data from the server".
func (p ClaimsPayload) IsFallback() bool {
	return len(p.Orgs) == 0
}

// Member reconstructs the authorization view of one organization from the
// payload, for callers that only have a token.
func (p ClaimsPayload) Member(userID, orgID string) (*Member, bool) {
	oc, ok := p.Orgs[orgID]
	if !ok {
		return nil, false
	}
	perms := make([]Permission, 0, len(oc.P))
	for _, short := range oc.P {
		perms = append(perms, Expand(short))
	}
	return &Member{
		OrganizationID: orgID,
		UserID:         userID,
		Permissions:    perms,
		BrandAccess:    append([]string(nil), oc.B...),
	}, true
}

type Encoder struct {
	MaxBytes  int
	SoftRatio float64
	Logger    *logger.Logger
}

func NewEncoder() *Encoder {
	return &Encoder{
		MaxBytes:  DefaultMaxClaimsBytes,
		SoftRatio: DefaultSoftRatio,
		Logger:    encoderLog,
	}
}

// Build encodes memberships into a payload stamped with currentVersion+1. If
// the result would exceed MaxBytes the fallback payload is returned instead;
// callers never see the size error.
func (e *Encoder) Build(memberships []MembershipData, currentVersion int64) ClaimsPayload {
	next := currentVersion + 1

	payload, size, err := e.encode(memberships, next)
	if err != nil {
		e.log().Error("claims too large for %d orgs, issuing fallback", err, len(memberships))
		return ClaimsPayload{Orgs: map[string]OrgClaims{}, CV: next}
	}

	if e.nearLimit(size) {
		e.log().Warn("claims payload at %d of %d bytes across %d orgs", size, e.maxBytes(), len(memberships))
	}
	return payload
}

func (e *Encoder) encode(memberships []MembershipData, version int64) (ClaimsPayload, int, error) {
	payload := ClaimsPayload{
		Orgs: make(map[string]OrgClaims, len(memberships)),
		CV:   version,
	}

	for _, m := range memberships {
		member := &Member{Role: m.Role, Permissions: m.Permissions}
		perms := EffectivePermissions(member)

		short := make([]string, 0, len(perms))
		for _, p := range perms {
			short = append(short, Abbreviate(p))
		}
		sort.Strings(short)

		brands := make([]string, len(m.BrandAccess))
		copy(brands, m.BrandAccess)

		payload.Orgs[m.OrganizationID] = OrgClaims{P: short, B: brands}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return ClaimsPayload{}, 0, apperr.Wrap(apperr.KindInternal, err, "marshal claims")
	}
	if len(raw) > e.maxBytes() {
		return ClaimsPayload{}, len(raw), apperr.New(apperr.KindSizeLimit,
			"claims payload is %d bytes, limit %d", len(raw), e.maxBytes())
	}
	return payload, len(raw), nil
}

func (e *Encoder) maxBytes() int {
	if e.MaxBytes <= 0 {
		return DefaultMaxClaimsBytes
	}
	return e.MaxBytes
}

func (e *Encoder) softLimit() float64 {
	ratio := e.SoftRatio
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultSoftRatio
	}
	return float64(e.maxBytes()) * ratio
}

// nearLimit reports whether size is past the soft warning threshold.
func (e *Encoder) nearLimit(size int) bool {
	return float64(size) > e.softLimit()
}

var encoderLog = logger.New("Claims-Encoder")

func (e *Encoder) log() *logger.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return encoderLog
}
