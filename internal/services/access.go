package services

import (
	"context"
	"errors"

	"brandhub/internal/apperr"
	"brandhub/internal/authz"
	"brandhub/internal/models"
	"brandhub/internal/store"
)

// actorIn loads caller's membership in orgID. Callers outside the organization
// get an authorization error, not a not-found, so membership is not probeable.
func actorIn(ctx context.Context, st store.MemberStore, orgID string, caller authz.Identity) (*models.OrganizationMember, error) {
	if caller.UserID == "" {
		return nil, apperr.Unauthenticated("no authenticated caller")
	}
	member, err := st.GetMember(ctx, orgID, caller.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Forbidden("not a member of this organization")
	}
	if err != nil {
		return nil, err
	}
	return member, nil
}

// authorize loads the caller's membership and checks perm and brand scope.
func authorize(ctx context.Context, st store.MemberStore, orgID string, caller authz.Identity, perm authz.Permission, brandID string) (*models.OrganizationMember, error) {
	member, err := actorIn(ctx, st, orgID, caller)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(member.Authz(), perm, brandID); err != nil {
		return nil, err
	}
	return member, nil
}

// parsePermissions validates raw permission strings against the catalog.
func parsePermissions(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := map[string]bool{}
	for _, p := range raw {
		if !authz.IsKnown(authz.Permission(p)) {
			return nil, apperr.Invalid("unknown permission %q", p)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// requireBrands checks every id names a brand of orgID.
func requireBrands(ctx context.Context, st store.BrandStore, orgID string, brandIDs []string) error {
	for _, id := range brandIDs {
		if _, err := st.GetBrand(ctx, orgID, id); err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return apperr.Invalid("brand %s does not belong to this organization", id)
			}
			return err
		}
	}
	return nil
}
