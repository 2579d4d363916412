// Package authz decides whether a caller may act on an organization: the
// membership check every tenant-scoped route passes through, and the
// plan-derived resource-limit check evaluated alongside it.
package authz

import (
	"context"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/model"
	"github.com/habberrih/manara/internal/query"
	"github.com/habberrih/manara/internal/store"
)

// MemberChecker resolves a caller's membership in a target organization.
type MemberChecker struct {
	client *store.Client
}

// NewMemberChecker builds a checker over the pipeline client.
func NewMemberChecker(client *store.Client) *MemberChecker {
	return &MemberChecker{client: client}
}

// Check runs the authorization sequence for a tenant-scoped route: the
// caller must be authenticated, the target organization resolved, the
// membership present, accepted, and - when roles are given - one of the
// required roles. It returns the resolved membership for downstream
// handlers. The lookup runs before any tenant binding, so the pipeline's
// tenant scoping stays out of the way; its soft-delete filter already hides
// removed memberships.
func (c *MemberChecker) Check(ctx context.Context, userID, orgID uint, roles ...model.OrgRole) (*model.Membership, error) {
	if userID == 0 {
		return nil, apperr.AuthenticationRequired("authentication required")
	}
	if orgID == 0 {
		return nil, apperr.BadRequest("organization identifier is required for this route")
	}

	rec, err := c.client.FindUnique(ctx, "membership", query.Args{
		Filter: query.And{
			query.Eq("user_id", userID),
			query.Eq("organization_id", orgID),
		},
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.Forbidden("you are not a member of this organization")
	}

	membership := model.MembershipFromRecord(rec)
	if membership.Status != model.StatusAccepted {
		return nil, apperr.Forbidden("pending invitation must be accepted before accessing this organization")
	}

	if len(roles) > 0 {
		allowed := false
		for _, role := range roles {
			if membership.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, apperr.Forbidden("insufficient organization role")
		}
	}

	return membership, nil
}
