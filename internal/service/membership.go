package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/model"
	"github.com/habberrih/manara/internal/query"
	"github.com/habberrih/manara/internal/store"
)

// MembershipService drives the invitation state machine: invite, accept,
// role changes and removal. Rows are never duplicated per (user, org) pair;
// re-inviting a removed member revives the soft-deleted row in place.
type MembershipService struct {
	client *store.Client
	log    *zap.Logger
}

func NewMembershipService(client *store.Client, log *zap.Logger) *MembershipService {
	return &MembershipService{client: client, log: log}
}

// Invite creates or revives a PENDING membership for the user behind the
// given email. Re-inviting a still-pending or removed member resets the row
// to a fresh invitation with the new role; only a live accepted membership
// conflicts. The revival lookup must see soft-deleted rows, so it widens the
// filter over the delete marker and goes through find_first.
func (s *MembershipService) Invite(ctx context.Context, orgID, inviterID uint, email string, role model.OrgRole) (*model.Membership, error) {
	if !role.Valid() || role == model.RoleOwner {
		return nil, apperr.BadRequest("role must be ADMIN or MEMBER")
	}

	user, err := s.client.FindUnique(ctx, "user", query.Args{
		Filter: query.Eq("email", email),
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.BadRequest("no account exists for this email")
	}
	if user.Uint("id") == inviterID {
		return nil, apperr.BadRequest("you cannot invite yourself")
	}

	existing, err := s.client.FindFirst(ctx, "membership", query.Args{
		Filter: query.IncludeDeleted(query.And{
			query.Eq("user_id", user.Uint("id")),
			query.Eq("organization_id", orgID),
		}, "deleted_at"),
	})
	if err != nil {
		return nil, err
	}

	var rec query.Record
	switch {
	case existing == nil:
		rec, err = s.client.Create(ctx, "membership", query.Record{
			"user_id":         user.Uint("id"),
			"organization_id": orgID,
			"role":            string(role),
			"status":          string(model.StatusPending),
		})
	case existing.IsNull("deleted_at") && existing.String("status") == string(model.StatusAccepted):
		return nil, apperr.Conflict("user is already a member of this organization")
	default:
		// Pending or removed: reset the row to a fresh invitation.
		rec, err = s.client.Update(ctx, "membership",
			query.Eq("id", existing.Uint("id")),
			query.Record{
				"role":       string(role),
				"status":     string(model.StatusPending),
				"deleted_at": nil,
			})
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("membership invited",
		zap.Uint("organization_id", orgID),
		zap.Uint("user_id", user.Uint("id")),
		zap.String("role", string(role)))
	return model.MembershipFromRecord(rec), nil
}

// Accept moves the caller's own invitation to ACCEPTED. Accepting an already
// accepted membership is a no-op, not an error.
func (s *MembershipService) Accept(ctx context.Context, userID, orgID uint) (*model.Membership, error) {
	rec, err := s.client.FindUnique(ctx, "membership", query.Args{
		Filter: query.And{
			query.Eq("user_id", userID),
			query.Eq("organization_id", orgID),
		},
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("invitation not found")
	}
	if rec.String("status") == string(model.StatusAccepted) {
		return model.MembershipFromRecord(rec), nil
	}

	rec, err = s.client.Update(ctx, "membership",
		query.Eq("id", rec.Uint("id")),
		query.Record{"status": string(model.StatusAccepted)})
	if err != nil {
		return nil, err
	}
	s.log.Info("invitation accepted",
		zap.Uint("organization_id", orgID),
		zap.Uint("user_id", userID))
	return model.MembershipFromRecord(rec), nil
}

// UpdateRole changes a member's role. Ownership never moves through this
// path: OWNER can neither be granted nor taken away.
func (s *MembershipService) UpdateRole(ctx context.Context, orgID, targetUserID uint, role model.OrgRole) (*model.Membership, error) {
	if !role.Valid() {
		return nil, apperr.BadRequest("unknown role")
	}
	if role == model.RoleOwner {
		return nil, apperr.Forbidden("ownership cannot be granted through a role change")
	}

	rec, err := s.findMember(ctx, orgID, targetUserID)
	if err != nil {
		return nil, err
	}
	if rec.String("role") == string(model.RoleOwner) {
		return nil, apperr.Forbidden("the organization owner's role cannot be changed")
	}

	rec, err = s.client.Update(ctx, "membership",
		query.Eq("id", rec.Uint("id")),
		query.Record{"role": string(role)})
	if err != nil {
		return nil, err
	}
	return model.MembershipFromRecord(rec), nil
}

// Remove soft-deletes a membership. The owner cannot be removed; an
// organization always keeps exactly one OWNER.
func (s *MembershipService) Remove(ctx context.Context, orgID, targetUserID uint) error {
	rec, err := s.findMember(ctx, orgID, targetUserID)
	if err != nil {
		return err
	}
	if rec.String("role") == string(model.RoleOwner) {
		return apperr.Forbidden("the organization owner cannot be removed")
	}

	_, err = s.client.Update(ctx, "membership",
		query.Eq("id", rec.Uint("id")),
		query.Record{"deleted_at": time.Now().UTC()})
	if err != nil {
		return err
	}
	s.log.Info("membership removed",
		zap.Uint("organization_id", orgID),
		zap.Uint("user_id", targetUserID))
	return nil
}

// List returns the organization's memberships with each member's profile
// merged in through a second query, keeping the read path on two indexed
// lookups instead of a join.
func (s *MembershipService) List(ctx context.Context, orgID uint) ([]query.Record, error) {
	memberships, err := s.client.FindMany(ctx, "membership", query.Args{
		Filter:  query.Eq("organization_id", orgID),
		OrderBy: "created_at",
	})
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []query.Record{}, nil
	}

	userIDs := lo.Map(memberships, func(m query.Record, _ int) uint {
		return m.Uint("user_id")
	})
	users, err := s.client.FindMany(ctx, "user", query.Args{
		Filter: query.In("id", userIDs),
	})
	if err != nil {
		return nil, err
	}
	byID := lo.SliceToMap(users, func(u query.Record) (uint, query.Record) {
		return u.Uint("id"), u
	})
	for _, m := range memberships {
		if u, ok := byID[m.Uint("user_id")]; ok {
			m["user"] = query.Record{
				"id":    u.Uint("id"),
				"email": u.String("email"),
				"name":  u["name"],
			}
		}
	}
	return memberships, nil
}

func (s *MembershipService) findMember(ctx context.Context, orgID, userID uint) (query.Record, error) {
	rec, err := s.client.FindUnique(ctx, "membership", query.Args{
		Filter: query.And{
			query.Eq("user_id", userID),
			query.Eq("organization_id", orgID),
		},
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("membership not found")
	}
	return rec, nil
}
