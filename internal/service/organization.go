// Package service holds the business operations behind the HTTP handlers.
// Every data access goes through the store client, so the soft-delete,
// tenant-scope and redaction policies apply uniformly; services never touch
// the database handle directly.
package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/model"
	"github.com/habberrih/manara/internal/query"
	"github.com/habberrih/manara/internal/store"
)

// slugAttempts bounds the numeric suffixes tried before giving up on a name.
const slugAttempts = 50

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// OrganizationService manages tenants and their lifecycle.
type OrganizationService struct {
	client *store.Client
	log    *zap.Logger
}

func NewOrganizationService(client *store.Client, log *zap.Logger) *OrganizationService {
	return &OrganizationService{client: client, log: log}
}

// Create provisions an organization on the free plan and makes the creator
// its accepted OWNER, atomically. The creating call runs outside any tenant
// binding, so the new organization's id is stamped explicitly.
func (s *OrganizationService) Create(ctx context.Context, userID uint, name string) (query.Record, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.BadRequest("organization name is required")
	}

	slug, err := s.ensureUniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	var org query.Record
	err = s.client.Transaction(ctx, func(tx *store.Client) error {
		org, err = tx.Create(ctx, "organization", query.Record{
			"name": strings.TrimSpace(name),
			"slug": slug,
			"plan": string(model.PlanFree),
		})
		if err != nil {
			return err
		}
		_, err = tx.Create(ctx, "membership", query.Record{
			"user_id":         userID,
			"organization_id": org.Uint("id"),
			"role":            string(model.RoleOwner),
			"status":          string(model.StatusAccepted),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("organization created",
		zap.Uint("organization_id", org.Uint("id")),
		zap.String("slug", slug),
		zap.Uint("owner_user_id", userID))
	return org, nil
}

// ListForUser returns the organizations the user is an accepted member of.
func (s *OrganizationService) ListForUser(ctx context.Context, userID uint) ([]query.Record, error) {
	memberships, err := s.client.FindMany(ctx, "membership", query.Args{
		Filter: query.And{
			query.Eq("user_id", userID),
			query.Eq("status", string(model.StatusAccepted)),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []query.Record{}, nil
	}

	orgIDs := lo.Map(memberships, func(m query.Record, _ int) uint {
		return m.Uint("organization_id")
	})
	orgs, err := s.client.FindMany(ctx, "organization", query.Args{
		Filter:  query.In("id", orgIDs),
		OrderBy: "created_at",
	})
	if err != nil {
		return nil, err
	}

	roleByOrg := lo.SliceToMap(memberships, func(m query.Record) (uint, string) {
		return m.Uint("organization_id"), m.String("role")
	})
	for _, org := range orgs {
		org["role"] = roleByOrg[org.Uint("id")]
	}
	return orgs, nil
}

// Get returns one organization by id, or NotFound when it does not exist or
// was deleted. Membership is enforced upstream.
func (s *OrganizationService) Get(ctx context.Context, orgID uint) (query.Record, error) {
	org, err := s.client.FindUnique(ctx, "organization", query.Args{
		Filter: query.Eq("id", orgID),
	})
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, apperr.NotFound("organization not found")
	}
	return org, nil
}

// Update changes the name or plan of an organization. The slug is stable
// after creation.
func (s *OrganizationService) Update(ctx context.Context, orgID uint, name, plan *string) (query.Record, error) {
	data := query.Record{}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, apperr.BadRequest("organization name cannot be empty")
		}
		data["name"] = strings.TrimSpace(*name)
	}
	if plan != nil {
		if !model.Plan(*plan).Valid() {
			return nil, apperr.BadRequest("unknown plan")
		}
		data["plan"] = *plan
	}
	if len(data) == 0 {
		return nil, apperr.BadRequest("nothing to update")
	}
	if _, err := s.Get(ctx, orgID); err != nil {
		return nil, err
	}
	return s.client.Update(ctx, "organization", query.Eq("id", orgID), data)
}

// Delete soft-deletes the organization together with all of its memberships,
// atomically. Scoped resources such as API keys stay in place but become
// unreachable because no membership survives to authorize access.
func (s *OrganizationService) Delete(ctx context.Context, orgID uint) error {
	if _, err := s.Get(ctx, orgID); err != nil {
		return err
	}
	now := time.Now().UTC()
	err := s.client.Transaction(ctx, func(tx *store.Client) error {
		if _, err := tx.Update(ctx, "organization",
			query.Eq("id", orgID),
			query.Record{"deleted_at": now}); err != nil {
			return err
		}
		_, err := tx.UpdateMany(ctx, "membership",
			query.And{
				query.Eq("organization_id", orgID),
				query.IsNull("deleted_at"),
			},
			query.Record{"deleted_at": now})
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("organization deleted", zap.Uint("organization_id", orgID))
	return nil
}

// ensureUniqueSlug derives a URL slug from the name and, on collision, tries
// numeric suffixes -1 through -50 before reporting a conflict. Deleted
// organizations still hold their slug because the unique index spans them.
func (s *OrganizationService) ensureUniqueSlug(ctx context.Context, name string) (string, error) {
	base := slugify(name)
	candidate := base
	for i := 0; i <= slugAttempts; i++ {
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		existing, err := s.client.FindFirst(ctx, "organization", query.Args{
			Filter: query.IncludeDeleted(query.Eq("slug", candidate), "deleted_at"),
		})
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
	}
	return "", apperr.Conflict("could not allocate a unique slug for this organization name")
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
