package authz

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/model"
	"github.com/habberrih/manara/internal/query"
	"github.com/habberrih/manara/internal/store"
)

// UsageResolver counts an organization's current usage of one feature.
type UsageResolver func(ctx context.Context, client *store.Client, orgID uint) (int64, error)

// PlanLimitChecker evaluates plan quotas at authorization time, before the
// handler runs and before any mutation.
type PlanLimitChecker struct {
	client    *store.Client
	log       *zap.Logger
	limits    map[model.Plan]map[Feature]*int64
	resolvers map[Feature]UsageResolver
}

// NewPlanLimitChecker builds a checker with the default limit table and
// usage resolvers.
func NewPlanLimitChecker(client *store.Client, log *zap.Logger) *PlanLimitChecker {
	return &PlanLimitChecker{
		client: client,
		log:    log,
		limits: PlanLimits,
		resolvers: map[Feature]UsageResolver{
			FeatureApiKeys: countApiKeys,
		},
	}
}

// Check denies when the organization's usage of the feature has reached its
// plan quota. A nil quota allows unconditionally; an organization on a plan
// missing from the table is allowed with a warning rather than hard-failing
// every request on a configuration gap.
func (c *PlanLimitChecker) Check(ctx context.Context, orgID uint, feature Feature, message string) error {
	if orgID == 0 {
		return apperr.BadRequest("organization context is required to evaluate plan limits")
	}

	org, err := c.client.FindUnique(ctx, "organization", query.Args{
		Filter: query.Eq("id", orgID),
	})
	if err != nil {
		return err
	}
	if org == nil {
		return apperr.NotFound("organization not found")
	}

	plan := model.Plan(org.String("plan"))
	planConfig, ok := c.limits[plan]
	if !ok {
		c.log.Warn("no plan configuration found, allowing request",
			zap.String("plan", string(plan)),
			zap.Uint("organization_id", orgID))
		return nil
	}

	limit, ok := planConfig[feature]
	if !ok {
		return apperr.Internal(fmt.Sprintf("unsupported plan feature %q", feature), nil)
	}
	if limit == nil {
		return nil
	}

	resolver, ok := c.resolvers[feature]
	if !ok {
		return apperr.Internal(fmt.Sprintf("usage resolver missing for feature %q", feature), nil)
	}
	usage, err := resolver(ctx, c.client, orgID)
	if err != nil {
		return err
	}

	if usage >= *limit {
		if message == "" {
			message = "plan limit reached for this feature"
		}
		return apperr.Forbidden(message)
	}
	return nil
}

func countApiKeys(ctx context.Context, client *store.Client, orgID uint) (int64, error) {
	return client.Count(ctx, "api_key", query.Args{
		Filter: query.And{
			query.Eq("organization_id", orgID),
			query.IsNull("deleted_at"),
		},
	})
}
