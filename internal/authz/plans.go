package authz

import "github.com/habberrih/manara/internal/model"

// Feature names a plan-limited capability.
type Feature string

// FeatureApiKeys limits how many active API keys an organization may hold.
const FeatureApiKeys Feature = "api_keys"

// PlanLimits maps each plan to its per-feature quotas. A nil quota means
// unlimited; a feature absent from a plan's map is unsupported and treated
// as a configuration error when checked.
// TODO: move to configuration so product can adjust quotas without a deploy.
var PlanLimits = map[model.Plan]map[Feature]*int64{
	model.PlanFree:       {FeatureApiKeys: quota(1)},
	model.PlanPro:        {FeatureApiKeys: quota(5)},
	model.PlanEnterprise: {FeatureApiKeys: nil},
}

func quota(n int64) *int64 {
	return &n
}
