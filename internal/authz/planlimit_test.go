package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/query"
	"github.com/habberrih/manara/internal/store/storetest"
)

func seedOrg(exec *storetest.Executor, plan string) uint {
	rec := exec.Seed("organization", query.Record{
		"name": "Acme", "slug": "acme", "plan": plan,
	})
	return rec.Uint("id")
}

func seedKey(exec *storetest.Executor, orgID uint, hash string) {
	exec.Seed("api_key", query.Record{
		"organization_id": orgID, "name": "k-" + hash, "key_hash": hash,
	})
}

func TestPlanLimitDeniesAtQuota(t *testing.T) {
	client, exec := newFixture(t)
	orgID := seedOrg(exec, "FREE")
	seedKey(exec, orgID, "h1")

	checker := NewPlanLimitChecker(client, zap.NewNop())
	err := checker.Check(context.Background(), orgID, FeatureApiKeys, "free plan allows a single API key")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
	assert.Equal(t, "free plan allows a single API key", apperr.Message(err))
}

func TestPlanLimitAllowsBelowQuota(t *testing.T) {
	client, exec := newFixture(t)
	orgID := seedOrg(exec, "PRO")
	for _, h := range []string{"h1", "h2", "h3", "h4"} {
		seedKey(exec, orgID, h)
	}

	checker := NewPlanLimitChecker(client, zap.NewNop())
	assert.NoError(t, checker.Check(context.Background(), orgID, FeatureApiKeys, ""))

	seedKey(exec, orgID, "h5")
	err := checker.Check(context.Background(), orgID, FeatureApiKeys, "")
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}

func TestPlanLimitIgnoresRevokedKeys(t *testing.T) {
	client, exec := newFixture(t)
	orgID := seedOrg(exec, "FREE")
	exec.Seed("api_key", query.Record{
		"organization_id": orgID, "name": "old", "key_hash": "h0", "deleted_at": time.Now(),
	})

	checker := NewPlanLimitChecker(client, zap.NewNop())
	assert.NoError(t, checker.Check(context.Background(), orgID, FeatureApiKeys, ""))
}

func TestPlanLimitUnlimitedPlanAlwaysAllows(t *testing.T) {
	client, exec := newFixture(t)
	orgID := seedOrg(exec, "ENTERPRISE")
	for _, h := range []string{"h1", "h2", "h3", "h4", "h5", "h6", "h7"} {
		seedKey(exec, orgID, h)
	}

	checker := NewPlanLimitChecker(client, zap.NewNop())
	assert.NoError(t, checker.Check(context.Background(), orgID, FeatureApiKeys, ""))
}

func TestPlanLimitUnknownPlanAllowsWithWarning(t *testing.T) {
	client, exec := newFixture(t)
	orgID := seedOrg(exec, "LEGACY")
	seedKey(exec, orgID, "h1")

	checker := NewPlanLimitChecker(client, zap.NewNop())
	assert.NoError(t, checker.Check(context.Background(), orgID, FeatureApiKeys, ""))
}

func TestPlanLimitUnknownFeatureIsInternal(t *testing.T) {
	client, exec := newFixture(t)
	orgID := seedOrg(exec, "FREE")

	checker := NewPlanLimitChecker(client, zap.NewNop())
	err := checker.Check(context.Background(), orgID, Feature("webhooks"), "")
	assert.True(t, apperr.Is(err, apperr.CodeInternal))
}

func TestPlanLimitMissingOrganization(t *testing.T) {
	client, _ := newFixture(t)

	checker := NewPlanLimitChecker(client, zap.NewNop())
	err := checker.Check(context.Background(), 42, FeatureApiKeys, "")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	err = checker.Check(context.Background(), 0, FeatureApiKeys, "")
	assert.True(t, apperr.Is(err, apperr.CodeBadRequest))
}
