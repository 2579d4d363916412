package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/model"
	"github.com/habberrih/manara/internal/query"
	"github.com/habberrih/manara/internal/store"
	"github.com/habberrih/manara/internal/store/storetest"
)

func newFixture(t *testing.T) (*store.Client, *storetest.Executor) {
	t.Helper()
	exec := storetest.NewExecutor()
	return store.NewClientWithHandler(exec.Exec, store.DefaultConfig(), zap.NewNop()), exec
}

func seedMembership(exec *storetest.Executor, userID, orgID uint, role model.OrgRole, status model.MembershipStatus) {
	exec.Seed("membership", query.Record{
		"user_id":         userID,
		"organization_id": orgID,
		"role":            string(role),
		"status":          string(status),
	})
}

func TestCheckRequiresAuthentication(t *testing.T) {
	client, _ := newFixture(t)
	checker := NewMemberChecker(client)

	_, err := checker.Check(context.Background(), 0, 1)
	assert.True(t, apperr.Is(err, apperr.CodeAuthenticationRequired))
}

func TestCheckRequiresOrganization(t *testing.T) {
	client, _ := newFixture(t)
	checker := NewMemberChecker(client)

	_, err := checker.Check(context.Background(), 1, 0)
	assert.True(t, apperr.Is(err, apperr.CodeBadRequest))
}

func TestCheckNonMemberForbidden(t *testing.T) {
	client, _ := newFixture(t)
	checker := NewMemberChecker(client)

	_, err := checker.Check(context.Background(), 1, 1)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}

func TestCheckRemovedMemberForbidden(t *testing.T) {
	client, exec := newFixture(t)
	exec.Seed("membership", query.Record{
		"user_id":         uint(1),
		"organization_id": uint(1),
		"role":            "MEMBER",
		"status":          "ACCEPTED",
		"deleted_at":      time.Now(),
	})
	checker := NewMemberChecker(client)

	_, err := checker.Check(context.Background(), 1, 1)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}

func TestCheckPendingInvitationForbidden(t *testing.T) {
	client, exec := newFixture(t)
	seedMembership(exec, 1, 1, model.RoleMember, model.StatusPending)
	checker := NewMemberChecker(client)

	_, err := checker.Check(context.Background(), 1, 1)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
	assert.Contains(t, apperr.Message(err), "pending invitation")
}

func TestCheckRoleGate(t *testing.T) {
	client, exec := newFixture(t)
	seedMembership(exec, 1, 1, model.RoleMember, model.StatusAccepted)
	checker := NewMemberChecker(client)

	_, err := checker.Check(context.Background(), 1, 1, model.RoleAdmin, model.RoleOwner)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	m, err := checker.Check(context.Background(), 1, 1, model.RoleMember, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, m.Role)
}

func TestCheckAcceptedMemberPasses(t *testing.T) {
	client, exec := newFixture(t)
	seedMembership(exec, 1, 7, model.RoleOwner, model.StatusAccepted)
	checker := NewMemberChecker(client)

	m, err := checker.Check(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), m.OrganizationID)
	assert.Equal(t, model.RoleOwner, m.Role)
	assert.Equal(t, model.StatusAccepted, m.Status)
}
