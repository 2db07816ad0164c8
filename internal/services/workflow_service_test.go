package services

import (
	"sync"
	"testing"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStagePlan(t *testing.T) {
	policy := models.DefaultApprovalPolicy()
	roles := func(plan models.StagePlan) []models.UserRole {
		var out []models.UserRole
		for i, stage := range plan.Stages {
			assert.Equal(t, i+1, stage.StageNumber)
			out = append(out, stage.ApproverRole)
		}
		return out
	}

	tests := []struct {
		name      string
		entity    models.EntityType
		value     *float64
		wantKind  models.PlanKind
		wantTier  string
		wantRoles []models.UserRole
	}{
		{name: "no value", entity: models.ContractEntity, wantKind: models.NoWorkflow},
		{name: "small", entity: models.ContractEntity, value: ptr(50000.0), wantKind: models.StagedWorkflow, wantTier: "base",
			wantRoles: []models.UserRole{models.RoleManager}},
		{name: "exactly medium threshold", entity: models.ContractEntity, value: ptr(100000.0), wantKind: models.StagedWorkflow, wantTier: "base",
			wantRoles: []models.UserRole{models.RoleManager}},
		{name: "medium", entity: models.ContractEntity, value: ptr(100000.01), wantKind: models.StagedWorkflow, wantTier: "medium",
			wantRoles: []models.UserRole{models.RoleManager, models.RoleFinanceManager}},
		{name: "exactly high threshold", entity: models.ContractEntity, value: ptr(1000000.0), wantKind: models.StagedWorkflow, wantTier: "medium",
			wantRoles: []models.UserRole{models.RoleManager, models.RoleFinanceManager}},
		{name: "high", entity: models.ContractEntity, value: ptr(2000000.0), wantKind: models.StagedWorkflow, wantTier: "high",
			wantRoles: []models.UserRole{models.RoleManager, models.RoleFinanceManager, models.RoleDirector}},
		{name: "tender never qualifies", entity: models.TenderEntity, value: ptr(5000000.0), wantKind: models.NoWorkflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := BuildStagePlan(policy, tt.entity, tt.value)
			assert.Equal(t, tt.wantKind, plan.Kind)
			assert.Equal(t, tt.wantTier, plan.Tier)
			assert.Equal(t, tt.wantRoles, roles(plan))
		})
	}
}

func TestBuildStagePlan_CustomPolicy(t *testing.T) {
	policy := models.NewApprovalPolicy(10, 20, 30)

	assert.Len(t, BuildStagePlan(policy, models.ContractEntity, ptr(25.0)).Stages, 2)
	assert.Len(t, BuildStagePlan(policy, models.ContractEntity, ptr(31.0)).Stages, 3)
	assert.True(t, RequiresWorkflow(policy, models.ContractEntity, ptr(11.0)))
	assert.False(t, RequiresWorkflow(policy, models.ContractEntity, ptr(10.0)))
	assert.False(t, RequiresWorkflow(policy, models.ContractEntity, nil))
	assert.False(t, RequiresWorkflow(policy, models.TenderEntity, ptr(1000.0)))
}

func TestApproverResolver(t *testing.T) {
	f := newFixture(t)
	resolver := NewApproverResolver(f.store.Users(), zerolog.Nop())

	id := resolver.Resolve(f.ctx, models.RoleFinanceManager, department)
	require.NotNil(t, id)
	assert.Equal(t, f.finance.ID, *id)

	assert.Nil(t, resolver.Resolve(f.ctx, models.RoleFinanceManager, "legal"))
	assert.Nil(t, resolver.Resolve(f.ctx, models.RoleVendor, department))
}

func TestWorkflowService_CreateWorkflow(t *testing.T) {
	f := newFixture(t)

	details, err := f.workflows.CreateWorkflow(f.ctx, models.ContractEntity, "contract-1", ptr(2000000.0), department)
	require.NoError(t, err)
	require.NotNil(t, details)

	wf := details.Workflow
	assert.Equal(t, models.PendingWorkflow, wf.Status)
	assert.Equal(t, 1, wf.CurrentStage)
	assert.Equal(t, 3, wf.TotalStages)

	require.Len(t, details.Stages, 3)
	wantApprovers := []string{f.manager.ID, f.finance.ID, f.director.ID}
	for i, stage := range details.Stages {
		assert.Equal(t, i+1, stage.StageNumber)
		assert.Equal(t, models.PendingStage, stage.Status)
		require.NotNil(t, stage.ApproverID)
		assert.Equal(t, wantApprovers[i], *stage.ApproverID)
	}

	t.Run("no workflow without value", func(t *testing.T) {
		details, err := f.workflows.CreateWorkflow(f.ctx, models.ContractEntity, "contract-2", nil, department)
		require.NoError(t, err)
		assert.Nil(t, details)
	})

	t.Run("unresolved approver keeps stage", func(t *testing.T) {
		details, err := f.workflows.CreateWorkflow(f.ctx, models.ContractEntity, "contract-3", ptr(500000.0), "legal")
		require.NoError(t, err)
		require.Len(t, details.Stages, 2)
		for _, stage := range details.Stages {
			assert.True(t, stage.Unresolved())
		}
	})

	t.Run("unknown entity type", func(t *testing.T) {
		_, err := f.workflows.CreateWorkflow(f.ctx, "invoice", "x", ptr(1.0), department)
		assert.True(t, models.IsKind(err, models.KindValidationFailed))
	})
}

func TestWorkflowService_DecideAdvancesThenApproves(t *testing.T) {
	f := newFixture(t)
	created, err := f.workflows.CreateWorkflow(f.ctx, models.ContractEntity, "contract-1", ptr(500000.0), department)
	require.NoError(t, err)
	wfID := created.Workflow.ID

	details, err := f.workflows.Decide(f.ctx, f.manager, wfID, 1, models.DecisionRequest{Decision: models.Approve})
	require.NoError(t, err)
	assert.Equal(t, 2, details.Workflow.CurrentStage)
	assert.Equal(t, models.PendingWorkflow, details.Workflow.Status)
	assert.Equal(t, models.ApprovedStage, details.Stages[0].Status)
	assert.NotNil(t, details.Stages[0].ApprovedAt)
	assert.Equal(t, models.PendingStage, details.Stages[1].Status)

	details, err = f.workflows.Decide(f.ctx, f.finance, wfID, 2, models.DecisionRequest{Decision: models.Approve, Comments: ptr("ok")})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovedWorkflow, details.Workflow.Status)
	assert.Equal(t, models.ApprovedStage, details.Stages[1].Status)
	assert.Equal(t, "ok", *details.Stages[1].Comments)

	assert.Equal(t, []notify.EventKind{notify.StageDecided, notify.StageDecided, notify.WorkflowFinished}, f.notifier.kinds())
}

func TestWorkflowService_DecideGuards(t *testing.T) {
	f := newFixture(t)
	created, err := f.workflows.CreateWorkflow(f.ctx, models.ContractEntity, "contract-1", ptr(2000000.0), department)
	require.NoError(t, err)
	wfID := created.Workflow.ID

	t.Run("stage is not current", func(t *testing.T) {
		for _, decision := range []models.Decision{models.Approve, models.Reject} {
			_, err := f.workflows.Decide(f.ctx, f.admin, wfID, 2, models.DecisionRequest{Decision: decision})
			assert.True(t, models.IsKind(err, models.KindInvalidTransition), "decision %s", decision)
		}
	})

	t.Run("missing workflow", func(t *testing.T) {
		_, err := f.workflows.Decide(f.ctx, f.admin, "missing", 1, models.DecisionRequest{Decision: models.Approve})
		assert.True(t, models.IsKind(err, models.KindNotFound))
	})

	t.Run("missing stage", func(t *testing.T) {
		_, err := f.workflows.Decide(f.ctx, f.admin, wfID, 7, models.DecisionRequest{Decision: models.Approve})
		assert.True(t, models.IsKind(err, models.KindNotFound))
	})

	t.Run("unknown decision", func(t *testing.T) {
		_, err := f.workflows.Decide(f.ctx, f.admin, wfID, 1, models.DecisionRequest{Decision: "maybe"})
		assert.True(t, models.IsKind(err, models.KindValidationFailed))
	})

	t.Run("not the approver", func(t *testing.T) {
		_, err := f.workflows.Decide(f.ctx, f.director, wfID, 1, models.DecisionRequest{Decision: models.Approve})
		assert.True(t, models.IsKind(err, models.KindUnauthorized))
	})

	t.Run("admin may decide for anyone", func(t *testing.T) {
		details, err := f.workflows.Decide(f.ctx, f.admin, wfID, 1, models.DecisionRequest{Decision: models.Approve})
		require.NoError(t, err)
		assert.Equal(t, 2, details.Workflow.CurrentStage)
	})

	t.Run("decided stage", func(t *testing.T) {
		_, err := f.workflows.Decide(f.ctx, f.admin, wfID, 1, models.DecisionRequest{Decision: models.Approve})
		assert.True(t, models.IsKind(err, models.KindInvalidTransition))
	})

	t.Run("terminal workflow", func(t *testing.T) {
		_, err := f.workflows.Decide(f.ctx, f.finance, wfID, 2, models.DecisionRequest{Decision: models.Reject})
		require.NoError(t, err)
		_, err = f.workflows.Decide(f.ctx, f.admin, wfID, 3, models.DecisionRequest{Decision: models.Approve})
		assert.True(t, models.IsKind(err, models.KindInvalidTransition))
	})
}

func TestWorkflowService_ConcurrentDecide(t *testing.T) {
	f := newFixture(t)
	created, err := f.workflows.CreateWorkflow(f.ctx, models.ContractEntity, "contract-1", ptr(500000.0), department)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.workflows.Decide(f.ctx, f.admin, created.Workflow.ID, 1, models.DecisionRequest{Decision: models.Approve})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, models.IsKind(err, models.KindInvalidTransition))
	}
	assert.Equal(t, 1, succeeded)

	details, err := f.workflows.GetWorkflow(f.ctx, created.Workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, details.Workflow.CurrentStage)
}

func TestWorkflowService_Cancel(t *testing.T) {
	f := newFixture(t)
	created, err := f.workflows.CreateWorkflow(f.ctx, models.ContractEntity, "contract-1", ptr(2000000.0), department)
	require.NoError(t, err)
	wfID := created.Workflow.ID

	_, err = f.workflows.Decide(f.ctx, f.manager, wfID, 1, models.DecisionRequest{Decision: models.Approve})
	require.NoError(t, err)

	_, err = f.workflows.Cancel(f.ctx, f.employee, wfID)
	assert.True(t, models.IsKind(err, models.KindUnauthorized))

	details, err := f.workflows.Cancel(f.ctx, f.manager, wfID)
	require.NoError(t, err)
	assert.Equal(t, models.CancelledWorkflow, details.Workflow.Status)
	assert.Equal(t, models.ApprovedStage, details.Stages[0].Status)
	assert.Equal(t, models.SkippedStage, details.Stages[1].Status)
	assert.Equal(t, models.SkippedStage, details.Stages[2].Status)

	_, err = f.workflows.Cancel(f.ctx, f.manager, wfID)
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))
}

func TestWorkflowService_ReassignAndPending(t *testing.T) {
	f := newFixture(t)
	created, err := f.workflows.CreateWorkflow(f.ctx, models.ContractEntity, "contract-1", ptr(500000.0), "legal")
	require.NoError(t, err)
	wfID := created.Workflow.ID

	pending, err := f.workflows.ListPending(f.ctx, f.manager, models.Page{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.workflows.Reassign(f.ctx, f.manager, wfID, 1, models.ReassignRequest{ApproverID: f.manager.ID})
	assert.True(t, models.IsKind(err, models.KindUnauthorized))

	details, err := f.workflows.Reassign(f.ctx, f.admin, wfID, 1, models.ReassignRequest{ApproverID: f.manager.ID})
	require.NoError(t, err)
	require.NotNil(t, details.Stages[0].ApproverID)
	assert.Equal(t, f.manager.ID, *details.Stages[0].ApproverID)

	pending, err = f.workflows.ListPending(f.ctx, f.manager, models.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, wfID, pending[0].Workflow.ID)
	assert.Equal(t, 1, pending[0].Stage.StageNumber)

	_, err = f.workflows.Decide(f.ctx, f.manager, wfID, 1, models.DecisionRequest{Decision: models.Approve})
	require.NoError(t, err)

	_, err = f.workflows.Reassign(f.ctx, f.admin, wfID, 1, models.ReassignRequest{ApproverID: f.director.ID})
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))

	_, err = f.workflows.Reassign(f.ctx, f.admin, wfID, 9, models.ReassignRequest{ApproverID: f.director.ID})
	assert.True(t, models.IsKind(err, models.KindNotFound))
}
