package services

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notify"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractService_CreateContract(t *testing.T) {
	f := newFixture(t)

	t.Run("small contract has no workflow", func(t *testing.T) {
		contract := f.addContract(ptr(50000.0))
		assert.Equal(t, models.DraftContract, contract.Status)
		assert.True(t, strings.HasPrefix(contract.ContractNumber, "CNTR-"))
		assert.Equal(t, models.DefaultCurrency, contract.Currency)
		assert.JSONEq(t, `[]`, string(contract.Parties))

		workflows, err := f.workflows.GetEntityWorkflows(f.ctx, models.ContractEntity, contract.ID)
		require.NoError(t, err)
		assert.Empty(t, workflows)
	})

	t.Run("medium contract gets two stages", func(t *testing.T) {
		contract := f.addContract(ptr(500000.0))
		details := f.onlyWorkflow(contract.ID)
		require.Len(t, details.Stages, 2)
		assert.Equal(t, models.RoleManager, details.Stages[0].ApproverRole)
		assert.Equal(t, models.RoleFinanceManager, details.Stages[1].ApproverRole)
	})

	t.Run("vendor cannot create", func(t *testing.T) {
		_, err := f.contracts.CreateContract(f.ctx, f.supplier, models.ContractRequest{Title: ptr("x"), Type: ptr(models.OtherContract)})
		assert.True(t, models.IsKind(err, models.KindUnauthorized))
	})

	t.Run("validation", func(t *testing.T) {
		tests := []models.ContractRequest{
			{Type: ptr(models.OtherContract)},
			{Title: ptr("x"), Type: ptr(models.ContractType("lease"))},
			{Title: ptr("x"), Type: ptr(models.OtherContract), Value: ptr(-1.0)},
			{Title: ptr("x"), Type: ptr(models.OtherContract), Parties: rawObject()},
			{Title: ptr("x"), Type: ptr(models.OtherContract), Status: ptr(models.ActiveContract)},
		}
		for _, req := range tests {
			_, err := f.contracts.CreateContract(f.ctx, f.employee, req)
			assert.True(t, models.IsKind(err, models.KindValidationFailed))
		}
	})

	t.Run("duplicate number", func(t *testing.T) {
		req := models.ContractRequest{ContractNumber: ptr("CNTR-42"), Title: ptr("x"), Type: ptr(models.ServiceContract),
			Parties: rawParties(t, "Acme", "City")}
		_, err := f.contracts.CreateContract(f.ctx, f.employee, req)
		require.NoError(t, err)
		_, err = f.contracts.CreateContract(f.ctx, f.employee, req)
		assert.True(t, models.IsKind(err, models.KindConflict))
	})

	assert.Contains(t, f.notifier.kinds(), notify.ContractCreated)
}

// Контракт на 2 000 000: этап 1 одобрен, этап 2 отклонен, этап 3 не тронут.
func TestContractService_HighValueRejectedAtSecondStage(t *testing.T) {
	f := newFixture(t)
	contract := f.addContract(ptr(2000000.0))

	details := f.onlyWorkflow(contract.ID)
	wfID := details.Workflow.ID
	assert.Equal(t, 3, details.Workflow.TotalStages)
	assert.Equal(t, 1, details.Workflow.CurrentStage)
	assert.Equal(t, models.PendingWorkflow, details.Workflow.Status)

	details, err := f.workflows.Decide(f.ctx, f.manager, wfID, 1, models.DecisionRequest{Decision: models.Approve})
	require.NoError(t, err)
	assert.Equal(t, 2, details.Workflow.CurrentStage)

	details, err = f.workflows.Decide(f.ctx, f.finance, wfID, 2, models.DecisionRequest{Decision: models.Reject, Comments: ptr("over budget")})
	require.NoError(t, err)
	assert.Equal(t, models.RejectedWorkflow, details.Workflow.Status)
	assert.Equal(t, models.RejectedStage, details.Stages[1].Status)
	assert.NotNil(t, details.Stages[1].ApprovedAt)
	assert.Equal(t, models.PendingStage, details.Stages[2].Status)
	assert.Nil(t, details.Stages[2].ApprovedAt)

	pending, err := f.workflows.ListPending(f.ctx, f.director, models.Page{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := f.contracts.GetContract(f.ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftContract, got.Status)
}

func TestContractService_SubmitAndApprove(t *testing.T) {
	f := newFixture(t)
	contract := f.addContract(ptr(50000.0))

	submitted, err := f.contracts.SubmitForApproval(f.ctx, f.employee, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PendingApprovalContract, submitted.Status)

	details := f.onlyWorkflow(contract.ID)
	require.Len(t, details.Stages, 1)
	assert.Equal(t, models.RoleManager, details.Stages[0].ApproverRole)

	_, err = f.contracts.UpdateContract(f.ctx, f.manager, contract.ID, models.ContractRequest{Status: ptr(models.ApprovedContract)})
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))

	_, err = f.workflows.Decide(f.ctx, f.manager, details.Workflow.ID, 1, models.DecisionRequest{Decision: models.Approve})
	require.NoError(t, err)

	got, err := f.contracts.GetContract(f.ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovedContract, got.Status)

	got, err = f.contracts.UpdateContract(f.ctx, f.manager, contract.ID, models.ContractRequest{Status: ptr(models.ActiveContract)})
	require.NoError(t, err)
	assert.Equal(t, models.ActiveContract, got.Status)
}

func TestContractService_SubmitReusesPendingWorkflow(t *testing.T) {
	f := newFixture(t)
	contract := f.addContract(ptr(500000.0))

	_, err := f.contracts.SubmitForApproval(f.ctx, f.employee, contract.ID)
	require.NoError(t, err)
	f.onlyWorkflow(contract.ID)
}

func TestContractService_ApprovedWhileDraft(t *testing.T) {
	f := newFixture(t)
	contract := f.addContract(ptr(500000.0))
	wfID := f.onlyWorkflow(contract.ID).Workflow.ID

	_, err := f.workflows.Decide(f.ctx, f.manager, wfID, 1, models.DecisionRequest{Decision: models.Approve})
	require.NoError(t, err)
	_, err = f.workflows.Decide(f.ctx, f.finance, wfID, 2, models.DecisionRequest{Decision: models.Approve})
	require.NoError(t, err)

	got, err := f.contracts.GetContract(f.ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovedContract, got.Status)
}

func TestContractService_RejectionReturnsToDraft(t *testing.T) {
	f := newFixture(t)
	contract := f.addContract(ptr(500000.0))
	_, err := f.contracts.SubmitForApproval(f.ctx, f.employee, contract.ID)
	require.NoError(t, err)

	wfID := f.onlyWorkflow(contract.ID).Workflow.ID
	_, err = f.workflows.Decide(f.ctx, f.manager, wfID, 1, models.DecisionRequest{Decision: models.Reject})
	require.NoError(t, err)

	got, err := f.contracts.GetContract(f.ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftContract, got.Status)

	// Повторная подача создает новый маршрут.
	_, err = f.contracts.SubmitForApproval(f.ctx, f.employee, contract.ID)
	require.NoError(t, err)
	history, err := f.contracts.History(f.ctx, contract.ID)
	require.NoError(t, err)
	require.Len(t, history.Workflows, 2)
	assert.Equal(t, models.RejectedWorkflow, history.Workflows[0].Workflow.Status)
	assert.Equal(t, models.PendingWorkflow, history.Workflows[1].Workflow.Status)
}

func TestContractService_ForwardOnlyStatus(t *testing.T) {
	f := newFixture(t)
	contract := f.addContract(nil)

	tests := []models.ContractStatus{models.ApprovedContract, models.ActiveContract, models.ExpiredContract, models.TerminatedContract}
	for _, status := range tests {
		_, err := f.contracts.UpdateContract(f.ctx, f.manager, contract.ID, models.ContractRequest{Status: ptr(status)})
		assert.True(t, models.IsKind(err, models.KindInvalidTransition), "draft -> %s", status)
	}

	// Без стоимости маршрут не нужен.
	got, err := f.contracts.SubmitForApproval(f.ctx, f.employee, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PendingApprovalContract, got.Status)
	got, err = f.contracts.UpdateContract(f.ctx, f.manager, contract.ID, models.ContractRequest{Status: ptr(models.ApprovedContract)})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovedContract, got.Status)

	_, err = f.contracts.UpdateContract(f.ctx, f.manager, contract.ID, models.ContractRequest{Status: ptr(models.DraftContract)})
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))
	_, err = f.contracts.UpdateContract(f.ctx, f.manager, contract.ID, models.ContractRequest{Title: ptr("late edit")})
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))
}

func TestContractService_UpdateDraft(t *testing.T) {
	f := newFixture(t)
	contract := f.addContract(ptr(500000.0))
	oldWorkflow := f.onlyWorkflow(contract.ID).Workflow.ID

	_, err := f.contracts.UpdateContract(f.ctx, f.supplier, contract.ID, models.ContractRequest{Title: ptr("x")})
	assert.True(t, models.IsKind(err, models.KindUnauthorized))

	got, err := f.contracts.UpdateContract(f.ctx, f.employee, contract.ID, models.ContractRequest{
		Title:   ptr("Renamed"),
		Value:   ptr(2000000.0),
		Parties: rawParties(t, "Acme"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	details, err := f.workflows.GetWorkflow(f.ctx, oldWorkflow)
	require.NoError(t, err)
	assert.Equal(t, models.CancelledWorkflow, details.Workflow.Status)

	_, err = f.contracts.SubmitForApproval(f.ctx, f.employee, contract.ID)
	require.NoError(t, err)
	latest, err := f.workflows.LatestWorkflow(f.ctx, models.ContractEntity, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.TotalStages)
}

func TestContractService_DeleteCancelsWorkflow(t *testing.T) {
	f := newFixture(t)
	contract := f.addContract(ptr(500000.0))
	wfID := f.onlyWorkflow(contract.ID).Workflow.ID

	assert.True(t, models.IsKind(f.contracts.DeleteContract(f.ctx, f.employee, contract.ID), models.KindUnauthorized))
	require.NoError(t, f.contracts.DeleteContract(f.ctx, f.manager, contract.ID))

	_, err := f.contracts.GetContract(f.ctx, contract.ID)
	assert.True(t, models.IsKind(err, models.KindNotFound))

	details, err := f.workflows.GetWorkflow(f.ctx, wfID)
	require.NoError(t, err)
	assert.Equal(t, models.CancelledWorkflow, details.Workflow.Status)

	assert.True(t, models.IsKind(f.contracts.DeleteContract(f.ctx, f.manager, contract.ID), models.KindNotFound))
}

func TestContractService_NotifyExpiring(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	addActive := func(endsIn time.Duration) string {
		end := now.Add(endsIn)
		contract := &models.Contract{
			ID:             uuid.NewString(),
			ContractNumber: "CNTR-" + uuid.NewString(),
			Title:          "Lease",
			Type:           models.ServiceContract,
			Status:         models.ActiveContract,
			Parties:        []byte(`[]`),
			EndDate:        &end,
			Currency:       models.DefaultCurrency,
			CreatedBy:      f.employee.ID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, f.store.Contracts().CreateContract(f.ctx, contract))
		return contract.ID
	}
	soon := addActive(10 * 24 * time.Hour)
	addActive(60 * 24 * time.Hour)
	addActive(-24 * time.Hour)

	_, err := f.contracts.NotifyExpiring(f.ctx, f.employee, 30*24*time.Hour)
	assert.True(t, models.IsKind(err, models.KindUnauthorized))
	assert.NotContains(t, f.notifier.kinds(), notify.ContractExpiring)

	expiring, err := f.contracts.NotifyExpiring(f.ctx, f.manager, 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, soon, expiring[0].ID)
	assert.Contains(t, f.notifier.kinds(), notify.ContractExpiring)

	_, err = f.contracts.NotifyExpiring(f.ctx, f.manager, 0)
	assert.True(t, models.IsKind(err, models.KindValidationFailed))
}

func TestContractService_Stats(t *testing.T) {
	f := newFixture(t)
	f.addContract(ptr(100.0))
	f.addContract(ptr(200.0))

	stats, err := f.contracts.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[models.DraftContract])
	assert.Equal(t, 2, stats.ByType[models.ProductContract])
	assert.InDelta(t, 300.0, stats.TotalValue, 0.001)
}

func rawObject() *json.RawMessage {
	raw := json.RawMessage(`{"a":1}`)
	return &raw
}
