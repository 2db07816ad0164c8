package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/auth"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notify"
	"github.com/senyabanana/procurement-service/internal/testutil/memrepo"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const department = "procurement"

type recordedEvent struct {
	Kind    notify.EventKind
	Payload map[string]interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(_ context.Context, kind notify.EventKind, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{Kind: kind, Payload: payload})
}

func (n *recordingNotifier) kinds() []notify.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]notify.EventKind, 0, len(n.events))
	for _, e := range n.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// stepClock каждый вызов сдвигает время на секунду.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memrepo.Store
	notifier *recordingNotifier
	clock    *stepClock

	workflows *WorkflowService
	contracts *ContractService
	tenders   *TenderService
	bids      *BidService
	vendors   *VendorService
	users     *UserService

	admin    models.Actor
	manager  models.Actor
	finance  models.Actor
	director models.Actor
	employee models.Actor
	supplier models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := zerolog.Nop()
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    memrepo.New(),
		notifier: &recordingNotifier{},
		clock:    &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	}

	resolver := NewApproverResolver(f.store.Users(), log)
	f.workflows = NewWorkflowService(f.store.Workflows(), resolver, models.DefaultApprovalPolicy(), f.notifier, log)
	f.contracts = NewContractService(f.store.Contracts(), f.workflows, f.notifier, log)
	f.tenders = NewTenderService(f.store.Tenders(), f.notifier, log)
	f.bids = NewBidService(f.store.Bids(), f.store.Tenders(), f.store.Vendors(), f.notifier, log, true)
	f.vendors = NewVendorService(f.store.Vendors(), log)
	f.users = NewUserService(f.store.Users(), auth.NewTokenManager("test-secret", time.Hour), log)

	f.workflows.now = f.clock.Now
	f.contracts.now = f.clock.Now
	f.tenders.now = f.clock.Now
	f.bids.now = f.clock.Now
	f.vendors.now = f.clock.Now
	f.users.now = f.clock.Now

	f.admin = f.addUser("admin", models.RoleAdmin, department)
	f.manager = f.addUser("manager", models.RoleManager, department)
	f.finance = f.addUser("finance", models.RoleFinanceManager, department)
	f.director = f.addUser("director", models.RoleDirector, department)
	f.employee = f.addUser("employee", models.RoleUser, department)
	f.supplier = f.addUser("supplier", models.RoleVendor, "")
	return f
}

func (f *fixture) addUser(username string, role models.UserRole, dept string) models.Actor {
	f.t.Helper()
	now := f.clock.Now()
	user := &models.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      username + "@example.com",
		Role:       role,
		Department: dept,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(f.t, f.store.Users().CreateUser(f.ctx, user))
	return models.Actor{ID: user.ID, Role: user.Role, Department: user.Department}
}

func (f *fixture) addContract(value *float64) *models.Contract {
	f.t.Helper()
	title := "Office supplies"
	contractType := models.ProductContract
	contract, err := f.contracts.CreateContract(f.ctx, f.employee, models.ContractRequest{
		Title: &title,
		Type:  &contractType,
		Value: value,
	})
	require.NoError(f.t, err)
	return contract
}

func (f *fixture) addTender(status models.TenderStatus, endDate *time.Time) *models.Tender {
	f.t.Helper()
	now := f.clock.Now()
	tender := &models.Tender{
		ID:           uuid.NewString(),
		TenderNumber: "TND-" + uuid.NewString(),
		Title:        "Road repair",
		Status:       status,
		EndDate:      endDate,
		CreatedBy:    f.manager.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(f.t, f.store.Tenders().CreateTender(f.ctx, tender))
	return tender
}

func (f *fixture) addVendor(owner models.Actor, status models.VendorStatus) *models.Vendor {
	f.t.Helper()
	now := f.clock.Now()
	vendor := &models.Vendor{
		ID:          uuid.NewString(),
		CompanyName: "Acme " + uuid.NewString()[:8],
		Email:       uuid.NewString()[:8] + "@acme.test",
		Status:      status,
		CreatedBy:   owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(f.t, f.store.Vendors().CreateVendor(f.ctx, vendor))
	return vendor
}

func (f *fixture) addBid(tender *models.Tender, vendor *models.Vendor) *models.Bid {
	f.t.Helper()
	bid, err := f.bids.CreateBid(f.ctx, f.supplier, models.BidRequest{
		TenderID: tender.ID,
		VendorID: vendor.ID,
		Proposal: ptr("We will do it"),
	})
	require.NoError(f.t, err)
	return bid
}

func (f *fixture) onlyWorkflow(entityID string) *models.WorkflowDetails {
	f.t.Helper()
	workflows, err := f.workflows.GetEntityWorkflows(f.ctx, models.ContractEntity, entityID)
	require.NoError(f.t, err)
	require.Len(f.t, workflows, 1)
	return &workflows[0]
}

func ptr[T any](v T) *T {
	return &v
}

func rawParties(t *testing.T, parties ...string) *json.RawMessage {
	t.Helper()
	data, err := json.Marshal(parties)
	require.NoError(t, err)
	raw := json.RawMessage(data)
	return &raw
}
