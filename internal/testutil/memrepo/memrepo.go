// Package memrepo - хранилище в памяти для тестов сервисов и обработчиков.
// Повторяет поведение Postgres-репозиториев: ошибки NotFound и Conflict,
// условные обновления с repository.ErrStale.
package memrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"
)

// Store хранит все сущности под одним мьютексом.
type Store struct {
	mu        sync.Mutex
	users     map[string]models.User
	vendors   map[string]models.Vendor
	contracts map[string]models.Contract
	tenders   map[string]models.Tender
	bids      map[string]models.Bid
	workflows map[string]models.ApprovalWorkflow
	stages    map[string][]models.ApprovalStage
	// seq - порядок создания маршрутов, время создания может совпадать.
	seq map[string]int
}

// New создает пустое хранилище.
func New() *Store {
	return &Store{
		users:     make(map[string]models.User),
		vendors:   make(map[string]models.Vendor),
		contracts: make(map[string]models.Contract),
		tenders:   make(map[string]models.Tender),
		bids:      make(map[string]models.Bid),
		workflows: make(map[string]models.ApprovalWorkflow),
		stages:    make(map[string][]models.ApprovalStage),
		seq:       make(map[string]int),
	}
}

var (
	_ repository.UserRepository     = (*Store)(nil)
	_ repository.WorkflowRepository = (*Store)(nil)
)

// Users возвращает репозиторий пользователей.
func (s *Store) Users() repository.UserRepository { return s }

// Vendors возвращает репозиторий поставщиков.
func (s *Store) Vendors() repository.VendorRepository { return vendorRepo{s} }

// Contracts возвращает репозиторий контрактов.
func (s *Store) Contracts() repository.ContractRepository { return contractRepo{s} }

// Tenders возвращает репозиторий тендеров.
func (s *Store) Tenders() repository.TenderRepository { return tenderRepo{s} }

// Bids возвращает репозиторий предложений.
func (s *Store) Bids() repository.BidRepository { return bidRepo{s} }

// Workflows возвращает репозиторий маршрутов.
func (s *Store) Workflows() repository.WorkflowRepository { return s }

func paginate[T any](items []T, page models.Page) *models.ListResult[T] {
	total := len(items)
	start := min(page.Offset, total)
	end := total
	if page.Limit > 0 {
		end = min(start+page.Limit, total)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return &models.ListResult[T]{Items: out, Total: total}
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return models.Conflict("username or email already exists")
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, models.NotFound("user %s not found", userID)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, models.NotFound("user %s not found", email)
}

func (s *Store) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return models.NotFound("user %s not found", user.ID)
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) ListUsers(_ context.Context, page models.Page) (*models.ListResult[models.User], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return paginate(users, page), nil
}

func (s *Store) FindApprover(_ context.Context, role models.UserRole, department string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.User
	for _, u := range s.users {
		if u.Role != role || u.Department != department || !u.IsActive {
			continue
		}
		if found == nil || u.CreatedAt.Before(found.CreatedAt) {
			u := u
			found = &u
		}
	}
	return found, nil
}

// ---- vendors ----

type vendorRepo struct{ *Store }

func (r vendorRepo) CreateVendor(_ context.Context, vendor *models.Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.vendors {
		if v.Email == vendor.Email {
			return models.Conflict("vendor with email %s already exists", vendor.Email)
		}
	}
	r.vendors[vendor.ID] = *vendor
	return nil
}

func (r vendorRepo) GetVendor(_ context.Context, vendorID string) (*models.Vendor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vendors[vendorID]
	if !ok {
		return nil, models.NotFound("vendor %s not found", vendorID)
	}
	return &v, nil
}

func (r vendorRepo) UpdateVendor(_ context.Context, vendor *models.Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vendors[vendor.ID]; !ok {
		return models.NotFound("vendor %s not found", vendor.ID)
	}
	for _, v := range r.vendors {
		if v.ID != vendor.ID && v.Email == vendor.Email {
			return models.Conflict("vendor with email %s already exists", vendor.Email)
		}
	}
	r.vendors[vendor.ID] = *vendor
	return nil
}

func (r vendorRepo) DeleteVendor(_ context.Context, vendorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vendors[vendorID]; !ok {
		return models.NotFound("vendor %s not found", vendorID)
	}
	for _, b := range r.bids {
		if b.VendorID == vendorID {
			return models.Conflict("vendor %s has bids and cannot be deleted", vendorID)
		}
	}
	delete(r.vendors, vendorID)
	return nil
}

func (r vendorRepo) CountDependents(_ context.Context, vendorID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, b := range r.bids {
		if b.VendorID == vendorID {
			count++
		}
	}
	return count, nil
}

func (r vendorRepo) ListVendors(_ context.Context, filter models.VendorFilter) (*models.ListResult[models.Vendor], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var vendors []models.Vendor
	for _, v := range r.vendors {
		if len(filter.Status) > 0 && !utils.Contains(filter.Status, v.Status) {
			continue
		}
		if filter.CompanyName != "" && !strings.Contains(strings.ToLower(v.CompanyName), strings.ToLower(filter.CompanyName)) {
			continue
		}
		vendors = append(vendors, v)
	}
	sort.Slice(vendors, func(i, j int) bool { return vendors[i].CompanyName < vendors[j].CompanyName })
	return paginate(vendors, filter.Page), nil
}

func (r vendorRepo) BidStatusCounts(_ context.Context, vendorID string) (map[models.BidStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[models.BidStatus]int)
	for _, b := range r.bids {
		if b.VendorID == vendorID {
			counts[b.Status]++
		}
	}
	return counts, nil
}

// ---- contracts ----

type contractRepo struct{ *Store }

func (r contractRepo) CreateContract(_ context.Context, contract *models.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contracts {
		if c.ContractNumber == contract.ContractNumber {
			return models.Conflict("contract number %s already exists", contract.ContractNumber)
		}
	}
	r.contracts[contract.ID] = *contract
	return nil
}

func (r contractRepo) GetContract(_ context.Context, contractID string) (*models.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[contractID]
	if !ok {
		return nil, models.NotFound("contract %s not found", contractID)
	}
	return &c, nil
}

func (r contractRepo) UpdateContract(_ context.Context, contract *models.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.contracts[contract.ID]
	if !ok || current.Status != models.DraftContract {
		return repository.ErrStale
	}
	for _, c := range r.contracts {
		if c.ID != contract.ID && c.ContractNumber == contract.ContractNumber {
			return models.Conflict("contract number %s already exists", contract.ContractNumber)
		}
	}
	updated := *contract
	updated.Status = current.Status
	r.contracts[contract.ID] = updated
	return nil
}

func (r contractRepo) UpdateContractStatus(_ context.Context, contractID string, from, to models.ContractStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[contractID]
	if !ok || c.Status != from {
		return repository.ErrStale
	}
	c.Status = to
	c.UpdatedAt = time.Now().UTC()
	r.contracts[contractID] = c
	return nil
}

func (r contractRepo) DeleteContract(_ context.Context, contractID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contracts[contractID]; !ok {
		return models.NotFound("contract %s not found", contractID)
	}
	delete(r.contracts, contractID)
	return nil
}

func (r contractRepo) CountDependents(context.Context, string) (int, error) {
	return 0, nil
}

func (r contractRepo) ListContracts(_ context.Context, filter models.ContractFilter) (*models.ListResult[models.Contract], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var contracts []models.Contract
	for _, c := range r.contracts {
		if len(filter.Status) > 0 && !utils.Contains(filter.Status, c.Status) {
			continue
		}
		if len(filter.Type) > 0 && !utils.Contains(filter.Type, c.Type) {
			continue
		}
		if filter.EndsBefore != nil && (c.EndDate == nil || c.EndDate.After(*filter.EndsBefore)) {
			continue
		}
		contracts = append(contracts, c)
	}
	sort.Slice(contracts, func(i, j int) bool { return contracts[i].CreatedAt.After(contracts[j].CreatedAt) })
	return paginate(contracts, filter.Page), nil
}

func (r contractRepo) ContractStats(context.Context) (*models.ContractStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.ContractStats{
		ByStatus: make(map[models.ContractStatus]int),
		ByType:   make(map[models.ContractType]int),
	}
	for _, c := range r.contracts {
		stats.Total++
		stats.ByStatus[c.Status]++
		stats.ByType[c.Type]++
		if c.Value != nil {
			stats.TotalValue += *c.Value
		}
	}
	stats.Active = stats.ByStatus[models.ActiveContract]
	stats.PendingApproval = stats.ByStatus[models.PendingApprovalContract]
	return stats, nil
}

// ---- tenders ----

type tenderRepo struct{ *Store }

func (r tenderRepo) CreateTender(_ context.Context, tender *models.Tender) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenders {
		if t.TenderNumber == tender.TenderNumber {
			return models.Conflict("tender number %s already exists", tender.TenderNumber)
		}
	}
	r.tenders[tender.ID] = *tender
	return nil
}

func (r tenderRepo) GetTender(_ context.Context, tenderID string) (*models.Tender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenders[tenderID]
	if !ok {
		return nil, models.NotFound("tender %s not found", tenderID)
	}
	return &t, nil
}

func (r tenderRepo) UpdateTender(_ context.Context, tender *models.Tender, expect models.TenderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tenders[tender.ID]
	if !ok || current.Status != expect {
		return repository.ErrStale
	}
	for _, t := range r.tenders {
		if t.ID != tender.ID && t.TenderNumber == tender.TenderNumber {
			return models.Conflict("tender number %s already exists", tender.TenderNumber)
		}
	}
	updated := *tender
	updated.Status = current.Status
	r.tenders[tender.ID] = updated
	return nil
}

func (r tenderRepo) UpdateTenderStatus(_ context.Context, tenderID string, from, to models.TenderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenders[tenderID]
	if !ok || t.Status != from {
		return repository.ErrStale
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	r.tenders[tenderID] = t
	return nil
}

func (r tenderRepo) DeleteTender(_ context.Context, tenderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenders[tenderID]; !ok {
		return models.NotFound("tender %s not found", tenderID)
	}
	for _, b := range r.bids {
		if b.TenderID == tenderID {
			return models.Conflict("tender %s has bids and cannot be deleted", tenderID)
		}
	}
	delete(r.tenders, tenderID)
	return nil
}

func (r tenderRepo) CountDependents(_ context.Context, tenderID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, b := range r.bids {
		if b.TenderID == tenderID {
			count++
		}
	}
	return count, nil
}

func (r tenderRepo) ListTenders(_ context.Context, filter models.TenderFilter) (*models.ListResult[models.Tender], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tenders []models.Tender
	for _, t := range r.tenders {
		if len(filter.Status) > 0 && !utils.Contains(filter.Status, t.Status) {
			continue
		}
		if filter.StartsAfter != nil && (t.StartDate == nil || t.StartDate.Before(*filter.StartsAfter)) {
			continue
		}
		if filter.EndsBefore != nil && (t.EndDate == nil || t.EndDate.After(*filter.EndsBefore)) {
			continue
		}
		tenders = append(tenders, t)
	}
	sort.Slice(tenders, func(i, j int) bool { return tenders[i].CreatedAt.After(tenders[j].CreatedAt) })
	return paginate(tenders, filter.Page), nil
}

// ---- bids ----

type bidRepo struct{ *Store }

func (r bidRepo) CreateBid(_ context.Context, bid *models.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, tenderOK := r.tenders[bid.TenderID]
	_, vendorOK := r.vendors[bid.VendorID]
	if !tenderOK || !vendorOK {
		return models.NotFound("tender %s or vendor %s not found", bid.TenderID, bid.VendorID)
	}
	for _, b := range r.bids {
		if b.TenderID == bid.TenderID && b.VendorID == bid.VendorID {
			return models.Conflict("vendor %s has already submitted a bid for tender %s", bid.VendorID, bid.TenderID)
		}
	}
	r.bids[bid.ID] = *bid
	return nil
}

func (r bidRepo) GetBid(_ context.Context, bidID string) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bids[bidID]
	if !ok {
		return nil, models.NotFound("bid %s not found", bidID)
	}
	return &b, nil
}

func (r bidRepo) UpdateBid(_ context.Context, bid *models.Bid, expect models.BidStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.bids[bid.ID]
	if !ok || current.Status != expect {
		return repository.ErrStale
	}
	r.bids[bid.ID] = *bid
	return nil
}

func (r bidRepo) DeleteBid(_ context.Context, bidID string, expect models.BidStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.bids[bidID]
	if !ok || current.Status != expect {
		return repository.ErrStale
	}
	delete(r.bids, bidID)
	return nil
}

func (r bidRepo) ListBids(_ context.Context, filter models.BidFilter) (*models.ListResult[models.Bid], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var bids []models.Bid
	for _, b := range r.bids {
		if len(filter.Status) > 0 && !utils.Contains(filter.Status, b.Status) {
			continue
		}
		if filter.TenderID != "" && b.TenderID != filter.TenderID {
			continue
		}
		if filter.VendorID != "" && b.VendorID != filter.VendorID {
			continue
		}
		bids = append(bids, b)
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })
	return paginate(bids, filter.Page), nil
}

// ---- workflows ----

func (s *Store) CreateWorkflow(_ context.Context, workflow *models.ApprovalWorkflow, stages []models.ApprovalStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[workflow.ID] = *workflow
	s.seq[workflow.ID] = len(s.seq)
	s.stages[workflow.ID] = append([]models.ApprovalStage(nil), stages...)
	return nil
}

func (s *Store) GetWorkflow(_ context.Context, workflowID string) (*models.ApprovalWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workflows[workflowID]
	if !ok {
		return nil, models.NotFound("approval workflow %s not found", workflowID)
	}
	return &w, nil
}

func (s *Store) ListEntityWorkflows(_ context.Context, entityType models.EntityType, entityID string) ([]models.ApprovalWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var workflows []models.ApprovalWorkflow
	for _, w := range s.workflows {
		if w.EntityType == entityType && w.EntityID == entityID {
			workflows = append(workflows, w)
		}
	}
	sort.Slice(workflows, func(i, j int) bool { return s.seq[workflows[i].ID] < s.seq[workflows[j].ID] })
	return workflows, nil
}

func (s *Store) GetStages(_ context.Context, workflowID string) ([]models.ApprovalStage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ApprovalStage(nil), s.stages[workflowID]...), nil
}

func (s *Store) ApplyDecision(_ context.Context, d models.StageDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workflows[d.WorkflowID]
	if !ok || w.Status != d.ExpectStatus || w.CurrentStage != d.ExpectStage {
		return repository.ErrStale
	}
	stages := s.stages[d.WorkflowID]
	idx := -1
	for i := range stages {
		if stages[i].StageNumber == d.StageNumber && stages[i].Status == models.PendingStage {
			idx = i
		}
	}
	if idx < 0 {
		return repository.ErrStale
	}

	decidedAt := d.DecidedAt
	stages[idx].Status = d.StageStatus
	stages[idx].ApprovedAt = &decidedAt
	stages[idx].Comments = d.Comments
	stages[idx].UpdatedAt = decidedAt

	w.CurrentStage = d.NextStage
	w.Status = d.NextStatus
	w.UpdatedAt = decidedAt
	s.workflows[d.WorkflowID] = w
	return nil
}

func (s *Store) CancelWorkflow(_ context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workflows[workflowID]
	if !ok || w.Status != models.PendingWorkflow {
		return repository.ErrStale
	}
	now := time.Now().UTC()
	w.Status = models.CancelledWorkflow
	w.UpdatedAt = now
	s.workflows[workflowID] = w
	for i := range s.stages[workflowID] {
		stage := &s.stages[workflowID][i]
		if stage.Status == models.PendingStage {
			stage.Status = models.SkippedStage
			stage.UpdatedAt = now
		}
	}
	return nil
}

func (s *Store) ReassignStage(_ context.Context, workflowID string, stageNumber int, approverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workflows[workflowID]
	if !ok || w.Status != models.PendingWorkflow {
		return repository.ErrStale
	}
	for i := range s.stages[workflowID] {
		stage := &s.stages[workflowID][i]
		if stage.StageNumber == stageNumber && stage.Status == models.PendingStage {
			id := approverID
			stage.ApproverID = &id
			stage.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return repository.ErrStale
}

func (s *Store) ListPendingForApprover(_ context.Context, approverID string, page models.Page) ([]models.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []models.PendingApproval
	for _, w := range s.workflows {
		if w.Status != models.PendingWorkflow {
			continue
		}
		for _, stage := range s.stages[w.ID] {
			if stage.StageNumber == w.CurrentStage && stage.Status == models.PendingStage &&
				stage.ApproverID != nil && *stage.ApproverID == approverID {
				pending = append(pending, models.PendingApproval{Workflow: w, Stage: stage})
			}
		}
	}
	sort.Slice(pending, func(i, j int) bool { return s.seq[pending[i].Workflow.ID] < s.seq[pending[j].Workflow.ID] })
	return paginate(pending, page).Items, nil
}
