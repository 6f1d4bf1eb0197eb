package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	contactModel "crm-backend/internal/domains/contact/model"
	contactRepo "crm-backend/internal/domains/contact/repository"
	customerModel "crm-backend/internal/domains/customer/model"
	customerRepo "crm-backend/internal/domains/customer/repository"
	energyModel "crm-backend/internal/domains/energy/model"
	energyRepo "crm-backend/internal/domains/energy/repository"
	"crm-backend/internal/domains/importer/model"
)

// In-memory fakes for the persistence and infrastructure ports. The unit of
// work fake snapshots state before a batch and restores it on error, which
// mirrors the rollback behavior the processor relies on.

type fakeCustomerRepo struct {
	customers  []*customerModel.Customer
	siretCalls int
	nameCalls  int
}

func (r *fakeCustomerRepo) FindBySiret(_ context.Context, siret string) (*customerModel.Customer, error) {
	r.siretCalls++
	for _, c := range r.customers {
		if c.Siret != nil && *c.Siret == siret {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) FindByName(_ context.Context, name string) (*customerModel.Customer, error) {
	r.nameCalls++
	for _, c := range r.customers {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) Create(_ context.Context, c *customerModel.Customer) error {
	clone := *c
	r.customers = append(r.customers, &clone)
	return nil
}

func (r *fakeCustomerRepo) Update(_ context.Context, c *customerModel.Customer) error {
	for i, existing := range r.customers {
		if existing.ID == c.ID {
			clone := *c
			r.customers[i] = &clone
			return nil
		}
	}
	return nil
}

type fakeContactRepo struct {
	contacts []*contactModel.Contact
}

func (r *fakeContactRepo) FindByEmail(_ context.Context, email string) (*contactModel.Contact, error) {
	for _, c := range r.contacts {
		if c.Email != nil && strings.EqualFold(*c.Email, email) {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeContactRepo) FindByFullName(_ context.Context, firstName, lastName string) (*contactModel.Contact, error) {
	for _, c := range r.contacts {
		if !strings.EqualFold(c.LastName, lastName) {
			continue
		}
		if firstName == "" && c.FirstName == nil {
			return c, nil
		}
		if c.FirstName != nil && strings.EqualFold(*c.FirstName, firstName) {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeContactRepo) Create(_ context.Context, c *contactModel.Contact) error {
	clone := *c
	r.contacts = append(r.contacts, &clone)
	return nil
}

func (r *fakeContactRepo) Update(_ context.Context, c *contactModel.Contact) error {
	for i, existing := range r.contacts {
		if existing.ID == c.ID {
			clone := *c
			r.contacts[i] = &clone
			return nil
		}
	}
	return nil
}

type fakeEnergyRepo struct {
	contracts []*energyModel.Contract
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (r *fakeEnergyRepo) FindByTriple(_ context.Context, code, contractType string, contractEnd *time.Time) (*energyModel.Contract, error) {
	for _, c := range r.contracts {
		if c.Code == code && c.Type == contractType && sameDate(c.ContractEnd, contractEnd) {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeEnergyRepo) Create(_ context.Context, c *energyModel.Contract) error {
	clone := *c
	r.contracts = append(r.contracts, &clone)
	return nil
}

func (r *fakeEnergyRepo) Update(_ context.Context, c *energyModel.Contract) error {
	for i, existing := range r.contracts {
		if existing.ID == c.ID {
			clone := *c
			r.contracts[i] = &clone
			return nil
		}
	}
	return nil
}

type fakeImportRepo struct {
	mu        sync.Mutex
	imports   map[uuid.UUID]*model.Import
	rowErrors []model.RowError
}

func newFakeImportRepo() *fakeImportRepo {
	return &fakeImportRepo{imports: make(map[uuid.UUID]*model.Import)}
}

func (r *fakeImportRepo) Create(_ context.Context, imp *model.Import) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *imp
	r.imports[imp.ID] = &clone
	return nil
}

func (r *fakeImportRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Import, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.imports[id]
	if !ok {
		return nil, model.ErrImportNotFound
	}
	clone := *imp
	return &clone, nil
}

func (r *fakeImportRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*model.Import, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Import
	for _, imp := range r.imports {
		if imp.UserID == userID {
			clone := *imp
			out = append(out, &clone)
		}
	}
	return out, len(out), nil
}

func (r *fakeImportRepo) ListAll(_ context.Context, limit, offset int) ([]*model.Import, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Import
	for _, imp := range r.imports {
		clone := *imp
		out = append(out, &clone)
	}
	return out, len(out), nil
}

func (r *fakeImportRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.imports[id]; !ok {
		return model.ErrImportNotFound
	}
	delete(r.imports, id)
	return nil
}

func (r *fakeImportRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.Status) (bool, error) {
	if !model.CanTransition(from, to) {
		return false, model.TransitionError(from, to)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.imports[id]
	if !ok || imp.Status != from {
		return false, nil
	}
	imp.Status = to

	now := time.Now()
	if (to == model.StatusAnalyzing || to == model.StatusProcessing) && imp.StartedAt == nil {
		imp.StartedAt = &now
	}
	if to.IsTerminal() {
		imp.CompletedAt = &now
	}
	return true, nil
}

func (r *fakeImportRepo) SetAnalysisResult(_ context.Context, id uuid.UUID, impact *model.AnalysisImpact) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.imports[id]
	if !ok || imp.Status != model.StatusAnalyzing {
		return false, nil
	}

	payload, err := json.Marshal(impact)
	if err != nil {
		return false, err
	}
	imp.Analysis = payload
	fileRows, totalRows := impact.FileRows, impact.TotalRows
	imp.FileRows = &fileRows
	imp.TotalRows = &totalRows
	imp.ProcessedRows = 0
	imp.SuccessRows = 0
	imp.ErrorRows = 0
	imp.Status = model.StatusAwaitingConfirmation
	return true, nil
}

func (r *fakeImportRepo) AddProgress(_ context.Context, id uuid.UUID, processed, success, errorCount int) (int, *int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.imports[id]
	if !ok {
		return 0, nil, model.ErrImportNotFound
	}
	imp.ProcessedRows += processed
	imp.SuccessRows += success
	imp.ErrorRows += errorCount

	if imp.TotalRows == nil {
		return imp.ProcessedRows, nil, nil
	}
	total := *imp.TotalRows
	return imp.ProcessedRows, &total, nil
}

func (r *fakeImportRepo) AppendRowErrors(_ context.Context, importID uuid.UUID, rowErrors []model.RowError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rowErrors = append(r.rowErrors, rowErrors...)
	return nil
}

func (r *fakeImportRepo) ListRowErrors(_ context.Context, importID uuid.UUID, limit, offset int) ([]model.RowError, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.RowError
	for _, re := range r.rowErrors {
		if re.ImportID == importID {
			out = append(out, re)
		}
	}
	return out, len(out), nil
}

func (r *fakeImportRepo) ListStaleTerminal(_ context.Context, cutoff time.Time) ([]*model.Import, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Import
	for _, imp := range r.imports {
		if imp.Status.IsTerminal() && imp.CompletedAt != nil && imp.CompletedAt.Before(cutoff) && imp.StoredPath != "" {
			clone := *imp
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeImportRepo) ClearStoredPath(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if imp, ok := r.imports[id]; ok {
		imp.StoredPath = ""
	}
	return nil
}

type fakeStore struct {
	customers *fakeCustomerRepo
	contacts  *fakeContactRepo
	energy    *fakeEnergyRepo
	imports   *fakeImportRepo
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers: &fakeCustomerRepo{},
		contacts:  &fakeContactRepo{},
		energy:    &fakeEnergyRepo{},
		imports:   newFakeImportRepo(),
	}
}

func (s *fakeStore) Customers() customerRepo.Repository { return s.customers }
func (s *fakeStore) Contacts() contactRepo.Repository   { return s.contacts }
func (s *fakeStore) Energy() energyRepo.Repository      { return s.energy }
func (s *fakeStore) Imports() ImportRepository          { return s.imports }

type storeSnapshot struct {
	customers []*customerModel.Customer
	contacts  []*contactModel.Contact
	contracts []*energyModel.Contract
	imports   map[uuid.UUID]model.Import
	rowErrors []model.RowError
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		customers: make([]*customerModel.Customer, len(s.customers.customers)),
		contacts:  make([]*contactModel.Contact, len(s.contacts.contacts)),
		contracts: make([]*energyModel.Contract, len(s.energy.contracts)),
		imports:   make(map[uuid.UUID]model.Import, len(s.imports.imports)),
		rowErrors: append([]model.RowError(nil), s.imports.rowErrors...),
	}
	for i, c := range s.customers.customers {
		clone := *c
		snap.customers[i] = &clone
	}
	for i, c := range s.contacts.contacts {
		clone := *c
		snap.contacts[i] = &clone
	}
	for i, c := range s.energy.contracts {
		clone := *c
		snap.contracts[i] = &clone
	}
	for id, imp := range s.imports.imports {
		snap.imports[id] = *imp
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.customers.customers = snap.customers
	s.contacts.contacts = snap.contacts
	s.energy.contracts = snap.contracts
	s.imports.rowErrors = snap.rowErrors
	s.imports.imports = make(map[uuid.UUID]*model.Import, len(snap.imports))
	for id, imp := range snap.imports {
		clone := imp
		s.imports.imports[id] = &clone
	}
}

type fakeUnitOfWork struct {
	mu    sync.Mutex // batches run one at a time so snapshot/restore stays atomic
	store *fakeStore
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{store: newFakeStore()}
}

func (u *fakeUnitOfWork) View() Store { return u.store }

func (u *fakeUnitOfWork) WithinBatch(_ context.Context, fn func(Store) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	snap := u.store.snapshot()
	if err := fn(u.store); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

type fakeDecoder struct {
	rows    []Row
	readErr error
}

func (d *fakeDecoder) TotalRows(_ context.Context, _ string) (int, error) {
	return len(d.rows), nil
}

func (d *fakeDecoder) ReadRows(_ context.Context, _ string, startRow, endRow int) ([]Row, error) {
	if d.readErr != nil {
		return nil, d.readErr
	}
	if startRow > len(d.rows) {
		return nil, nil
	}
	if endRow > len(d.rows) {
		endRow = len(d.rows)
	}
	return d.rows[startRow-1 : endRow], nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Store(_ context.Context, path string, content []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = content
	return nil
}

func (s *fakeStorage) Download(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[path], nil
}

func (s *fakeStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	s.deleted = append(s.deleted, path)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *fakeNotifier) record(call string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
	return n.err
}

func (n *fakeNotifier) NotifyAnalysisComplete(context.Context, *model.Import, *model.AnalysisImpact) error {
	return n.record("analysis_complete")
}

func (n *fakeNotifier) NotifyProcessingComplete(context.Context, *model.Import) error {
	return n.record("processing_complete")
}

func (n *fakeNotifier) NotifyFailure(context.Context, *model.Import, string) error {
	return n.record("failure")
}

func (n *fakeNotifier) NotifyCancellation(context.Context, *model.Import) error {
	return n.record("cancellation")
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (e *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (e *fakeEnqueuer) tasksOfType(taskType string) []*asynq.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*asynq.Task
	for _, t := range e.tasks {
		if t.Type() == taskType {
			out = append(out, t)
		}
	}
	return out
}
