package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

// mockStore is an in-memory stand-in for every repository the services
// consume.
type mockStore struct {
	mu sync.Mutex

	projects     map[uuid.UUID]*model.Project
	budgetItems  map[uuid.UUID]*model.BudgetItem
	changeOrders map[uuid.UUID]*model.ChangeOrder
	payApps      map[uuid.UUID]*model.PayApplication
	releases     map[uuid.UUID]*model.RetainageRelease
	sigRecords   map[uuid.UUID]*model.SignatureRecord
	sigRequests  map[uuid.UUID]*model.SignatureRequest
	signedFlags  map[string]bool
	auditEntries []model.AuditLogEntry

	appendAuditError error
}

func newMockStore() *mockStore {
	return &mockStore{
		projects:     make(map[uuid.UUID]*model.Project),
		budgetItems:  make(map[uuid.UUID]*model.BudgetItem),
		changeOrders: make(map[uuid.UUID]*model.ChangeOrder),
		payApps:      make(map[uuid.UUID]*model.PayApplication),
		releases:     make(map[uuid.UUID]*model.RetainageRelease),
		sigRecords:   make(map[uuid.UUID]*model.SignatureRecord),
		sigRequests:  make(map[uuid.UUID]*model.SignatureRequest),
		signedFlags:  make(map[string]bool),
	}
}

func (m *mockStore) addProject(original string) *model.Project {
	project := &model.Project{
		ID:               uuid.New(),
		Name:             "Riverside Office Park",
		OwnerOrgID:       uuid.New(),
		ContractorOrgID:  uuid.New(),
		OriginalContract: mustDecimal(original),
		CreatedAt:        time.Now(),
	}
	m.projects[project.ID] = project
	return project
}

func mustDecimal(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		panic(err)
	}
	return value
}

// --- ProjectRepo ---

func (m *mockStore) GetProject(_ context.Context, id uuid.UUID) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *project
	return &copied, nil
}

// --- BudgetRepo ---

func (m *mockStore) ListBudgetItems(_ context.Context, projectID uuid.UUID) ([]model.BudgetItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.BudgetItem
	for _, item := range m.budgetItems {
		if item.ProjectID == projectID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SortOrder < items[j].SortOrder })
	return items, nil
}

func (m *mockStore) GetBudgetItem(_ context.Context, id uuid.UUID) (*model.BudgetItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.budgetItems[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *mockStore) CreateBudgetItem(_ context.Context, item model.BudgetItem) (*model.BudgetItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	m.budgetItems[item.ID] = &item
	copied := item
	return &copied, nil
}

func (m *mockStore) UpdateBudgetItem(_ context.Context, item model.BudgetItem) (*model.BudgetItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.budgetItems[item.ID]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	item.UpdatedAt = time.Now()
	m.budgetItems[item.ID] = &item
	copied := item
	return &copied, nil
}

func (m *mockStore) DeleteBudgetItem(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.budgetItems[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.budgetItems, id)
	return nil
}

// --- ChangeOrderRepo ---

func (m *mockStore) ListChangeOrders(_ context.Context, projectID uuid.UUID) ([]model.ChangeOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []model.ChangeOrder
	for _, order := range m.changeOrders {
		if order.ProjectID == projectID {
			orders = append(orders, *order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].Number < orders[j].Number })
	return orders, nil
}

func (m *mockStore) GetChangeOrder(_ context.Context, id uuid.UUID) (*model.ChangeOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.changeOrders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *mockStore) CreateChangeOrder(_ context.Context, order model.ChangeOrder) (*model.ChangeOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.Number = 1
	for _, existing := range m.changeOrders {
		if existing.ProjectID == order.ProjectID && existing.Number >= order.Number {
			order.Number = existing.Number + 1
		}
	}
	m.changeOrders[order.ID] = &order
	copied := order
	return &copied, nil
}

func (m *mockStore) SetChangeOrderStatus(_ context.Context, id uuid.UUID, status model.ChangeOrderStatus, approvedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.changeOrders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Status = status
	order.ApprovedAt = approvedAt
	return nil
}

func (m *mockStore) ApprovedTotal(_ context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, order := range m.changeOrders {
		if order.ProjectID == projectID && order.Status == model.ChangeOrderStatusApproved {
			total = total.Add(order.Amount)
		}
	}
	return total, nil
}

// --- PayAppRepo ---

func (m *mockStore) GetPayApplication(_ context.Context, id uuid.UUID) (*model.PayApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.payApps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *app
	return &copied, nil
}

func (m *mockStore) ListPayApplications(_ context.Context, projectID uuid.UUID) ([]model.PayApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var apps []model.PayApplication
	for _, app := range m.payApps {
		if app.ProjectID == projectID {
			apps = append(apps, *app)
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ApplicationNumber < apps[j].ApplicationNumber })
	return apps, nil
}

func (m *mockStore) CreatePayApplication(_ context.Context, app model.PayApplication) (*model.PayApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app.ID = uuid.New()
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	app.ApplicationNumber = 1
	for _, existing := range m.payApps {
		if existing.ProjectID == app.ProjectID && existing.ApplicationNumber >= app.ApplicationNumber {
			app.ApplicationNumber = existing.ApplicationNumber + 1
		}
	}
	m.payApps[app.ID] = &app
	copied := app
	return &copied, nil
}

func (m *mockStore) UpdateSnapshot(_ context.Context, id uuid.UUID, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.payApps[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	app.Snapshot = snap
	return nil
}

func (m *mockStore) UpdateMetadata(_ context.Context, id uuid.UUID, periodFrom, periodTo time.Time, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.payApps[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	app.PeriodFrom = periodFrom
	app.PeriodTo = periodTo
	app.Notes = notes
	return nil
}

func (m *mockStore) UpdateStatus(
	_ context.Context,
	id uuid.UUID,
	status model.PayAppStatus,
	submittedAt, approvedAt, rejectedAt, paidAt *time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.payApps[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	app.Status = status
	if submittedAt != nil {
		app.SubmittedAt = submittedAt
	}
	if approvedAt != nil {
		app.ApprovedAt = approvedAt
	}
	if rejectedAt != nil {
		app.RejectedAt = rejectedAt
	}
	if paidAt != nil {
		app.PaidAt = paidAt
	}
	return nil
}

func (m *mockStore) SumPreviousCertificates(_ context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, app := range m.payApps {
		if app.ProjectID == projectID && app.CountsTowardPreviousCertificates() {
			total = total.Add(app.Snapshot.CurrentPaymentDue)
		}
	}
	return total, nil
}

// --- RetainageRepo ---

func (m *mockStore) ListReleases(_ context.Context, projectID uuid.UUID) ([]model.RetainageRelease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var releases []model.RetainageRelease
	for _, release := range m.releases {
		if release.ProjectID == projectID {
			releases = append(releases, *release)
		}
	}
	sort.Slice(releases, func(i, j int) bool { return releases[i].ReleaseDate.Before(releases[j].ReleaseDate) })
	return releases, nil
}

func (m *mockStore) GetRelease(_ context.Context, id uuid.UUID) (*model.RetainageRelease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	release, ok := m.releases[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *release
	return &copied, nil
}

func (m *mockStore) CreateRelease(_ context.Context, release model.RetainageRelease) (*model.RetainageRelease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	release.ID = uuid.New()
	release.CreatedAt = time.Now()
	m.releases[release.ID] = &release
	copied := release
	return &copied, nil
}

func (m *mockStore) DeleteRelease(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.releases[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.releases, id)
	return nil
}

func (m *mockStore) SumReleases(_ context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, release := range m.releases {
		if release.ProjectID == projectID {
			total = total.Add(release.Amount)
		}
	}
	return total, nil
}

// --- SignatureRepo ---

func (m *mockStore) UpsertRecord(_ context.Context, record model.SignatureRecord) (*model.SignatureRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sigRecords {
		if existing.DocumentType == record.DocumentType &&
			existing.DocumentID == record.DocumentID &&
			existing.Type == record.Type {
			existing.SignerName = record.SignerName
			existing.SignerTitle = record.SignerTitle
			existing.ImageData = record.ImageData
			existing.SignedAt = time.Now()
			copied := *existing
			return &copied, nil
		}
	}
	record.ID = uuid.New()
	record.SignedAt = time.Now()
	m.sigRecords[record.ID] = &record
	copied := record
	return &copied, nil
}

func (m *mockStore) GetRecord(_ context.Context, id uuid.UUID) (*model.SignatureRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.sigRecords[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (m *mockStore) DeleteRecord(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sigRecords[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.sigRecords, id)
	return nil
}

func (m *mockStore) ListRecords(_ context.Context, docType model.DocumentType, docID uuid.UUID) ([]model.SignatureRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []model.SignatureRecord
	for _, record := range m.sigRecords {
		if record.DocumentType == docType && record.DocumentID == docID {
			records = append(records, *record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].SignedAt.Before(records[j].SignedAt) })
	return records, nil
}

func (m *mockStore) CreateRequest(_ context.Context, req model.SignatureRequest) (*model.SignatureRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	m.sigRequests[req.ID] = &req
	copied := req
	return &copied, nil
}

func (m *mockStore) GetRequest(_ context.Context, id uuid.UUID) (*model.SignatureRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.sigRequests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *req
	return &copied, nil
}

func (m *mockStore) GetRequestByToken(_ context.Context, token string) (*model.SignatureRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.sigRequests {
		if req.Token == token {
			copied := *req
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStore) ListRequests(_ context.Context, docType model.DocumentType, docID uuid.UUID) ([]model.SignatureRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var requests []model.SignatureRequest
	for _, req := range m.sigRequests {
		if req.DocumentType == docType && req.DocumentID == docID {
			requests = append(requests, *req)
		}
	}
	return requests, nil
}

func (m *mockStore) MarkRequestCompleted(_ context.Context, id uuid.UUID, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.sigRequests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if req.CompletedAt == nil {
		req.CompletedAt = &completedAt
	}
	return nil
}

func (m *mockStore) MarkRequestCancelled(_ context.Context, id uuid.UUID, cancelledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.sigRequests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if req.CancelledAt == nil {
		req.CancelledAt = &cancelledAt
	}
	return nil
}

func (m *mockStore) ClaimFullySignedFlag(_ context.Context, docType model.DocumentType, docID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s/%s", docType, docID)
	if m.signedFlags[key] {
		return false, nil
	}
	m.signedFlags[key] = true
	return true, nil
}

// --- AuditRepo ---

func (m *mockStore) Append(_ context.Context, entry model.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendAuditError != nil {
		return m.appendAuditError
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	m.auditEntries = append(m.auditEntries, entry)
	return nil
}

func (m *mockStore) ListByProject(_ context.Context, projectID uuid.UUID, _ int) ([]model.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []model.AuditLogEntry
	for _, entry := range m.auditEntries {
		if entry.ProjectID == projectID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (m *mockStore) auditActions() []model.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]model.AuditAction, 0, len(m.auditEntries))
	for _, entry := range m.auditEntries {
		actions = append(actions, entry.Action)
	}
	return actions
}

// mockNotifier records dispatched intents and can be made to fail.
type mockNotifier struct {
	mu      sync.Mutex
	intents []NotificationIntent
	err     error
}

func (n *mockNotifier) Notify(_ context.Context, intent NotificationIntent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.intents = append(n.intents, intent)
	return nil
}

func (n *mockNotifier) byType(intentType NotificationType) []NotificationIntent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var matched []NotificationIntent
	for _, intent := range n.intents {
		if intent.Type == intentType {
			matched = append(matched, intent)
		}
	}
	return matched
}
