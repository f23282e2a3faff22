package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu sync.Mutex

	credentials map[string]*Credential
	orders      map[string]*Order // keyed by marketplace order id
	lines       map[int64][]*OrderLine
	payloads    []RawPayload
	inventory   map[string]*InventoryItem
	syncRuns    map[int64]*SyncRun
	nextID      int64

	// Hooks for test assertions
	UpsertOrderCalls       int
	UpsertLineCalls        int
	UpdateAccessTokenCalls int
	InventoryLookups       int
	StartSyncRunCalled     bool

	// Error injection for testing error paths
	GetCredentialErr     error
	UpsertCredentialErr  error
	UpdateAccessTokenErr error
	SaveRawPayloadErr    error
	UpsertOrderErr       error
	UpsertOrderLineErr   error
	FindInventoryErr     error
	StartSyncRunErr      error
	PingErr              error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		credentials: make(map[string]*Credential),
		orders:      make(map[string]*Order),
		lines:       make(map[int64][]*OrderLine),
		inventory:   make(map[string]*InventoryItem),
		syncRuns:    make(map[int64]*SyncRun),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Ping returns PingErr
func (m *MockRepository) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MockRepository) GetCredential(_ context.Context, principalID string) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetCredentialErr != nil {
		return nil, m.GetCredentialErr
	}
	c, ok := m.credentials[principalID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *MockRepository) UpsertCredential(_ context.Context, cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertCredentialErr != nil {
		return m.UpsertCredentialErr
	}
	copied := *cred
	if existing, ok := m.credentials[cred.PrincipalID]; ok {
		copied.ID = existing.ID
		copied.CreatedAt = existing.CreatedAt
	} else {
		copied.ID = m.id()
		copied.CreatedAt = time.Now()
	}
	copied.UpdatedAt = time.Now()
	m.credentials[cred.PrincipalID] = &copied
	return nil
}

func (m *MockRepository) UpdateAccessToken(_ context.Context, principalID, accessToken string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateAccessTokenCalls++
	if m.UpdateAccessTokenErr != nil {
		return m.UpdateAccessTokenErr
	}
	c, ok := m.credentials[principalID]
	if !ok {
		return ErrNotFound
	}
	c.AccessToken = accessToken
	c.AccessTokenExpiresAt = expiresAt
	c.UpdatedAt = time.Now()
	return nil
}

func (m *MockRepository) SaveRawPayload(_ context.Context, source string, payload []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveRawPayloadErr != nil {
		return 0, m.SaveRawPayloadErr
	}
	p := RawPayload{ID: m.id(), Source: source, Payload: append([]byte(nil), payload...), ReceivedAt: time.Now()}
	m.payloads = append(m.payloads, p)
	return p.ID, nil
}

func (m *MockRepository) GetRawPayload(_ context.Context, id int64) (*RawPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.payloads {
		if m.payloads[i].ID == id {
			p := m.payloads[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockRepository) UpsertOrder(_ context.Context, order *Order) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertOrderCalls++
	if m.UpsertOrderErr != nil {
		return 0, false, m.UpsertOrderErr
	}

	copied := *order
	existing, ok := m.orders[order.MarketplaceOrderID]
	if ok {
		copied.ID = existing.ID
		copied.ImportedAt = existing.ImportedAt
		if copied.RawPayloadID == 0 {
			copied.RawPayloadID = existing.RawPayloadID
		}
	} else {
		copied.ID = m.id()
		copied.ImportedAt = time.Now()
	}
	copied.UpdatedAt = time.Now()
	m.orders[order.MarketplaceOrderID] = &copied
	order.ID = copied.ID
	return copied.ID, !ok, nil
}

func (m *MockRepository) UpsertOrderLine(_ context.Context, line *OrderLine) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertLineCalls++
	if m.UpsertOrderLineErr != nil {
		return 0, false, m.UpsertOrderLineErr
	}

	for _, existing := range m.lines[line.OrderID] {
		if existing.LineKey == line.LineKey {
			inv := existing.InventoryItemID
			if !sameSKU(existing.SKU, line.SKU) {
				inv = nil
			}
			id := existing.ID
			*existing = *line
			existing.ID = id
			existing.InventoryItemID = inv
			line.ID = id
			return id, false, nil
		}
	}

	copied := *line
	copied.ID = m.id()
	copied.InventoryItemID = nil
	m.lines[line.OrderID] = append(m.lines[line.OrderID], &copied)
	line.ID = copied.ID
	return copied.ID, true, nil
}

func sameSKU(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *MockRepository) SetLineInventoryItem(_ context.Context, lineID, inventoryItemID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lines := range m.lines {
		for _, l := range lines {
			if l.ID != lineID {
				continue
			}
			if l.InventoryItemID != nil && *l.InventoryItemID == inventoryItemID {
				return false, nil
			}
			v := inventoryItemID
			l.InventoryItemID = &v
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) GetOrderByMarketplaceID(_ context.Context, marketplaceOrderID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[marketplaceOrderID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *MockRepository) ListOrderLines(_ context.Context, orderID int64) ([]OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OrderLine
	for _, l := range m.lines[orderID] {
		out = append(out, *l)
	}
	return out, nil
}

func (m *MockRepository) ListOrders(_ context.Context, filters OrderFilters) (*OrderListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	all := make([]*Order, 0, len(m.orders))
	for _, o := range m.orders {
		copied := *o
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	result := &OrderListResult{Orders: []*Order{}, TotalCount: len(all), Limit: filters.Limit, Offset: filters.Offset}
	if filters.Offset < len(all) {
		end := filters.Offset + filters.Limit
		if end > len(all) {
			end = len(all)
		}
		result.Orders = all[filters.Offset:end]
	}
	return result, nil
}

func (m *MockRepository) FindInventoryItemBySKU(_ context.Context, sku string) (*InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InventoryLookups++
	if m.FindInventoryErr != nil {
		return nil, m.FindInventoryErr
	}
	item, ok := m.inventory[sku]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *MockRepository) UpsertInventoryItem(_ context.Context, item *InventoryItem) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *item
	if existing, ok := m.inventory[item.SKU]; ok {
		copied.ID = existing.ID
	} else {
		copied.ID = m.id()
	}
	m.inventory[item.SKU] = &copied
	item.ID = copied.ID
	return copied.ID, nil
}

func (m *MockRepository) StartSyncRun(_ context.Context, principalID string, windowDays int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartSyncRunCalled = true
	if m.StartSyncRunErr != nil {
		return 0, m.StartSyncRunErr
	}
	id := m.id()
	m.syncRuns[id] = &SyncRun{
		ID:          id,
		PrincipalID: principalID,
		StartedAt:   time.Now(),
		WindowDays:  windowDays,
		Status:      SyncRunRunning,
	}
	return id, nil
}

func (m *MockRepository) CompleteSyncRun(_ context.Context, runID int64, stats SyncRunStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.syncRuns[runID]
	if !ok {
		return nil
	}
	now := time.Now()
	run.CompletedAt = &now
	run.Pages = stats.Pages
	run.OrdersProcessed = stats.OrdersProcessed
	run.LinesProcessed = stats.LinesProcessed
	run.OrdersCreated = stats.OrdersCreated
	run.LinesMatched = stats.LinesMatched
	run.Status = SyncRunCompleted
	return nil
}

func (m *MockRepository) FailSyncRun(_ context.Context, runID int64, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.syncRuns[runID]
	if !ok {
		return nil
	}
	now := time.Now()
	run.CompletedAt = &now
	run.Status = SyncRunFailed
	run.ErrorMessage = errMsg
	return nil
}

func (m *MockRepository) ListSyncRuns(_ context.Context, limit int) ([]SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]SyncRun, 0, len(m.syncRuns))
	for _, r := range m.syncRuns {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MockRepository) GetSyncRun(_ context.Context, runID int64) (*SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.syncRuns[runID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r
	return &copied, nil
}

// RawPayloads returns every stored payload. Test helper.
func (m *MockRepository) RawPayloads() []RawPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RawPayload(nil), m.payloads...)
}

// OrderCount returns the number of stored orders. Test helper.
func (m *MockRepository) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// LineCount returns the number of stored lines across orders. Test helper.
func (m *MockRepository) LineCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, lines := range m.lines {
		n += len(lines)
	}
	return n
}
