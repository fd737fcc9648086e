// Package memory provides an in-memory leave.TxStore for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements leave.TxStore and leave.ConfigStore.
type Memory struct {
	mu sync.RWMutex
	st *state
}

type state struct {
	leaveTypes map[string]leave.LeaveType
	rules      map[string]leave.CompanyRule
	requests   map[string]leave.LeaveRequest
	holidays   map[string]calendar.Holiday
}

func newState() *state {
	return &state{
		leaveTypes: make(map[string]leave.LeaveType),
		rules:      make(map[string]leave.CompanyRule),
		requests:   make(map[string]leave.LeaveRequest),
		holidays:   make(map[string]calendar.Holiday),
	}
}

// New returns an empty store.
func New() *Memory {
	return &Memory{st: newState()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(&txView{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.leaveTypes {
		c.leaveTypes[k] = v
	}
	for k, v := range s.rules {
		c.rules[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.holidays {
		c.holidays[k] = v
	}
	return c
}

// =============================================================================
// leave.Store
// =============================================================================

func (m *Memory) GetLeaveType(_ context.Context, id string) (*leave.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getLeaveType(id)
}

func (m *Memory) ListLeaveTypes(_ context.Context) ([]leave.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listLeaveTypes(), nil
}

func (m *Memory) GetCompanyRule(_ context.Context, key string) (*leave.CompanyRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getRule(key), nil
}

func (m *Memory) GetRequest(_ context.Context, id string) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getRequest(id)
}

func (m *Memory) HasPendingRequest(_ context.Context, employeeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.hasPending(employeeID), nil
}

func (m *Memory) ListActiveRequests(_ context.Context, employeeID string, window calendar.Window) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listActive(employeeID, window), nil
}

func (m *Memory) ListRequests(_ context.Context, filter leave.ListFilter) ([]leave.LeaveRequest, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reqs, total := m.st.list(filter)
	return reqs, total, nil
}

func (m *Memory) CreateRequests(_ context.Context, reqs []leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.create(reqs)
}

func (m *Memory) UpdateRequest(_ context.Context, req leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.update(req)
}

// LockEmployee is a no-op: transactions already hold the store lock.
func (m *Memory) LockEmployee(context.Context, string) error { return nil }

// =============================================================================
// leave.ConfigStore
// =============================================================================

func (m *Memory) SaveLeaveType(_ context.Context, lt leave.LeaveType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.leaveTypes[lt.ID] = lt
	return nil
}

func (m *Memory) DeleteLeaveType(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.leaveTypes[id]; !ok {
		return &leave.NotFoundError{Entity: "leave type", ID: id}
	}
	for _, r := range m.st.requests {
		if r.LeaveTypeID == id {
			return leave.LeaveTypeInUse(id)
		}
	}
	delete(m.st.leaveTypes, id)
	for tid, lt := range m.st.leaveTypes {
		if lt.FallbackLeaveTypeID != nil && *lt.FallbackLeaveTypeID == id {
			lt.FallbackLeaveTypeID = nil
			m.st.leaveTypes[tid] = lt
		}
	}
	return nil
}

func (m *Memory) ListCompanyRules(_ context.Context) ([]leave.CompanyRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rules := make([]leave.CompanyRule, 0, len(m.st.rules))
	for _, r := range m.st.rules {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Key < rules[j].Key })
	return rules, nil
}

func (m *Memory) SaveCompanyRule(_ context.Context, rule leave.CompanyRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.rules[rule.Key] = rule
	return nil
}

func (m *Memory) ListHolidays(_ context.Context, window *calendar.Window) ([]calendar.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []calendar.Holiday
	for _, h := range m.st.holidays {
		if window == nil || window.Contains(h.Date) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) SaveHoliday(_ context.Context, h calendar.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.st.holidays {
		if id != h.ID && existing.Date.Equal(h.Date) {
			delete(m.st.holidays, id)
		}
	}
	m.st.holidays[h.ID] = h
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.holidays[id]; !ok {
		return &leave.NotFoundError{Entity: "holiday", ID: id}
	}
	delete(m.st.holidays, id)
	return nil
}

func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = newState()
	return nil
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

// txView operates on the locked state without taking the mutex again.
type txView struct {
	st *state
}

func (v *txView) GetLeaveType(_ context.Context, id string) (*leave.LeaveType, error) {
	return v.st.getLeaveType(id)
}

func (v *txView) ListLeaveTypes(context.Context) ([]leave.LeaveType, error) {
	return v.st.listLeaveTypes(), nil
}

func (v *txView) GetCompanyRule(_ context.Context, key string) (*leave.CompanyRule, error) {
	return v.st.getRule(key), nil
}

func (v *txView) GetRequest(_ context.Context, id string) (*leave.LeaveRequest, error) {
	return v.st.getRequest(id)
}

func (v *txView) HasPendingRequest(_ context.Context, employeeID string) (bool, error) {
	return v.st.hasPending(employeeID), nil
}

func (v *txView) ListActiveRequests(_ context.Context, employeeID string, window calendar.Window) ([]leave.LeaveRequest, error) {
	return v.st.listActive(employeeID, window), nil
}

func (v *txView) ListRequests(_ context.Context, filter leave.ListFilter) ([]leave.LeaveRequest, int, error) {
	reqs, total := v.st.list(filter)
	return reqs, total, nil
}

func (v *txView) CreateRequests(_ context.Context, reqs []leave.LeaveRequest) error {
	return v.st.create(reqs)
}

func (v *txView) UpdateRequest(_ context.Context, req leave.LeaveRequest) error {
	return v.st.update(req)
}

func (v *txView) LockEmployee(context.Context, string) error { return nil }

// =============================================================================
// UNLOCKED STATE OPERATIONS
// =============================================================================

func (s *state) getLeaveType(id string) (*leave.LeaveType, error) {
	lt, ok := s.leaveTypes[id]
	if !ok {
		return nil, &leave.NotFoundError{Entity: "leave type", ID: id}
	}
	return &lt, nil
}

func (s *state) listLeaveTypes() []leave.LeaveType {
	out := make([]leave.LeaveType, 0, len(s.leaveTypes))
	for _, lt := range s.leaveTypes {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *state) getRule(key string) *leave.CompanyRule {
	r, ok := s.rules[key]
	if !ok {
		return nil
	}
	return &r
}

func (s *state) getRequest(id string) (*leave.LeaveRequest, error) {
	r, ok := s.requests[id]
	if !ok {
		return nil, &leave.NotFoundError{Entity: "leave request", ID: id}
	}
	return &r, nil
}

func (s *state) hasPending(employeeID string) bool {
	for _, r := range s.requests {
		if r.EmployeeID == employeeID && r.Status == leave.StatusPending {
			return true
		}
	}
	return false
}

func (s *state) listActive(employeeID string, window calendar.Window) []leave.LeaveRequest {
	var out []leave.LeaveRequest
	for _, r := range s.requests {
		if r.EmployeeID != employeeID || !r.Status.Consumes() {
			continue
		}
		if _, _, ok := window.Intersect(r.StartDate, r.EndDate); ok {
			out = append(out, r)
		}
	}
	sortByStart(out)
	return out
}

func (s *state) list(filter leave.ListFilter) ([]leave.LeaveRequest, int) {
	var matched []leave.LeaveRequest
	for _, r := range s.requests {
		if filter.Matches(r) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		if !matched[i].StartDate.Equal(matched[j].StartDate) {
			return matched[i].StartDate.Before(matched[j].StartDate)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	from := min(filter.Offset(), total)
	to := total
	if filter.Limit > 0 {
		to = min(from+filter.Limit, total)
	}
	return matched[from:to], total
}

// create mirrors the SQL uniqueness guard: one pending request outside a
// batch per employee.
func (s *state) create(reqs []leave.LeaveRequest) error {
	for _, r := range reqs {
		if _, exists := s.requests[r.ID]; exists {
			return &leave.PersistenceError{Op: "insert leave request", Err: errDuplicateID(r.ID)}
		}
		if r.Status == leave.StatusPending && r.BatchID == nil && s.hasUnbatchedPending(r.EmployeeID) {
			return leave.ErrDuplicatePending
		}
	}
	for _, r := range reqs {
		s.requests[r.ID] = r
	}
	return nil
}

func (s *state) hasUnbatchedPending(employeeID string) bool {
	for _, r := range s.requests {
		if r.EmployeeID == employeeID && r.Status == leave.StatusPending && r.BatchID == nil {
			return true
		}
	}
	return false
}

func (s *state) update(req leave.LeaveRequest) error {
	if _, ok := s.requests[req.ID]; !ok {
		return &leave.NotFoundError{Entity: "leave request", ID: req.ID}
	}
	s.requests[req.ID] = req
	return nil
}

func sortByStart(reqs []leave.LeaveRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].StartDate.Equal(reqs[j].StartDate) {
			return reqs[i].StartDate.Before(reqs[j].StartDate)
		}
		return reqs[i].ID < reqs[j].ID
	})
}

type errDuplicateID string

func (e errDuplicateID) Error() string { return "duplicate request id " + string(e) }
