/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with a leave
	catalog and prior requests, each demonstrating one engine behaviour.
	Dates are relative to the engine's "today" so scenarios stay valid.

AVAILABLE SCENARIOS:

	fresh-start:       No prior leave; a short annual request validates "ok"
	monthly-split:     4 of 5 monthly days used; 3 more produce a split proposal
	pending-gate:      A pending request blocks every new submission
	partial-approval:  A 10-day pending request for a manager to trim
	unpaid-uncapped:   Paid cap exhausted; unpaid leave is still admitted
	sick-fallback:     Sick allowance used up; excess proposed as unpaid

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Apply the base catalog via factory
 3. Insert prior requests directly (bypassing the evaluator)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "monthly-split"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, today)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - factory/leavetype.go: Catalog JSON definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
)

// Demo identities used by every scenario.
const (
	DemoEmployee = "emp-001"
	DemoManager  = "mgr-001"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "No prior leave this year. A 3-day annual leave request validates as ok.",
	},
	{
		ID:          "monthly-split",
		Name:        "Monthly Allowance Split",
		Description: "4 of 5 monthly annual days already approved. Requesting 3 more proposes 1 + 2.",
	},
	{
		ID:          "pending-gate",
		Name:        "Pending Request Gate",
		Description: "A pending request exists, so any new request is refused.",
	},
	{
		ID:          "partial-approval",
		Name:        "Partial Approval",
		Description: "A 10-day pending request next month, ready for a manager to approve days 3 to 7.",
	},
	{
		ID:          "unpaid-uncapped",
		Name:        "Unpaid Leave Ignores Cap",
		Description: "The 20-day paid cap is exhausted. Unpaid leave is still admitted.",
	},
	{
		ID:          "sick-fallback",
		Name:        "Sick Leave Fallback",
		Description: "Annual sick allowance is used up. Extra sick days are proposed as unpaid leave.",
	},
}

// baseCatalog is applied by every scenario.
const baseCatalog = `{
	"leave_types": [
		{"id": "annual", "name": "Annual Leave", "monthly_allowance_days": 5, "max_days_per_request": 15},
		{"id": "sick", "name": "Sick Leave", "annual_allowance_days": 3, "allow_retroactive_application": true, "fallback_leave_type_id": "unpaid"},
		{"id": "unpaid", "name": "Unpaid Leave", "is_unpaid": true, "max_days_per_request": 30}
	],
	"company_rules": [
		{"setting_key": "total_annual_leave_cap", "setting_value": "20", "description": "Total paid leave days per calendar year"}
	]
}`

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		h.writeEngineError(w, r, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase deletes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Config.Reset(r.Context()); err != nil {
		h.writeEngineError(w, r, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	h.Holidays.Replace(nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var load func(context.Context, calendar.Date) error
	switch id {
	case "fresh-start":
		load = h.loadFreshStartScenario
	case "monthly-split":
		load = h.loadMonthlySplitScenario
	case "pending-gate":
		load = h.loadPendingGateScenario
	case "partial-approval":
		load = h.loadPartialApprovalScenario
	case "unpaid-uncapped":
		load = h.loadUnpaidUncappedScenario
	case "sick-fallback":
		load = h.loadSickFallbackScenario
	default:
		return &leave.ValidationError{Field: "scenario_id", Message: "Unknown scenario"}
	}

	if err := h.Config.Reset(ctx); err != nil {
		return err
	}
	h.currentScenario = ""
	h.Holidays.Replace(nil)

	catalog, err := h.Factory.ParseCatalog(baseCatalog)
	if err != nil {
		return err
	}
	if err := catalog.Apply(ctx, h.Config); err != nil {
		return err
	}
	if err := load(ctx, h.today()); err != nil {
		return err
	}
	h.currentScenario = id
	h.logger.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadFreshStartScenario(context.Context, calendar.Date) error {
	return nil
}

func (h *Handler) loadMonthlySplitScenario(ctx context.Context, today calendar.Date) error {
	month := calendar.MonthOf(today)
	return h.seed(ctx, seedRequest{
		id: "seed-monthly", leaveType: "annual", status: leave.StatusApproved,
		start: month.Start, end: month.Start.AddDays(3),
	})
}

func (h *Handler) loadPendingGateScenario(ctx context.Context, today calendar.Date) error {
	return h.seed(ctx, seedRequest{
		id: "seed-pending", leaveType: "annual", status: leave.StatusPending,
		start: today.AddDays(14), end: today.AddDays(15), reason: "Family event",
	})
}

func (h *Handler) loadPartialApprovalScenario(ctx context.Context, today calendar.Date) error {
	next := calendar.MonthOf(today).End.AddDays(1)
	return h.seed(ctx, seedRequest{
		id: "seed-ten-days", leaveType: "unpaid", status: leave.StatusPending,
		start: next, end: next.AddDays(9), reason: "Extended trip",
	})
}

func (h *Handler) loadUnpaidUncappedScenario(ctx context.Context, today calendar.Date) error {
	year := calendar.YearOf(today)
	// 4 approved annual blocks of 5 days fill the 20-day cap.
	for i, month := 0, year.Start; i < 4; i, month = i+1, calendar.MonthOf(month).End.AddDays(1) {
		err := h.seed(ctx, seedRequest{
			id: fmt.Sprintf("seed-cap-%d", i+1), leaveType: "annual", status: leave.StatusApproved,
			start: month, end: month.AddDays(4),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadSickFallbackScenario(ctx context.Context, today calendar.Date) error {
	year := calendar.YearOf(today)
	return h.seed(ctx, seedRequest{
		id: "seed-sick", leaveType: "sick", status: leave.StatusApproved,
		start: year.Start.AddDays(9), end: year.Start.AddDays(11), reason: "Flu",
	})
}

// =============================================================================
// HELPERS
// =============================================================================

type seedRequest struct {
	id, leaveType, reason string
	status                leave.Status
	start, end            calendar.Date
}

// seed stores a prior request without evaluation.
func (h *Handler) seed(ctx context.Context, s seedRequest) error {
	now := h.Manager.Evaluator.Clock.Now().UTC()
	req := leave.LeaveRequest{
		ID:          s.id,
		EmployeeID:  DemoEmployee,
		LeaveTypeID: s.leaveType,
		StartDate:   s.start,
		EndDate:     s.end,
		Days:        h.Manager.Policy().DayCount(s.start, s.end),
		Reason:      s.reason,
		Status:      s.status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s.status == leave.StatusApproved {
		req.ManagerComments = strPtr("Approved by " + DemoManager)
	}
	return h.Manager.Store.CreateRequests(ctx, []leave.LeaveRequest{req})
}
