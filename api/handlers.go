/*
handlers.go - HTTP API handlers for the leave request engine

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to leave.Manager.

ENDPOINTS:
  Leave (any authenticated employee):
    POST   /api/leave/validate        Validate a candidate (ok or split proposal)
    POST   /api/leave/create-single   Submit one request
    POST   /api/leave/create-split    Submit an accepted split proposal
    GET    /api/leave/config          Leave types and balance summary
    GET    /api/leave/calendar        Own pending/approved ranges and holidays
    GET    /api/leave/my-requests     Own requests, paginated
    GET    /api/leave/{id}            One request (own, or leave_management:read_all)

  Management:
    GET    /api/leave/requests        All requests (leave_management:read_all)
    PUT    /api/leave/{id}            Approve or reject (leave_management:update)

  Admin (leave_management:configure):
    GET    /api/admin/leave-types     List leave types
    POST   /api/admin/leave-types     Create or replace a leave type
    DELETE /api/admin/leave-types/{id}
    GET    /api/admin/company-rules   List company rules
    PUT    /api/admin/company-rules   Create or replace a company rule

  Holidays:
    GET    /api/holidays              List holidays (?year=)
    POST   /api/holidays              Add a holiday (configure)
    DELETE /api/holidays/{id}         Remove a holiday (configure)

  Scenarios (configure):
    GET    /api/scenarios             List demo scenarios
    GET    /api/scenarios/current     Currently loaded scenario
    POST   /api/scenarios/load        Load a demo scenario
    POST   /api/scenarios/reset       Delete all data

REQUEST FLOW:
  1. Authenticate (auth.go) and resolve the principal
  2. Decode and validate the body
  3. Call leave.Manager
  4. Serialize response
  5. Map engine errors to HTTP status

ERROR HANDLING:
  Errors are returned as JSON {error, code, details} with status:
  - 400: Validation errors and policy violations
  - 403: Acting on one's own request, missing permission
  - 404: Leave type or request not found
  - 409: Request already finalized
  - 500: Persistence failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Manager  *leave.Manager
	Config   leave.ConfigStore
	Factory  *factory.LeaveTypeFactory
	Holidays *calendar.HolidayCache

	validate *validator.Validate
	logger   *zap.Logger

	// Serializes scenario loads and tracks the loaded one.
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. holidays must be the cache the manager's
// counting policy reads from, so holiday edits take effect immediately.
func NewHandler(m *leave.Manager, cfg leave.ConfigStore, holidays *calendar.HolidayCache, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if holidays == nil {
		holidays = calendar.NewHolidayCache()
	}
	return &Handler{
		Manager:  m,
		Config:   cfg,
		Factory:  factory.NewLeaveTypeFactory(),
		Holidays: holidays,
		validate: factory.NewValidator(),
		logger:   logger.Named("api.handler"),
	}
}

// LoadHolidays refreshes the holiday cache from the store.
func (h *Handler) LoadHolidays(ctx context.Context) error {
	holidays, err := h.Config.ListHolidays(ctx, nil)
	if err != nil {
		return err
	}
	h.Holidays.Replace(holidays)
	return nil
}

func (h *Handler) today() calendar.Date {
	return calendar.Today(h.Manager.Evaluator.Clock)
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SUBMISSION
// =============================================================================

// ValidateLeave evaluates a candidate without persisting it.
// POST /api/leave/validate
func (h *Handler) ValidateLeave(w http.ResponseWriter, r *http.Request) {
	var req CandidateRequest
	if !h.decode(w, r, &req) {
		return
	}
	p := principal(r)

	decision, err := h.Manager.Validate(r.Context(), p.EmployeeID, req.toCandidate())
	if err != nil {
		h.writeEngineError(w, r, "Leave validation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// CreateSingle submits one pending request.
// POST /api/leave/create-single
func (h *Handler) CreateSingle(w http.ResponseWriter, r *http.Request) {
	var req CreateSingleRequest
	if !h.decode(w, r, &req) {
		return
	}
	p := principal(r)

	created, err := h.Manager.CreateSingle(r.Context(), p.EmployeeID, req.toCandidate(), req.Reason)
	if err != nil {
		h.writeEngineError(w, r, "Failed to create leave request", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// CreateSplit submits an accepted split proposal as one batch.
// POST /api/leave/create-split
func (h *Handler) CreateSplit(w http.ResponseWriter, r *http.Request) {
	var req CreateSplitRequest
	if !h.decode(w, r, &req) {
		return
	}
	p := principal(r)

	batch, err := h.Manager.CreateSplit(r.Context(), p.EmployeeID, req.toSplit())
	if err != nil {
		h.writeEngineError(w, r, "Failed to create split request", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateSplitResponse{
		Message:  "Split leave request created successfully.",
		BatchID:  batch.BatchID,
		Requests: batch.Requests,
	})
}

// =============================================================================
// APPROVAL
// =============================================================================

// UpdateRequest approves or rejects a pending request.
// PUT /api/leave/{id}
func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	p := principal(r)

	out, err := h.Manager.Update(r.Context(), chi.URLParam(r, "id"), req.toUpdate(), p)
	if err != nil {
		h.writeEngineError(w, r, "Error updating leave request", err)
		return
	}
	rejected := out.Rejected
	if rejected == nil {
		rejected = []leave.LeaveRequest{}
	}
	writeJSON(w, http.StatusOK, UpdateStatusResponse{
		Message:          "Leave request updated successfully.",
		Request:          out.Request,
		RejectedPortions: rejected,
	})
}

// =============================================================================
// QUERIES
// =============================================================================

// GetConfig returns the leave types and the caller's balance summary.
// GET /api/leave/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := principal(r)

	types, err := h.Manager.Store.ListLeaveTypes(ctx)
	if err != nil {
		h.writeEngineError(w, r, "Error fetching leave configuration", err)
		return
	}
	balance, err := h.Manager.Balance(ctx, p.EmployeeID)
	if err != nil {
		h.writeEngineError(w, r, "Error fetching leave configuration", err)
		return
	}
	if types == nil {
		types = []leave.LeaveType{}
	}
	writeJSON(w, http.StatusOK, ConfigResponse{LeaveTypes: types, Balance: balance})
}

// GetCalendar returns the caller's pending and approved ranges plus
// holidays in a window. Defaults to the current year.
// GET /api/leave/calendar?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := principal(r)

	window, err := h.windowParam(r)
	if err != nil {
		h.writeEngineError(w, r, "Invalid calendar window", err)
		return
	}

	reqs, _, err := h.Manager.List(ctx, leave.ListFilter{EmployeeID: p.EmployeeID, Window: &window})
	if err != nil {
		h.writeEngineError(w, r, "Server error fetching calendar data", err)
		return
	}
	types, err := h.Manager.Store.ListLeaveTypes(ctx)
	if err != nil {
		h.writeEngineError(w, r, "Server error fetching calendar data", err)
		return
	}
	names := make(map[string]string, len(types))
	for _, lt := range types {
		names[lt.ID] = lt.Name
	}
	holidays, err := h.Config.ListHolidays(ctx, &window)
	if err != nil {
		h.writeEngineError(w, r, "Server error fetching calendar data", err)
		return
	}

	resp := CalendarResponse{
		From:           window.Start,
		To:             window.End,
		ExistingLeaves: []CalendarEntryDTO{},
		Holidays:       holidays,
		CountingPolicy: h.Manager.Policy().String(),
	}
	if resp.Holidays == nil {
		resp.Holidays = []calendar.Holiday{}
	}
	for _, req := range reqs {
		if !req.Status.Consumes() {
			continue
		}
		resp.ExistingLeaves = append(resp.ExistingLeaves, CalendarEntryDTO{
			ID:            req.ID,
			LeaveTypeID:   req.LeaveTypeID,
			LeaveTypeName: names[req.LeaveTypeID],
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			Days:          req.Days,
			Status:        req.Status,
			Reason:        req.Reason,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// MyRequests lists the caller's own requests.
// GET /api/leave/my-requests?page=&limit=&status=&leave_type_id=
func (h *Handler) MyRequests(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.listFilter(w, r)
	if !ok {
		return
	}
	filter.EmployeeID = principal(r).EmployeeID
	h.writePage(w, r, filter)
}

// ManagedRequests lists every employee's requests.
// GET /api/leave/requests?employee_id=&page=&limit=&status=&leave_type_id=
func (h *Handler) ManagedRequests(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.listFilter(w, r)
	if !ok {
		return
	}
	filter.EmployeeID = r.URL.Query().Get("employee_id")
	h.writePage(w, r, filter)
}

// GetRequest returns one request. Callers without read_all only see their own.
// GET /api/leave/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	req, err := h.Manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, r, "Leave request not found", err)
		return
	}
	if req.EmployeeID != p.EmployeeID && !p.Has(leave.PermReadAll) {
		// Hide existence from other employees.
		writeErrorCode(w, http.StatusNotFound, "not_found", "Leave request not found.", nil)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// listQuery holds the common pagination parameters.
type listQuery struct {
	Page        int    `json:"page" validate:"min=1"`
	Limit       int    `json:"limit" validate:"min=1,max=100"`
	Status      string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	LeaveTypeID string `json:"leave_type_id" validate:"max=64"`
}

func (h *Handler) listFilter(w http.ResponseWriter, r *http.Request) (leave.ListFilter, bool) {
	q := r.URL.Query()
	lq := listQuery{Page: 1, Limit: 10, Status: q.Get("status"), LeaveTypeID: q.Get("leave_type_id")}
	for name, dst := range map[string]*int{"page": &lq.Page, "limit": &lq.Limit} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeErrorCode(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("Invalid %s parameter", name), err)
				return leave.ListFilter{}, false
			}
			*dst = n
		}
	}
	if err := h.validate.Struct(lq); err != nil {
		h.writeEngineError(w, r, "Invalid query parameters", factory.Describe(err))
		return leave.ListFilter{}, false
	}
	return leave.ListFilter{
		Status:      leave.Status(lq.Status),
		LeaveTypeID: lq.LeaveTypeID,
		Page:        lq.Page,
		Limit:       lq.Limit,
	}, true
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, filter leave.ListFilter) {
	reqs, total, err := h.Manager.List(r.Context(), filter)
	if err != nil {
		h.writeEngineError(w, r, "Server error while fetching leave requests", err)
		return
	}
	if reqs == nil {
		reqs = []leave.LeaveRequest{}
	}
	writeJSON(w, http.StatusOK, PageResponse{
		Data:       reqs,
		Page:       filter.Page,
		Limit:      filter.Limit,
		PageCount:  (total + filter.Limit - 1) / filter.Limit,
		TotalItems: total,
	})
}

func (h *Handler) windowParam(r *http.Request) (calendar.Window, error) {
	window := calendar.YearOf(h.today())
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		from, err := calendar.ParseISO(v)
		if err != nil {
			return calendar.Window{}, &leave.ValidationError{Field: "from", Message: err.Error()}
		}
		window.Start = from
	}
	if v := q.Get("to"); v != "" {
		to, err := calendar.ParseISO(v)
		if err != nil {
			return calendar.Window{}, &leave.ValidationError{Field: "to", Message: err.Error()}
		}
		window.End = to
	}
	if window.Start.After(window.End) {
		return calendar.Window{}, &leave.ValidationError{Field: "from", Message: "must not be after to"}
	}
	return window, nil
}

// =============================================================================
// ADMINISTRATION
// =============================================================================

// ListLeaveTypes returns all leave types.
// GET /api/admin/leave-types
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Manager.Store.ListLeaveTypes(r.Context())
	if err != nil {
		h.writeEngineError(w, r, "Failed to list leave types", err)
		return
	}
	if types == nil {
		types = []leave.LeaveType{}
	}
	writeJSON(w, http.StatusOK, types)
}

// SaveLeaveType creates or replaces a leave type.
// POST /api/admin/leave-types
func (h *Handler) SaveLeaveType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body factory.LeaveTypeJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	lt, err := h.Factory.FromJSON(body)
	if err != nil {
		h.writeEngineError(w, r, "Invalid leave type", err)
		return
	}

	existing, err := h.Manager.Store.ListLeaveTypes(ctx)
	if err != nil {
		h.writeEngineError(w, r, "Failed to save leave type", err)
		return
	}
	merged := []leave.LeaveType{*lt}
	for _, other := range existing {
		if other.ID != lt.ID {
			merged = append(merged, other)
		}
	}
	if err := factory.ValidateFallbacks(merged); err != nil {
		h.writeEngineError(w, r, "Invalid leave type", err)
		return
	}

	if err := h.Config.SaveLeaveType(ctx, *lt); err != nil {
		h.writeEngineError(w, r, "Failed to save leave type", err)
		return
	}
	h.logger.Info("leave type saved", zap.String("leave_type_id", lt.ID), zap.String("by", principal(r).EmployeeID))
	writeJSON(w, http.StatusCreated, lt)
}

// DeleteLeaveType removes a leave type.
// DELETE /api/admin/leave-types/{id}
func (h *Handler) DeleteLeaveType(w http.ResponseWriter, r *http.Request) {
	if err := h.Config.DeleteLeaveType(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, r, "Failed to delete leave type", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListCompanyRules returns all company rules.
// GET /api/admin/company-rules
func (h *Handler) ListCompanyRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Config.ListCompanyRules(r.Context())
	if err != nil {
		h.writeEngineError(w, r, "Failed to list company rules", err)
		return
	}
	if rules == nil {
		rules = []leave.CompanyRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// SaveCompanyRule creates or replaces a company rule.
// PUT /api/admin/company-rules
func (h *Handler) SaveCompanyRule(w http.ResponseWriter, r *http.Request) {
	var body factory.CompanyRuleJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rule, err := h.Factory.CompanyRule(body)
	if err != nil {
		h.writeEngineError(w, r, "Invalid company rule", err)
		return
	}
	if err := h.Config.SaveCompanyRule(r.Context(), *rule); err != nil {
		h.writeEngineError(w, r, "Failed to save company rule", err)
		return
	}
	h.logger.Info("company rule saved", zap.String("key", rule.Key), zap.String("by", principal(r).EmployeeID))
	writeJSON(w, http.StatusOK, rule)
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns holidays, optionally for one year.
// GET /api/holidays?year=2025
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	var window *calendar.Window
	if v := r.URL.Query().Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 1 || year > 9999 {
			writeErrorCode(w, http.StatusBadRequest, "validation_error", "Invalid year parameter", err)
			return
		}
		y := calendar.YearOf(calendar.New(year, 1, 1))
		window = &y
	}

	holidays, err := h.Config.ListHolidays(r.Context(), window)
	if err != nil {
		h.writeEngineError(w, r, "Failed to get holidays", err)
		return
	}
	if holidays == nil {
		holidays = []calendar.Holiday{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": holidays})
}

// CreateHoliday adds a holiday. A holiday already on that date is replaced.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Date.IsZero() {
		h.writeEngineError(w, r, "Invalid holiday", &leave.ValidationError{Field: "date", Message: "is required"})
		return
	}

	holiday := calendar.Holiday{ID: uuid.NewString(), Date: req.Date, Name: req.Name}
	if err := h.Config.SaveHoliday(r.Context(), holiday); err != nil {
		h.writeEngineError(w, r, "Failed to create holiday", err)
		return
	}
	if err := h.LoadHolidays(r.Context()); err != nil {
		h.writeEngineError(w, r, "Failed to refresh holidays", err)
		return
	}
	writeJSON(w, http.StatusCreated, holiday)
}

// DeleteHoliday removes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Config.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, r, "Failed to delete holiday", err)
		return
	}
	if err := h.LoadHolidays(r.Context()); err != nil {
		h.writeEngineError(w, r, "Failed to refresh holidays", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

// principal returns the authenticated caller. Routes using it are mounted
// behind Authenticator.Middleware.
func principal(r *http.Request) leave.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

// decode reads a JSON body into dst and checks its struct tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeEngineError(w, r, "Invalid request", factory.Describe(err))
		return false
	}
	return true
}

// writeEngineError maps engine errors to HTTP status codes. fallback is
// used as the message for unexpected failures, whose details are logged
// instead of returned.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, fallback string, err error) {
	var (
		verr  *leave.ValidationError
		pverr *leave.PolicyViolationError
		scerr *leave.StateConflictError
	)
	switch {
	case errors.As(err, &pverr):
		var details any
		switch {
		case pverr.Decision != nil:
			details = pverr.Decision
		case pverr.Remaining != nil:
			details = map[string]int{"remaining": *pverr.Remaining}
		}
		writeErrorCode(w, http.StatusBadRequest, string(pverr.Code), pverr.Message, details)
	case errors.As(err, &scerr):
		status := http.StatusConflict
		if scerr.Code == leave.ConflictSelfAction {
			status = http.StatusForbidden
		}
		writeErrorCode(w, status, string(scerr.Code), scerr.Message, nil)
	case errors.As(err, &verr):
		var details any
		if verr.Field != "" {
			details = map[string]string{"field": verr.Field}
		}
		writeErrorCode(w, http.StatusBadRequest, "validation_error", validationMessage(verr), details)
	case leave.IsNotFound(err):
		writeErrorCode(w, http.StatusNotFound, "not_found", err.Error(), nil)
	default:
		h.logger.Error(fallback,
			zap.Error(err),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path))
		writeErrorCode(w, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

// validationMessage keeps sentence-style engine messages intact and
// prefixes terse ones ("is required") with their field.
func validationMessage(e *leave.ValidationError) string {
	if e.Field == "" || e.Message == "" || unicode.IsUpper(rune(e.Message[0])) {
		return e.Message
	}
	return e.Error()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string, details any) {
	if err, ok := details.(error); ok {
		details = err.Error()
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

func strPtr(s string) *string {
	return &s
}
