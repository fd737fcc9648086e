/*
Package factory converts JSON configuration into leave engine types.

PURPOSE:
  Administrators define leave types and company rules in JSON (admin API,
  seed files, demo scenarios). The factory validates the structure, rejects
  fallback cycles and produces leave.LeaveType / leave.CompanyRule values the
  engine can trust without re-checking.

JSON SCHEMA:
  {
    "leave_types": [
      {
        "id": "sick",
        "name": "Sick Leave",
        "is_unpaid": false,
        "annual_allowance_days": 10,
        "monthly_allowance_days": null,
        "max_days_per_request": 5,
        "allow_retroactive_application": true,
        "fallback_leave_type_id": "unpaid"
      }
    ],
    "company_rules": [
      {"setting_key": "total_annual_leave_cap", "setting_value": "20"}
    ]
  }

FALLBACKS:
  A fallback must reference another existing type and the fallback links must
  not form a cycle. The engine only ever follows one hop.

USAGE:
  f := factory.NewLeaveTypeFactory()
  catalog, err := f.ParseCatalog(jsonString)
  err = catalog.Apply(ctx, store)

SEE ALSO:
  - leave/types.go: LeaveType and CompanyRule
  - api/scenarios.go: demo catalogs
*/
package factory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LeaveTypeJSON is the JSON representation of a leave type.
type LeaveTypeJSON struct {
	ID                   string  `json:"id" validate:"required,max=64"`
	Name                 string  `json:"name" validate:"required,max=128"`
	IsUnpaid             bool    `json:"is_unpaid"`
	AnnualAllowanceDays  *int    `json:"annual_allowance_days" validate:"omitempty,min=0"`
	MonthlyAllowanceDays *int    `json:"monthly_allowance_days" validate:"omitempty,min=0"`
	MaxDaysPerRequest    *int    `json:"max_days_per_request" validate:"omitempty,min=1"`
	AllowRetroactive     bool    `json:"allow_retroactive_application"`
	FallbackLeaveTypeID  *string `json:"fallback_leave_type_id" validate:"omitempty,max=64"`
}

// CompanyRuleJSON is one key/value setting.
type CompanyRuleJSON struct {
	Key         string `json:"setting_key" validate:"required"`
	Value       string `json:"setting_value" validate:"required"`
	Description string `json:"description,omitempty"`
}

// CatalogJSON is a complete configuration document.
type CatalogJSON struct {
	LeaveTypes   []LeaveTypeJSON   `json:"leave_types" validate:"dive"`
	CompanyRules []CompanyRuleJSON `json:"company_rules" validate:"dive"`
}

// Catalog is a validated configuration.
type Catalog struct {
	LeaveTypes   []leave.LeaveType
	CompanyRules []leave.CompanyRule
}

// numericRules are company rules whose value must be a whole day count.
var numericRules = map[string]bool{
	leave.RuleTotalAnnualLeaveCap: true,
}

// =============================================================================
// LEAVE TYPE FACTORY
// =============================================================================

// LeaveTypeFactory converts and validates JSON configuration.
type LeaveTypeFactory struct {
	validate *validator.Validate
}

// NewLeaveTypeFactory creates a new factory.
func NewLeaveTypeFactory() *LeaveTypeFactory {
	return &LeaveTypeFactory{validate: NewValidator()}
}

// NewValidator returns a validator that reports JSON field names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseLeaveType parses a JSON string into a LeaveType.
func (f *LeaveTypeFactory) ParseLeaveType(jsonStr string) (*leave.LeaveType, error) {
	var lj LeaveTypeJSON
	if err := json.Unmarshal([]byte(jsonStr), &lj); err != nil {
		return nil, fmt.Errorf("failed to parse leave type JSON: %w", err)
	}
	return f.FromJSON(lj)
}

// FromJSON validates field constraints and converts to leave.LeaveType.
// Fallback references are checked against other types by ValidateFallbacks.
func (f *LeaveTypeFactory) FromJSON(lj LeaveTypeJSON) (*leave.LeaveType, error) {
	if err := f.validate.Struct(lj); err != nil {
		return nil, Describe(err)
	}
	lt := &leave.LeaveType{
		ID:                   strings.TrimSpace(lj.ID),
		Name:                 strings.TrimSpace(lj.Name),
		IsUnpaid:             lj.IsUnpaid,
		AnnualAllowanceDays:  lj.AnnualAllowanceDays,
		MonthlyAllowanceDays: lj.MonthlyAllowanceDays,
		MaxDaysPerRequest:    lj.MaxDaysPerRequest,
		AllowRetroactive:     lj.AllowRetroactive,
	}
	if lj.FallbackLeaveTypeID != nil && strings.TrimSpace(*lj.FallbackLeaveTypeID) != "" {
		id := strings.TrimSpace(*lj.FallbackLeaveTypeID)
		lt.FallbackLeaveTypeID = &id
	}
	return lt, nil
}

// CompanyRule validates one setting. Numeric rules must be whole days.
func (f *LeaveTypeFactory) CompanyRule(rj CompanyRuleJSON) (*leave.CompanyRule, error) {
	if err := f.validate.Struct(rj); err != nil {
		return nil, Describe(err)
	}
	rule := &leave.CompanyRule{
		Key:         strings.TrimSpace(rj.Key),
		Value:       strings.TrimSpace(rj.Value),
		Description: rj.Description,
	}
	if numericRules[rule.Key] {
		if _, err := rule.WholeDays(); err != nil {
			return nil, &leave.ValidationError{Field: "setting_value", Message: err.Error()}
		}
	}
	return rule, nil
}

// ParseCatalog parses and validates a complete configuration document.
func (f *LeaveTypeFactory) ParseCatalog(jsonStr string) (*Catalog, error) {
	var cj CatalogJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}

	catalog := &Catalog{}
	for _, lj := range cj.LeaveTypes {
		lt, err := f.FromJSON(lj)
		if err != nil {
			return nil, fmt.Errorf("leave type %q: %w", lj.ID, err)
		}
		catalog.LeaveTypes = append(catalog.LeaveTypes, *lt)
	}
	if err := ValidateFallbacks(catalog.LeaveTypes); err != nil {
		return nil, err
	}
	for _, rj := range cj.CompanyRules {
		rule, err := f.CompanyRule(rj)
		if err != nil {
			return nil, fmt.Errorf("company rule %q: %w", rj.Key, err)
		}
		catalog.CompanyRules = append(catalog.CompanyRules, *rule)
	}
	return catalog, nil
}

// Apply saves the catalog. Fallback targets are saved before the types that
// reference them so stores enforcing foreign keys accept every row.
func (c *Catalog) Apply(ctx context.Context, store leave.ConfigStore) error {
	for _, lt := range SaveOrder(c.LeaveTypes) {
		if err := store.SaveLeaveType(ctx, lt); err != nil {
			return fmt.Errorf("save leave type %q: %w", lt.ID, err)
		}
	}
	for _, rule := range c.CompanyRules {
		if err := store.SaveCompanyRule(ctx, rule); err != nil {
			return fmt.Errorf("save company rule %q: %w", rule.Key, err)
		}
	}
	return nil
}

// SaveOrder returns types ordered so that each fallback target precedes the
// types falling back to it. Types outside the slice are treated as saved.
// Input order is kept otherwise; cycles are appended as-is.
func SaveOrder(types []leave.LeaveType) []leave.LeaveType {
	pending := make(map[string]bool, len(types))
	for _, lt := range types {
		pending[lt.ID] = true
	}

	out := make([]leave.LeaveType, 0, len(types))
	for len(out) < len(types) {
		progressed := false
		for _, lt := range types {
			if !pending[lt.ID] {
				continue
			}
			if fb := lt.FallbackLeaveTypeID; fb != nil && *fb != lt.ID && pending[*fb] {
				continue
			}
			out = append(out, lt)
			pending[lt.ID] = false
			progressed = true
		}
		if !progressed {
			for _, lt := range types {
				if pending[lt.ID] {
					out = append(out, lt)
					pending[lt.ID] = false
				}
			}
		}
	}
	return out
}

// =============================================================================
// FALLBACK VALIDATION
// =============================================================================

// ValidateFallbacks checks that every fallback references another known
// type and that following fallbacks never returns to a type already seen.
func ValidateFallbacks(types []leave.LeaveType) error {
	byID := make(map[string]leave.LeaveType, len(types))
	for _, lt := range types {
		if _, dup := byID[lt.ID]; dup {
			return &leave.ValidationError{Field: "id", Message: fmt.Sprintf("duplicate leave type id %q", lt.ID)}
		}
		byID[lt.ID] = lt
	}

	for _, lt := range types {
		if lt.FallbackLeaveTypeID == nil {
			continue
		}
		if *lt.FallbackLeaveTypeID == lt.ID {
			return &leave.ValidationError{Field: "fallback_leave_type_id",
				Message: fmt.Sprintf("leave type %q cannot fall back to itself", lt.ID)}
		}
		if _, ok := byID[*lt.FallbackLeaveTypeID]; !ok {
			return &leave.ValidationError{Field: "fallback_leave_type_id",
				Message: fmt.Sprintf("leave type %q falls back to unknown type %q", lt.ID, *lt.FallbackLeaveTypeID)}
		}

		seen := map[string]bool{lt.ID: true}
		for cur := byID[*lt.FallbackLeaveTypeID]; ; {
			if seen[cur.ID] {
				return &leave.ValidationError{Field: "fallback_leave_type_id",
					Message: fmt.Sprintf("fallback chain starting at %q forms a cycle", lt.ID)}
			}
			seen[cur.ID] = true
			if cur.FallbackLeaveTypeID == nil {
				break
			}
			next, ok := byID[*cur.FallbackLeaveTypeID]
			if !ok {
				break
			}
			cur = next
		}
	}
	return nil
}

// Describe flattens validator errors into one ValidationError.
func Describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &leave.ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	return &leave.ValidationError{
		Field:   fe.Field(),
		Message: fmt.Sprintf("failed %q validation", fe.Tag()),
	}
}
