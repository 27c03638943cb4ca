package types

import "time"

// Severity of a validation finding. Errors block commit; warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationFinding is one checklist result for one action
type ValidationFinding struct {
	ActionID string   `json:"action_id"`
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Conflict is a target-path collision discovered during validation
type Conflict struct {
	ActionID     string       `json:"action_id"`
	Type         ConflictType `json:"type"`
	TargetPath   string       `json:"target_path"`
	ExistingPath string       `json:"existing_path,omitempty"`
	Resolved     bool         `json:"resolved"`
}

// ValidationReport is the structured result of validating a staged plan.
// Validation never raises: every problem becomes a finding or a conflict.
type ValidationReport struct {
	PlanID         string              `json:"plan_id"`
	GeneratedAt    time.Time           `json:"generated_at"`
	ActionsChecked int                 `json:"actions_checked"`
	ReviewCount    int                 `json:"review_count"`
	Findings       []ValidationFinding `json:"findings"`
	Conflicts      []Conflict          `json:"conflicts"`
}

// Blocking reports whether the plan can transition to validated
func (r *ValidationReport) Blocking() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	for _, c := range r.Conflicts {
		if !c.Resolved {
			return true
		}
	}
	return false
}

// Errors returns only the blocking findings
func (r *ValidationReport) Errors() []ValidationFinding {
	var out []ValidationFinding
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}
