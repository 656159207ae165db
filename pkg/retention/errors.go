package retention

import "fmt"

// ConfigError is returned before any deletion when the purge parameters are invalid.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid retention config %s: %s", e.Field, e.Message)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// StepError reports the statement that aborted a purge run.
type StepError struct {
	Step  string // Step name
	Table string // Table the step deletes from
	Cause error  // Underlying driver error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("truncation step %s [table=%s] failed: %v", e.Step, e.Table, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StepError) Unwrap() error {
	return e.Cause
}

// PlanError reports a plan that would violate referential integrity.
type PlanError struct {
	Step      string
	Table     string
	Dependent string
	Reason    string
}

// Error implements the error interface.
func (e *PlanError) Error() string {
	if e.Dependent == "" {
		return fmt.Sprintf("invalid plan at step %s [table=%s]: %s", e.Step, e.Table, e.Reason)
	}
	return fmt.Sprintf("invalid plan at step %s [table=%s, dependent=%s]: %s",
		e.Step, e.Table, e.Dependent, e.Reason)
}
