package cli

import (
	"errors"
	"fmt"

	"ofn-hq/truncator/pkg/config"
	"ofn-hq/truncator/pkg/retention"
)

// Exit codes returned by the truncator command.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// UsageError represents an invalid flag or argument.
type UsageError struct {
	Flag    string
	Message string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("invalid --%s: %s", e.Flag, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewUsageError creates a new UsageError.
func NewUsageError(flag, message string) *UsageError {
	return &UsageError{
		Flag:    flag,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error to the process exit code. Errors raised before
// anything touched the database are usage errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usageErr *UsageError
	var retentionErr *retention.ConfigError
	var validationErr config.ValidationError
	switch {
	case errors.As(err, &usageErr),
		errors.As(err, &retentionErr),
		errors.As(err, &validationErr):
		return ExitUsage
	default:
		return ExitFailure
	}
}
