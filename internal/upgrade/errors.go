package upgrade

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDependencyFileNotFound indicates the configured dependency order file does not exist.
	ErrDependencyFileNotFound = errors.New("dependency file doesn't exist")

	// ErrMissingDependencies indicates the dependency file lists scripts the provider did not yield.
	ErrMissingDependencies = errors.New("dependencies listed in dependency file can't be found")

	// ErrPanic indicates a collaborator panicked during a run.
	ErrPanic = errors.New("panic during upgrade")
)

// ConfigurationError reports an engine configuration that cannot work.
type ConfigurationError struct {
	Field  string // Config field at fault
	Reason string // What is wrong with it
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid upgrade configuration: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// DependencyFileError wraps a dependency order file that is missing or
// names scripts that do not exist.
type DependencyFileError struct {
	Path    string   // Dependency file path
	Missing []string // Every listed name with no matching script
	Err     error    // ErrDependencyFileNotFound, ErrMissingDependencies or a read error
}

func (e *DependencyFileError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("dependency file %s: %v: %s", e.Path, e.Err, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("dependency file %s: %v", e.Path, e.Err)
}

func (e *DependencyFileError) Unwrap() error {
	return e.Err
}

func (e *DependencyFileError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// ScriptError attributes a run failure to the script in progress.
type ScriptError struct {
	Script string // Name of the script being processed when the run failed
	Err    error  // Underlying error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("error occurred in script %s: %v", e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// NewScriptError creates a ScriptError.
func NewScriptError(name string, err error) *ScriptError {
	return &ScriptError{Script: name, Err: err}
}
