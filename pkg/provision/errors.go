package provision

import "fmt"

type (
	// ConfigError reports an invalid batch-level option value. It is fatal
	// for the whole batch and is raised before any remote call is issued.
	ConfigError struct {
		Option string
		Value  string
		Reason string
	}

	// ValidationError reports a table that failed a precondition check
	// (missing source, unresolvable or wrong-engine destination namespace).
	// The table is excluded from the batch; remaining tables still run.
	ValidationError struct {
		Table  string
		Reason string
	}

	// OperationError reports a failed remote operation. The affected table's
	// remaining steps are skipped; the batch continues with other tables.
	OperationError struct {
		Table string
		Step  string
		Err   error
	}
)

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid value %q for option %s: %s", e.Value, e.Option, e.Reason)
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("table %s: %s", e.Table, e.Reason)
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("table %s: %s failed: %v", e.Table, e.Step, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
