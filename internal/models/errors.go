package models

// ValidationError reports a field that failed validation. Lifecycle
// operations surface it to their caller; it never aborts a batch run.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}
