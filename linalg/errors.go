package linalg

import "fmt"

// NumericalError reports a violated numerical precondition inside a
// pipeline stage. It is raised with panic since the simulation state is
// no longer meaningful once it occurs.
type NumericalError struct {
	Stage  string
	Detail string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("numerical error in %s: %s", e.Stage, e.Detail)
}

// Fail panics with a *NumericalError.
func Fail(stage, format string, args ...any) {
	panic(&NumericalError{Stage: stage, Detail: fmt.Sprintf(format, args...)})
}
