package sandbox

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a query was not answered.
type FailureKind string

const (
	// FailRejected: the statement violated policy and was never executed.
	FailRejected FailureKind = "rejected_statement"
	// FailTimeout: the query exceeded its wall-clock budget and was
	// cancelled driver-side. Inconclusive, not a refutation.
	FailTimeout FailureKind = "timeout"
	// FailExecution: the data store rejected or errored on an otherwise
	// permitted query. The store's message is preserved verbatim.
	FailExecution FailureKind = "execution_failed"
)

// Failure is the sandbox's only error type. Every failure mode is a typed
// result; nothing else escapes Execute.
type Failure struct {
	Kind   FailureKind
	Detail string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// AsFailure unwraps a sandbox failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func rejected(format string, args ...interface{}) *Failure {
	return &Failure{Kind: FailRejected, Detail: fmt.Sprintf(format, args...)}
}
