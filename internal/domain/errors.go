package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to the shell.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConfiguration is a missing or invalid setting. Fatal.
	KindConfiguration
	// KindConnectivity is a store that is unreachable or rejects credentials.
	KindConnectivity
	// KindExternalService is a failure of the embedding, search or completion provider.
	KindExternalService
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnectivity:
		return "connectivity"
	case KindExternalService:
		return "external service"
	default:
		return "unknown"
	}
}

// Error tags an underlying error with its kind and the operation that failed.
// The wrapped error is left untouched so callers can inspect it with errors.Is/As.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ConfigurationError wraps err as a KindConfiguration error.
func ConfigurationError(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

// ConnectivityError wraps err as a KindConnectivity error.
func ConnectivityError(op string, err error) error {
	return &Error{Kind: KindConnectivity, Op: op, Err: err}
}

// ExternalServiceError wraps err as a KindExternalService error.
func ExternalServiceError(op string, err error) error {
	return &Error{Kind: KindExternalService, Op: op, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
