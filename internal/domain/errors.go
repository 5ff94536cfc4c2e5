package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrConfig   = errors.New("configuration error")
	ErrNetwork  = errors.New("network error")
	ErrAPI      = errors.New("api error")
	ErrProtocol = errors.New("protocol error")
	ErrProvider = errors.New("provider error")
)

// Error carries a kind, the failed operation and its cause
type Error struct {
	Kind error
	Op   string
	Err  error
}

// NewError builds an *Error of the given kind
func NewError(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is/As
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the first error kind found in err's chain, or nil
func KindOf(err error) error {
	for _, kind := range []error{ErrConfig, ErrNetwork, ErrAPI, ErrProtocol, ErrProvider} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func WrapHostname(hostname string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("hostname[%s]: %w", hostname, err)
}
