package connector

import (
	"errors"
	"fmt"
)

// Kind classifies connector failures.
type Kind int

const (
	// KindWrongCredentials means the portal rejected the username or secret.
	KindWrongCredentials Kind = iota + 1
	// KindNetwork covers transport failures and gateway errors.
	KindNetwork
	// KindMaintenance means the portal announced a maintenance window.
	KindMaintenance
	// KindInvalidResponse means the portal answered something unexpected.
	KindInvalidResponse
	// KindParse means the portal answer could not be decoded.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindWrongCredentials:
		return "wrong_credentials"
	case KindNetwork:
		return "network"
	case KindMaintenance:
		return "maintenance"
	case KindInvalidResponse:
		return "invalid_response"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is a classified connector failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connector %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("connector %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 if err is not a connector error.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return 0
}

// IsWrongCredentials reports whether err is a rejected login.
func IsWrongCredentials(err error) bool {
	return KindOf(err) == KindWrongCredentials
}
