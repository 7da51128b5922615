package process

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a command could not produce a result.
type ErrorKind string

const (
	// KindSpawn means the process could not be started or waited on.
	KindSpawn ErrorKind = "spawn"

	// KindTimeout means the process was killed before it exited, either
	// because the timeout expired or the caller's context was cancelled.
	KindTimeout ErrorKind = "timeout"
)

// Sentinels matched by *Error through errors.Is.
var (
	// ErrSpawn matches any *Error of kind KindSpawn.
	ErrSpawn = errors.New("process: spawn failed")

	// ErrTimeout matches any *Error of kind KindTimeout.
	ErrTimeout = errors.New("process: timed out")
)

// Error describes a failed invocation.
type Error struct {
	// Kind is the failure class.
	Kind ErrorKind
	// Binary is the executable that was run.
	Binary string
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("process %s: %s: %v", e.Binary, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrSpawn:
		return e.Kind == KindSpawn
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}
