package baseline

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when no baseline has been written yet.
// It marks a first run rather than a failure.
var ErrNotFound = errors.New("baseline not found")

// ErrLocked is returned by Lock when another run holds the baseline.
var ErrLocked = errors.New("baseline is locked by another run")

// ErrUnrepresentablePath is returned for paths the baseline file cannot hold
// verbatim. CSV readers fold a CR LF pair inside a field into LF, so such a
// path would never match itself on the next run.
var ErrUnrepresentablePath = errors.New("path contains a CR LF sequence")

// CorruptError reports a persisted baseline that cannot be trusted.
type CorruptError struct {
	Path   string
	Line   int
	Reason string
}

func (e *CorruptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("corrupt baseline %s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("corrupt baseline %s: %s", e.Path, e.Reason)
}
