package evidence

import (
	"errors"
	"fmt"
)

var (
	ErrNotPack             = errors.New("evidence: not an evidence pack")
	ErrMalformedTrajectory = errors.New("evidence: malformed trajectory")
)

// WriteError reports a filesystem failure while writing a pack.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("evidence: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
