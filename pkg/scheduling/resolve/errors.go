package resolve

import (
	"errors"
	"fmt"
)

var (
	// ErrConsumed is returned when the outcome of an index was already handed out.
	ErrConsumed = errors.New("resolve: result already consumed")

	// ErrOutOfRange is returned for an index past the end of the task sequence.
	ErrOutOfRange = errors.New("resolve: index out of range")
)

// PositionError carries the error of the task at Index. Its message is the
// message of the underlying error; use %+v to include the index.
type PositionError struct {
	Index int
	Err   error
}

func (e *PositionError) Error() string { return e.Err.Error() }

// Unwrap returns the error raised by the task.
func (e *PositionError) Unwrap() error { return e.Err }

// Format implements fmt.Formatter.
func (e *PositionError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "task(index=%d): %+v", e.Index, e.Err)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// IndexOf returns the position of the failing task if err carries one.
func IndexOf(err error) (int, bool) {
	var perr *PositionError
	if errors.As(err, &perr) {
		return perr.Index, true
	}
	return 0, false
}
