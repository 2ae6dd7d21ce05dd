package convlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/potatobot-core/server/internal/agent/model"
)

// WriteError reports an I/O failure while appending a turn record. Logging is
// best-effort and secondary to serving the reply, so callers observe the
// failure without aborting the turn.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("conversation log %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer appends one JSON line per turn record to a log file. Writes are
// serialized with an exclusive lock so concurrent writers never interleave
// partial lines; each write is a single append of one complete line plus
// newline. Any pre-existing file at the path is truncated at construction
// (clean log per process start).
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}
	return &Writer{path: path, f: f}, nil
}

// Write serializes the record to a single JSON line and appends it. Record
// types form a closed, natively JSON-representable set, so marshalling only
// fails on I/O grounds.
func (w *Writer) Write(record *model.TurnRecord) error {
	b, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Path: w.path, Err: err}
	}
	b = append(b, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.f.Write(b); err != nil {
		return &WriteError{Path: w.path, Err: err}
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// Path returns the configured log file location.
func (w *Writer) Path() string {
	return w.path
}
