package session

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Sink receives the decoded firmware bytes.
type Sink interface {
	io.Writer
	// Flush pushes buffered bytes to the underlying storage.
	Flush() error
	// Close flushes and releases the sink. It must be safe to call twice.
	Close() error
}

// FileSink appends to a file through a write buffer.
type FileSink struct {
	path string
	file *os.File
	w    *bufio.Writer

	closeOnce sync.Once
	closeErr  error
}

var _ Sink = (*FileSink)(nil)

// OpenFileSink opens path for appending, creating it if needed.
func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("session: open output %s: %w", path, err)
	}

	return &FileSink{path: path, file: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the file path.
func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *FileSink) Flush() error {
	return s.w.Flush()
}

func (s *FileSink) Close() error {
	s.closeOnce.Do(func() {
		flushErr := s.w.Flush()
		closeErr := s.file.Close()

		if flushErr != nil {
			s.closeErr = flushErr
		} else {
			s.closeErr = closeErr
		}
	})

	return s.closeErr
}
