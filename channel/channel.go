package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-fwextract/internal/pool"
	"github.com/arloliu/go-fwextract/logger"
)

var (
	// ErrTimedOut is returned by ReadByte when no byte arrived before the
	// deadline. It is an expected condition, not a failure.
	ErrTimedOut = errors.New("channel: read timed out")

	// ErrClosed is returned by operations on a closed channel.
	ErrClosed = errors.New("channel: closed")
)

// DefaultQueueSize is the number of received bytes buffered between the
// device reader goroutine and ReadByte callers.
const DefaultQueueSize = 4096

// drainer is implemented by serial ports that can wait for the transmit
// buffer to empty.
type drainer interface {
	Drain() error
}

// Channel is a duplex byte stream over a device node.
//
// A single goroutine reads the underlying device and queues every byte, so a
// ReadByte that times out never consumes data: a byte arriving after the
// deadline is delivered to the next ReadByte call.
//
// Reads are NOT goroutine-safe; the extraction protocol has exactly one
// reader. Write and Close may be called from any goroutine.
type Channel struct {
	rw     io.ReadWriteCloser
	name   string
	logger logger.Logger

	queue chan byte
	done  chan struct{}

	readErr atomic.Pointer[error]
	pending []byte

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New wraps rw and starts the background reader.
func New(rw io.ReadWriteCloser, opts ...Option) *Channel {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	c := &Channel{
		rw:     rw,
		name:   o.name,
		logger: o.logger.With("device", o.name),
		queue:  make(chan byte, o.queueSize),
		done:   make(chan struct{}),
	}

	go c.pump()

	return c
}

// Name returns the device name the channel was opened with.
func (c *Channel) Name() string { return c.name }

// IsClosed reports whether Close has been called.
func (c *Channel) IsClosed() bool { return c.closed.Load() }

// ReadByte reads one byte, waiting at most timeout for it to arrive.
//
// It returns ErrTimedOut when the deadline expires, ctx.Err() when ctx is
// done, ErrClosed after Close, and io.EOF (or the device error) once the
// device stream has ended and every queued byte was delivered.
func (c *Channel) ReadByte(ctx context.Context, timeout time.Duration) (byte, error) {
	if b, ok := c.popPending(); ok {
		return b, nil
	}

	// Fast path: a byte is already queued, no timer needed.
	select {
	case b, ok := <-c.queue:
		return c.deliver(b, ok)
	default:
	}

	t := pool.GetTimer(timeout)
	defer pool.PutTimer(t)

	select {
	case b, ok := <-c.queue:
		return c.deliver(b, ok)
	case <-t.C:
		return 0, ErrTimedOut
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-c.done:
		return 0, ErrClosed
	}
}

// ReadByteWait reads one byte without a deadline. Only ctx cancellation,
// Close, or the end of the device stream interrupt it.
func (c *Channel) ReadByteWait(ctx context.Context) (byte, error) {
	if b, ok := c.popPending(); ok {
		return b, nil
	}

	select {
	case b, ok := <-c.queue:
		return c.deliver(b, ok)
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-c.done:
		return 0, ErrClosed
	}
}

// UnreadByte pushes b back so the next read returns it.
func (c *Channel) UnreadByte(b byte) {
	c.pending = append(c.pending, b)
}

// Write writes all of p to the device and waits for the transmit buffer to
// drain when the device supports it.
func (c *Channel) Write(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}

	for written := 0; written < len(p); {
		n, err := c.rw.Write(p[written:])
		written += n

		if err != nil {
			return fmt.Errorf("channel: write %s: %w", c.name, err)
		}
	}

	if d, ok := c.rw.(drainer); ok {
		if err := d.Drain(); err != nil {
			return fmt.Errorf("channel: drain %s: %w", c.name, err)
		}
	}

	return nil
}

// Close stops the reader and closes the device. It is safe to call more
// than once; later calls return the first result.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		c.closeErr = c.rw.Close()
		c.logger.Debug("channel closed")
	})

	return c.closeErr
}

func (c *Channel) popPending() (byte, bool) {
	n := len(c.pending)
	if n == 0 {
		return 0, false
	}
	b := c.pending[n-1]
	c.pending = c.pending[:n-1]

	return b, true
}

func (c *Channel) deliver(b byte, ok bool) (byte, error) {
	if ok {
		return b, nil
	}

	if c.closed.Load() {
		return 0, ErrClosed
	}
	if errp := c.readErr.Load(); errp != nil {
		return 0, *errp
	}

	return 0, io.EOF
}

// pump copies device bytes into the queue until the device fails or the
// channel is closed. The queue is closed only after readErr is recorded.
func (c *Channel) pump() {
	defer close(c.queue)

	buf := make([]byte, 256)
	for {
		n, err := c.rw.Read(buf)
		for _, b := range buf[:n] {
			select {
			case c.queue <- b:
			case <-c.done:
				return
			}
		}

		if err != nil {
			if !c.closed.Load() && !errors.Is(err, io.EOF) {
				c.logger.Warn("device read failed", "error", err)
			}
			c.readErr.Store(&err)

			return
		}
	}
}
