package session

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/arloliu/go-fwextract/channel"
	"github.com/arloliu/go-fwextract/internal/targetsim"
)

// bufferSink is an in-memory Sink that records flushes and closing.
type bufferSink struct {
	bytes.Buffer
	flushes int
	closed  bool
}

func (s *bufferSink) Flush() error {
	s.flushes++
	return nil
}

func (s *bufferSink) Close() error {
	s.closed = true
	return nil
}

// newTestConfig creates a Config with short timeouts suitable for tests.
func newTestConfig(t *testing.T, opts ...ConfigOption) *Config {
	t.Helper()

	defaults := []ConfigOption{
		WithInactivityTimeout(MinInactivityTimeout), // 100ms
		WithSettleDelay(0),
	}

	cfg, err := NewConfig(append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestConfig: %v", err)
	}

	return cfg
}

// newTestTarget connects a Channel to a simulated target over net.Pipe().
func newTestTarget(t *testing.T, opts ...targetsim.Option) (*channel.Channel, *targetsim.Target) {
	t.Helper()

	local, remote := net.Pipe()
	ch := channel.New(local, channel.WithName("sim"))
	tgt := targetsim.New(remote, opts...)

	done := make(chan error, 1)
	go func() { done <- tgt.Serve() }()

	t.Cleanup(func() {
		_ = ch.Close()
		_ = tgt.Close()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("target: %v", err)
			}
		case <-time.After(time.Second):
			t.Error("target did not stop")
		}
	})

	return ch, tgt
}

// newSilentDevice connects a Channel to a device that reads commands and
// never answers.
func newSilentDevice(t *testing.T) *channel.Channel {
	t.Helper()

	local, remote := net.Pipe()
	ch := channel.New(local, channel.WithName("silent"))

	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := remote.Read(buf); err != nil {
				return
			}
		}
	}()

	t.Cleanup(func() {
		_ = ch.Close()
		_ = remote.Close()
	})

	return ch
}

// memoryImage returns n bytes counting up from 0.
func memoryImage(n int) []byte {
	mem := make([]byte, n)
	for i := range mem {
		mem[i] = byte(i)
	}

	return mem
}
