package session

import (
	"io"
	"os"

	"github.com/arloliu/go-fwextract/hexdump"
)

type sessionOptions struct {
	echo    io.Writer
	dump    io.Writer
	notice  io.Writer
	metrics *Metrics
	onLine  func(hexdump.DecodedLine)
}

func defaultSessionOptions() sessionOptions {
	return sessionOptions{
		echo:   os.Stdout,
		dump:   os.Stdout,
		notice: os.Stdout,
	}
}

// SessionOption configures a CommandSession or an ExtractionSession.
type SessionOption func(*sessionOptions)

// WithEchoWriter sets where target responses are forwarded.
func WithEchoWriter(w io.Writer) SessionOption {
	return func(o *sessionOptions) {
		if w != nil {
			o.echo = w
		}
	}
}

// WithDumpWriter sets where decoded lines are rendered.
func WithDumpWriter(w io.Writer) SessionOption {
	return func(o *sessionOptions) {
		if w != nil {
			o.dump = w
		}
	}
}

// WithNoticeWriter sets where run notices ("End of data.", status) go.
func WithNoticeWriter(w io.Writer) SessionOption {
	return func(o *sessionOptions) {
		if w != nil {
			o.notice = w
		}
	}
}

// WithMetrics sets the counters the session updates.
func WithMetrics(m *Metrics) SessionOption {
	return func(o *sessionOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithLineHandler registers fn to be called with every line written to the
// output, complete or partial. fn runs on the session goroutine.
func WithLineHandler(fn func(hexdump.DecodedLine)) SessionOption {
	return func(o *sessionOptions) {
		o.onLine = fn
	}
}

func buildSessionOptions(opts []SessionOption) sessionOptions {
	o := defaultSessionOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = &Metrics{}
	}

	return o
}
