package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/go-fwextract/channel"
	"github.com/arloliu/go-fwextract/hexdump"
	"github.com/arloliu/go-fwextract/logger"
	"github.com/arloliu/go-fwextract/protocol"
	"github.com/arloliu/go-fwextract/transfer"
)

// NoStatusDiagnostic is the Result diagnostic when the target sent no
// complete status trailer.
const NoStatusDiagnostic = "no status received"

// Result summarizes one extraction run.
type Result struct {
	RunID        string
	Lines        int
	BytesWritten int64
	Malformed    int
	// Status is nil when no complete trailer was received.
	Status     *transfer.StatusFrame
	Diagnostic string
	Duration   time.Duration
}

// Fault reports whether the target ended the run with a fault status.
func (r *Result) Fault() bool {
	return r.Status != nil && r.Status.Code.IsFault()
}

// ExtractionSession drives one firmware extraction from configuration to
// the final status.
//
// Run may be called once; it closes the channel and the sink on return.
type ExtractionSession struct {
	ch     *channel.Channel
	cfg    *Config
	sink   Sink
	cmd    *CommandSession
	opts   sessionOptions
	logger logger.Logger
}

// NewExtractionSession creates an ExtractionSession reading from ch and
// writing decoded bytes to sink.
func NewExtractionSession(ch *channel.Channel, cfg *Config, sink Sink, opts ...SessionOption) (*ExtractionSession, error) {
	if ch == nil {
		return nil, ErrChannelNil
	}
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if sink == nil {
		return nil, ErrSinkNil
	}

	o := buildSessionOptions(opts)

	return &ExtractionSession{
		ch:     ch,
		cfg:    cfg,
		sink:   sink,
		cmd:    newCommandSession(ch, cfg, o),
		opts:   o,
		logger: cfg.GetLogger().With("channel", ch.Name()),
	}, nil
}

// Metrics returns the counters updated by the session.
func (s *ExtractionSession) Metrics() *Metrics {
	return s.opts.metrics
}

// Run configures the target, starts the transfer and writes every decoded
// line to the sink until the transfer monitor finishes.
//
// A fault status is reported in the Result, not as an error.
func (s *ExtractionSession) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{RunID: uuid.NewString(), Diagnostic: NoStatusDiagnostic}
	log := s.logger.With("run", res.RunID)
	begin := time.Now()

	s.opts.metrics.incRunCount()

	defer func() {
		if cerr := s.sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("session: close output: %w", cerr)
		}
		if cerr := s.ch.Close(); cerr != nil {
			log.Debug("close channel", "error", cerr)
		}
		res.Duration = time.Since(begin)
	}()

	log.Info("extraction started", "config", s.cfg.String())

	monitor := transfer.NewMonitor(
		transfer.WithLogger(log),
		transfer.WithStateChangeHandler(s.notifyStateChange),
	)

	if err := s.configure(ctx); err != nil {
		return res, err
	}

	if _, err := s.cmd.Send(ctx, protocol.Start()); err != nil {
		return res, err
	}
	fmt.Fprintln(s.opts.notice)

	dec := hexdump.NewDecoder(s.ch, s.cfg.inactivityTimeout)
	if err := s.stream(ctx, dec, monitor, res, log); err != nil {
		return res, err
	}

	// the stream went quiet; let the monitor decide the rest
	for {
		s.opts.metrics.incTimeoutCount()

		switch action := monitor.OnTimeout(); action {
		case transfer.ActionPause:
			if err := s.cmd.SendEchoFunc(ctx, protocol.Pause(), monitor.Observe); err != nil {
				return res, err
			}
		default:
			s.finish(res, monitor, log)
			return res, nil
		}
	}
}

func (s *ExtractionSession) configure(ctx context.Context) error {
	cmds := []protocol.Command{
		protocol.SetAddress(s.cfg.startAddress),
		protocol.SetLength(s.cfg.length),
		protocol.HexMode(),
		protocol.ByteOrderCommand(s.cfg.byteOrder),
	}

	for _, cmd := range cmds {
		if _, err := s.cmd.Send(ctx, cmd); err != nil {
			return err
		}
	}

	return nil
}

// stream decodes lines until the data goes quiet. After an end-of-data
// terminator the remaining bytes are echoed and observed until quiet.
func (s *ExtractionSession) stream(
	ctx context.Context,
	dec *hexdump.Decoder,
	monitor *transfer.Monitor,
	res *Result,
	log logger.Logger,
) error {
	for {
		line, err := dec.Next(ctx)
		if werr := s.emit(line, err == nil, res, log); werr != nil {
			return werr
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, hexdump.ErrEndOfData):
			log.Debug("end of data terminator received", "address", dec.Address())
			if _, derr := s.cmd.echoUntilQuiet(ctx, monitor.Observe); derr != nil {
				return fmt.Errorf("session: trailing output: %w", derr)
			}

			return nil
		case errors.Is(err, channel.ErrTimedOut):
			return nil
		default:
			return fmt.Errorf("session: data stream: %w", err)
		}
	}
}

// emit writes a decoded line to the sink and the dump writer.
func (s *ExtractionSession) emit(line hexdump.DecodedLine, complete bool, res *Result, log logger.Logger) error {
	if line.Malformed > 0 {
		res.Malformed += line.Malformed
		s.opts.metrics.addMalformedCount(line.Malformed)
		log.Warn("malformed hex pair skipped", "address", fmt.Sprintf("0x%08X", line.Address), "count", line.Malformed)
	}

	if len(line.Data) == 0 {
		return nil
	}

	n, err := s.sink.Write(line.Data)
	res.BytesWritten += int64(n)
	s.opts.metrics.addByteCount(n)
	if err != nil {
		return fmt.Errorf("session: write output: %w", err)
	}
	if err := s.sink.Flush(); err != nil {
		return fmt.Errorf("session: flush output: %w", err)
	}

	if complete {
		res.Lines++
		s.opts.metrics.incLineCount()
	}

	fmt.Fprintln(s.opts.dump, hexdump.Render(line))

	if s.opts.onLine != nil {
		s.opts.onLine(line)
	}

	return nil
}

func (s *ExtractionSession) finish(res *Result, monitor *transfer.Monitor, log logger.Logger) {
	if frame, ok := monitor.Status(); ok {
		res.Status = &frame
		res.Diagnostic = frame.Describe()

		fmt.Fprintf(s.opts.notice, "\nStatusCode: %s\n%s\n", frame.Code, res.Diagnostic)

		if frame.Code.IsFault() {
			s.opts.metrics.incFaultCount()
			log.Warn("target reported a fault", "code", frame.Code, "diagnostic", res.Diagnostic)
		}
	} else if perr := monitor.Err(); perr != nil {
		log.Warn("status trailer unreadable", "error", perr)
	}

	log.Info("extraction finished",
		"lines", res.Lines,
		"bytes", res.BytesWritten,
		"malformed", res.Malformed,
		"diagnostic", res.Diagnostic,
	)
}

func (s *ExtractionSession) notifyStateChange(_ transfer.State, next transfer.State) {
	switch next {
	case transfer.AwaitingTrailer:
		fmt.Fprintln(s.opts.notice, "\nEnd of data.")
	case transfer.Finished:
		fmt.Fprintln(s.opts.notice, "\nProgram finished.")
	}
}
