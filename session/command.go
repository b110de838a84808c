package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/arloliu/go-fwextract/channel"
	"github.com/arloliu/go-fwextract/internal/pool"
	"github.com/arloliu/go-fwextract/logger"
	"github.com/arloliu/go-fwextract/protocol"
)

// CommandSession exchanges commands and responses with the target.
//
// Only one command is outstanding at a time: the write and the read of its
// response happen under one lock.
type CommandSession struct {
	mu     sync.Mutex
	ch     *channel.Channel
	cfg    *Config
	opts   sessionOptions
	logger logger.Logger
}

// NewCommandSession creates a CommandSession over ch.
func NewCommandSession(ch *channel.Channel, cfg *Config, opts ...SessionOption) (*CommandSession, error) {
	if ch == nil {
		return nil, ErrChannelNil
	}
	if cfg == nil {
		return nil, ErrConfigNil
	}

	return newCommandSession(ch, cfg, buildSessionOptions(opts)), nil
}

func newCommandSession(ch *channel.Channel, cfg *Config, opts sessionOptions) *CommandSession {
	return &CommandSession{
		ch:     ch,
		cfg:    cfg,
		opts:   opts,
		logger: cfg.GetLogger().With("channel", ch.Name()),
	}
}

// Metrics returns the counters updated by the session.
func (s *CommandSession) Metrics() *Metrics {
	return s.opts.metrics
}

// Send writes cmd and waits, without deadline, for the one-line response.
//
// Leading line terminators are skipped and a "\r\n" pair counts as one
// terminator. The response is forwarded to the echo writer and returned.
// Echo-mode commands are delegated to SendEcho and return an empty response.
func (s *CommandSession) Send(ctx context.Context, cmd protocol.Command) (string, error) {
	if cmd.Echo() {
		return "", s.SendEcho(ctx, cmd)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(ctx, cmd); err != nil {
		return "", err
	}

	resp, err := s.readLine(ctx)
	if err != nil {
		return "", fmt.Errorf("session: response to %q: %w", cmd.Code(), err)
	}

	fmt.Fprintln(s.opts.echo, resp)
	s.logger.Debug("response received", "command", cmd.Code(), "response", resp)

	return resp, nil
}

// SendEcho writes cmd and forwards the target's output until the line goes
// quiet for the inactivity timeout.
func (s *CommandSession) SendEcho(ctx context.Context, cmd protocol.Command) error {
	return s.SendEchoFunc(ctx, cmd, nil)
}

// SendEchoFunc is SendEcho with an observer that sees every forwarded byte.
func (s *CommandSession) SendEchoFunc(ctx context.Context, cmd protocol.Command, observe func(byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(ctx, cmd); err != nil {
		return err
	}

	n, err := s.echoUntilQuiet(ctx, observe)
	if err != nil {
		return fmt.Errorf("session: response to %q: %w", cmd.Code(), err)
	}

	s.logger.Debug("echo drained", "command", cmd.Code(), "bytes", n)

	return nil
}

func (s *CommandSession) write(ctx context.Context, cmd protocol.Command) error {
	if !pool.Sleep(s.cfg.settleDelay, ctx.Done()) {
		return ctx.Err()
	}

	if err := s.ch.Write(cmd.Wire()); err != nil {
		return fmt.Errorf("session: send %q: %w", cmd.Code(), err)
	}

	s.opts.metrics.incCommandCount()
	s.logger.Debug("command sent", "command", cmd.Code())

	return nil
}

func (s *CommandSession) readLine(ctx context.Context) (string, error) {
	var sb strings.Builder

	for {
		b, err := s.ch.ReadByteWait(ctx)
		if err != nil {
			return "", err
		}

		if b >= utf8.RuneSelf {
			return "", fmt.Errorf("%w (byte 0x%02X)", ErrUndecodableResponse, b)
		}

		switch b {
		case '\r', '\n':
			if sb.Len() == 0 {
				continue
			}
			if b == '\r' {
				s.swallowLF(ctx)
			}

			return sb.String(), nil
		}

		sb.WriteByte(b)
	}
}

// swallowLF consumes the '\n' of a "\r\n" pair. Any other byte is pushed
// back; a timeout leaves the stream untouched.
func (s *CommandSession) swallowLF(ctx context.Context) {
	b, err := s.ch.ReadByte(ctx, s.cfg.inactivityTimeout)
	if err == nil && b != '\n' {
		s.ch.UnreadByte(b)
	}
}

// echoUntilQuiet forwards bytes until a read times out.
func (s *CommandSession) echoUntilQuiet(ctx context.Context, observe func(byte)) (int, error) {
	var buf [1]byte

	for n := 0; ; n++ {
		b, err := s.ch.ReadByte(ctx, s.cfg.inactivityTimeout)
		if errors.Is(err, channel.ErrTimedOut) {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		if b >= utf8.RuneSelf {
			return n, fmt.Errorf("%w (byte 0x%02X)", ErrUndecodableResponse, b)
		}

		buf[0] = b
		_, _ = s.opts.echo.Write(buf[:])

		if observe != nil {
			observe(b)
		}
	}
}
