package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arloliu/go-fwextract/channel"
	"github.com/arloliu/go-fwextract/hexdump"
	"github.com/arloliu/go-fwextract/internal/cliconfig"
	"github.com/arloliu/go-fwextract/logger"
	"github.com/arloliu/go-fwextract/metrics"
	"github.com/arloliu/go-fwextract/protocol"
	"github.com/arloliu/go-fwextract/session"
)

// app carries the state shared by all subcommands.
type app struct {
	cfg     cliconfig.Config
	cfgPath string

	out      io.Writer
	log      logger.Logger
	registry *channel.Registry
	metrics  *session.Metrics

	// open overrides how device paths are opened; nil opens serial ports.
	open channel.OpenFunc
}

func newApp(out io.Writer) *app {
	return &app{
		cfg:     cliconfig.DefaultConfig(),
		out:     out,
		log:     logger.GetLogger(),
		metrics: &session.Metrics{},
	}
}

// prepare layers configuration (file, environment, flags, positional
// device), validates it and sets up logging and the channel registry.
func (a *app) prepare(cmd *cobra.Command, args []string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}

	if len(args) > 0 {
		a.cfg.Device = args[0]
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	level, _ := logger.ParseLevel(a.cfg.LogLevel)
	a.log = logger.NewSlog(logger.SlogOptions{
		Level:  level,
		Format: logger.Format(a.cfg.LogFormat),
	})
	logger.SetDefault(a.log)

	a.log.Debug("configuration", "device", a.cfg.Device, "start", a.cfg.StartAddress,
		"length", a.cfg.Length, "byteorder", a.cfg.ByteOrder, "outfile", a.cfg.OutFile)

	a.initRegistry()

	return nil
}

func (a *app) initRegistry() {
	if a.registry != nil {
		return
	}

	open := a.open
	if open == nil {
		open = func(path string) (*channel.Channel, error) {
			return channel.OpenSerial(path,
				channel.WithBaudRate(a.cfg.BaudRate),
				channel.WithLogger(a.log),
			)
		}
	}
	a.registry = channel.NewRegistry(open)
}

// closeAll releases every open device.
func (a *app) closeAll() {
	if a.registry == nil {
		return
	}
	if err := a.registry.CloseAll(); err != nil {
		a.log.Debug("close devices", "error", err)
	}
}

func (a *app) sessionConfig() (*session.Config, error) {
	opts, err := a.cfg.SessionOptions(a.log)
	if err != nil {
		return nil, err
	}

	return session.NewConfig(opts...)
}

// extract runs one extraction with the current configuration.
func (a *app) extract(ctx context.Context) (*session.Result, error) {
	scfg, err := a.sessionConfig()
	if err != nil {
		return nil, err
	}

	if !scfg.IsWordAligned() {
		a.log.Warn("start address or length not word aligned, the target rounds them",
			"start", fmt.Sprintf("0x%X", scfg.StartAddress()),
			"length", fmt.Sprintf("0x%X", scfg.Length()),
		)
	}

	ch, err := a.registry.Acquire(a.cfg.Device)
	if err != nil {
		return nil, err
	}

	sink, err := session.OpenFileSink(a.cfg.OutFile)
	if err != nil {
		_ = a.registry.Release(a.cfg.Device)
		return nil, err
	}

	opts := []session.SessionOption{
		session.WithEchoWriter(a.out),
		session.WithDumpWriter(a.out),
		session.WithNoticeWriter(a.out),
		session.WithMetrics(a.metrics),
	}

	var bar *progressBar
	if a.cfg.Progress {
		bar = newProgressBar(filepath.Base(a.cfg.Device), int64(scfg.Length()))
		opts = append(opts,
			session.WithDumpWriter(io.Discard),
			session.WithLineHandler(func(line hexdump.DecodedLine) { bar.add(len(line.Data)) }),
		)
	}

	s, err := session.NewExtractionSession(ch, scfg, sink, opts...)
	if err != nil {
		_ = sink.Close()
		_ = a.registry.Release(a.cfg.Device)
		return nil, err
	}

	res, err := s.Run(ctx)
	if bar != nil {
		bar.finish(err == nil)
	}

	if merr := a.writeMetrics(); merr != nil {
		a.log.Warn("metrics not written", "error", merr)
	}

	if err != nil {
		return res, err
	}

	a.log.Info("output written", "path", sink.Path(), "bytes", res.BytesWritten, "run", res.RunID)
	if res.Fault() {
		a.log.Warn("run ended with device fault", "code", res.Status.Code, "diagnostic", res.Diagnostic)
	}

	return res, nil
}

// stats asks the target for its extraction statistics.
func (a *app) stats(ctx context.Context) error {
	return a.sendEcho(ctx, protocol.Pause())
}

// sendEcho sends cmd and forwards everything the target prints.
func (a *app) sendEcho(ctx context.Context, cmd protocol.Command) error {
	scfg, err := a.sessionConfig()
	if err != nil {
		return err
	}

	ch, err := a.registry.Acquire(a.cfg.Device)
	if err != nil {
		return err
	}

	s, err := session.NewCommandSession(ch, scfg,
		session.WithEchoWriter(a.out),
		session.WithMetrics(a.metrics),
	)
	if err != nil {
		return err
	}

	err = s.SendEcho(ctx, cmd)
	if errors.Is(err, session.ErrUndecodableResponse) {
		_ = a.registry.Release(a.cfg.Device)
	}

	return err
}

func (a *app) writeMetrics() error {
	if a.cfg.MetricsFile == "" {
		return nil
	}

	reg, err := metrics.NewRegistry(filepath.Base(a.cfg.Device), a.metrics, nil)
	if err != nil {
		return err
	}

	return metrics.WriteTextfile(a.cfg.MetricsFile, reg)
}
