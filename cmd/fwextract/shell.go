package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/arloliu/go-fwextract/protocol"
	"github.com/arloliu/go-fwextract/session"
)

var shellVerbs = []struct {
	usage string
	help  string
}{
	{"set KEY VAL", "Set configuration value KEY to VAL"},
	{"cmd CODE", "Send command code to the target"},
	{"run", "Start reading out the configured range"},
	{"show", "Show the current configuration"},
	{"help", "Show this help page"},
	{"exit", "Leave the shell"},
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell DEVICE",
		Short: "Configure and run extractions interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.prepare(cmd, args); err != nil {
				return err
			}

			return a.shell(cmd.Context())
		},
	}
}

func historyPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".fwextract", "history")
	}

	return ""
}

// shell runs the interactive prompt until exit, end of input or ^C.
func (a *app) shell(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) (c []string) {
		for _, v := range shellVerbs {
			name := strings.Fields(v.usage)[0]
			if strings.HasPrefix(name, strings.ToLower(input)) {
				c = append(c, name)
			}
		}
		return
	})

	hist := historyPath()
	if hist != "" {
		if f, err := os.Open(hist); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}

	a.showHelp()
	fmt.Fprintln(a.out)
	a.cfg.Show(a.out)

	var shellErr error
	for {
		input, err := line.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(a.out, "Interrupt received. Shutting down...")
			break
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(a.out, "Reached end of input. Leaving...")
			break
		}
		if err != nil {
			shellErr = err
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		quit, err := a.handleShellLine(ctx, input)
		if err != nil {
			shellErr = err
			break
		}
		if quit {
			break
		}
	}

	if hist != "" {
		if err := os.MkdirAll(filepath.Dir(hist), 0o755); err == nil {
			if f, err := os.Create(hist); err == nil {
				_, _ = line.WriteHistory(f)
				f.Close()
			}
		}
	}

	return shellErr
}

// handleShellLine executes one shell line. It reports whether the shell
// should exit; a returned error ends the shell as well.
func (a *app) handleShellLine(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "set":
		if len(fields) != 3 {
			fmt.Fprintln(a.out, "Error: usage: set KEY VAL")
			return false, nil
		}
		if err := a.cfg.Set(fields[1], fields[2]); err != nil {
			fmt.Fprintf(a.out, "Error: %v\n", err)
			return false, nil
		}
		a.cfg.Show(a.out)

	case "cmd":
		if len(fields) < 2 {
			fmt.Fprintln(a.out, "Error: usage: cmd CODE")
			return false, nil
		}
		runCtx, stop := signalContext(ctx)
		err := a.sendEcho(runCtx, protocol.Raw(strings.Join(fields[1:], " ")))
		stop()

		return false, a.reportShellErr(err)

	case "run":
		runCtx, stop := signalContext(ctx)
		_, err := a.extract(runCtx)
		stop()

		return false, a.reportShellErr(err)

	case "show":
		a.cfg.Show(a.out)

	case "help":
		a.showHelp()

	case "exit", "quit":
		fmt.Fprintln(a.out, "Exit command received. Leaving...")
		return true, nil

	default:
		fmt.Fprintln(a.out, "Error: Unknown command.")
		fmt.Fprintln(a.out, "Try 'help'")
	}

	return false, nil
}

// reportShellErr prints recoverable errors and returns the fatal ones.
func (a *app) reportShellErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrUndecodableResponse):
		return err
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(a.out, "Interrupted.")
		return nil
	default:
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return nil
	}
}

func (a *app) showHelp() {
	fmt.Fprintln(a.out, "# Supported commands")
	for _, v := range shellVerbs {
		fmt.Fprintf(a.out, "  %-12s: %s\n", v.usage, v.help)
	}
}
