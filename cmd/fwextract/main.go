package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var exampleUsage = strings.TrimSpace(`
  fwextract run /dev/ttyUSB0 -s 0x0 -l 0x10000 -e little -o firmware.bin
  fwextract run /dev/ttyUSB0 --progress --metrics-file /var/lib/node_exporter/fwextract.prom
  fwextract shell /dev/ttyUSB0
  fwextract stats /dev/ttyUSB0
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "fwextract",
		Short:         "Read out target flash through the extraction firmware's serial interface",
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.fwextract/config.toml)")
	flags.Uint32VarP(&a.cfg.StartAddress, "start", "s", a.cfg.StartAddress, "start address (0x prefix accepted)")
	flags.Uint32VarP(&a.cfg.Length, "length", "l", a.cfg.Length, "number of bytes to extract (0x prefix accepted)")
	flags.StringVarP(&a.cfg.ByteOrder, "endianness", "e", a.cfg.ByteOrder, "word byte order: little or big")
	flags.StringVarP(&a.cfg.OutFile, "outfile", "o", a.cfg.OutFile, "output file, appended to")
	flags.IntVar(&a.cfg.BaudRate, "baud", a.cfg.BaudRate, "serial line speed")
	flags.DurationVar(&a.cfg.InactivityTimeout, "inactivity-timeout", a.cfg.InactivityTimeout, "silence that ends the data stream")
	flags.DurationVar(&a.cfg.SettleDelay, "settle-delay", a.cfg.SettleDelay, "pause before each command")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level: debug, info, warn, error")
	flags.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "log format: console or json")
	flags.BoolVar(&a.cfg.Progress, "progress", a.cfg.Progress, "show a progress bar instead of the hex dump")
	flags.StringVar(&a.cfg.MetricsFile, "metrics-file", a.cfg.MetricsFile, "write prometheus metrics to this file after each run")

	root.AddCommand(
		newRunCmd(a),
		newShellCmd(a),
		newStatsCmd(a),
	)

	return root
}

func main() {
	a := newApp(os.Stdout)
	defer a.closeAll()

	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		a.closeAll()
		os.Exit(1)
	}
}
