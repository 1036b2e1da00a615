package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/vtemplate/internal/config"
	"github.com/vango-dev/vtemplate/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Flags shared by every command.
var (
	configFile string
	verbose    bool
	noColor    bool

	// logFormat is the log.format of the loaded config, used for errors.
	logFormat string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		errorPrinter(os.Stderr).Print(err)
		os.Exit(1)
	}
}

// errorPrinter prints JSON when the config logs JSON, the full report with
// --verbose, and one line otherwise.
func errorPrinter(w io.Writer) *errors.Printer {
	p := &errors.Printer{Out: w, Style: errors.StyleCompact, Color: !noColor}
	switch {
	case logFormat == "json":
		p.Style = errors.StyleJSON
		p.Color = false
	case verbose:
		p.Style = errors.StyleFull
	}
	return p
}

func rootCmd() *cobra.Command {
	logFormat = ""
	cmd := &cobra.Command{
		Use:   "vtemplate",
		Short: "Render, apply and preview view templates",
		Long: `vtemplate works with YAML view templates.

A template describes an element tree whose text, attributes and
listeners are bound to a model. The same template can be rendered
into fresh nodes or applied onto existing markup and later reverted.

  • render: print the HTML a template produces
  • apply:  graft a template onto a page, optionally reverting it
  • serve:  live preview with model and event round trips`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// Only the error style is taken from here. Commands that need
			// the config load it again and report its errors.
			_, _ = loadConfig()
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to "+config.ConfigFileName+" (default: nearest one above the working directory)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored error output")

	cmd.AddCommand(
		renderCmd(),
		applyCmd(),
		serveCmd(),
		versionCmd(),
	)
	return cmd
}

// loadConfig reads --config, or the nearest vtemplate.json, or defaults.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}
	logFormat = cfg.Log.Format
	return cfg, nil
}

// newLogger builds the process logger from the log section of cfg.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("component", "vtemplate")
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
