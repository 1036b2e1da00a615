package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vango-dev/vtemplate/internal/config"
	"github.com/vango-dev/vtemplate/internal/errors"
	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/preview"
	"github.com/vango-dev/vtemplate/pkg/telemetry"
	"github.com/vango-dev/vtemplate/pkg/view"
)

func serveCmd() *cobra.Command {
	var (
		port  int
		host  string
		watch bool
		sets  []string
	)

	cmd := &cobra.Command{
		Use:   "serve [template.yaml]",
		Short: "Preview a template in the browser",
		Long: `Start the preview server for a template.

The template is rendered on the server and mirrored in the browser.
Clicks and input in the page are sent back to the server, and every
DOM change they cause is streamed to the page over a WebSocket.

Without an argument the first entry of "templates" in vtemplate.json
is served.

Examples:
  vtemplate serve toolbar.yaml
  vtemplate serve toolbar.yaml --watch --port=8080
  vtemplate serve --config ./vtemplate.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Preview.Port = port
			}
			if host != "" {
				cfg.Preview.Host = host
			}
			if cmd.Flags().Changed("watch") {
				cfg.Preview.Watch = watch
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var file string
			switch paths := cfg.TemplatePaths(); {
			case len(args) == 1:
				file = args[0]
			case len(paths) > 0:
				file = paths[0]
			default:
				return errors.New("C002").
					WithDetail("No template file given and no \"templates\" entry in " + config.ConfigFileName).
					WithSuggestion("Run vtemplate serve <template.yaml>")
			}
			return runServe(cmd, cfg, file, sets)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from vtemplate.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from vtemplate.json)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload when the template file changes")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a model value (name=value)")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config, file string, sets []string) error {
	logger := newLogger(cfg, cmd.ErrOrStderr())

	pcfg := preview.Config{
		Title:         cfg.Preview.Title,
		WebSocketPath: cfg.Preview.WebSocketPath,
		Logger:        logger,
		MetricsPath:   cfg.Metrics.Path,
	}
	if cfg.Metrics.Enabled {
		pcfg.Metrics = telemetry.NewMetrics(telemetry.WithNamespace(cfg.Metrics.Namespace))
	}
	if cfg.Tracing.Enabled {
		pcfg.Tracer = telemetry.NewTracer(cfg.Tracing.TracerName)
	}

	load := func(doc *dom.Document) (*view.View, error) {
		return buildView(doc, file, sets)
	}
	srv, err := preview.New(load, pcfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Preview.Watch {
		go func() {
			if err := srv.Watch(ctx, file); err != nil {
				logger.Error("watch failed", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.PreviewAddress(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	success(cmd.ErrOrStderr(), "Previewing %s", file)
	info(cmd.ErrOrStderr(), "Local: %s", cfg.PreviewURL())
	logger.Info("preview server started", "addr", httpServer.Addr, "file", file, "watch", cfg.Preview.Watch)

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("X005").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.New("X005").Wrap(err)
	}
	return nil
}
