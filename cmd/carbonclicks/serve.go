package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bullrushinvestments/carbonclicks"
	"github.com/bullrushinvestments/carbonclicks/internal/mockapi"
	"github.com/bullrushinvestments/carbonclicks/internal/server"
	"github.com/bullrushinvestments/carbonclicks/internal/session"
	"github.com/bullrushinvestments/carbonclicks/internal/telemetry"
	"github.com/bullrushinvestments/carbonclicks/pkg/openapi"
	"github.com/bullrushinvestments/carbonclicks/pkg/renderers/html"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
)

type serveOptions struct {
	addr         string
	theme        string
	variant      string
	noMock       bool
	grace        time.Duration
	sessionTTL   time.Duration
	secureCookie bool
}

func newServeCmd(a *app) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the landing page and forms over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.addr != "" {
				a.cfg.Addr = opts.addr
			}
			if opts.theme != "" {
				a.cfg.Theme = opts.theme
			}
			if opts.variant != "" {
				a.cfg.Variant = opts.variant
			}
			if opts.noMock {
				a.cfg.MockAPI = false
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", "", "Listen address (default from config, :8080)")
	flags.StringVar(&opts.theme, "theme", "", "Theme name")
	flags.StringVar(&opts.variant, "variant", "", "Theme variant (e.g. dark)")
	flags.BoolVar(&opts.noMock, "no-mock-api", false, "Do not mount the demo backend")
	flags.DurationVar(&opts.grace, "grace", 5*time.Second, "Shutdown grace period")
	flags.DurationVar(&opts.sessionTTL, "session-ttl", session.DefaultTTL, "Idle lifetime of visitor sessions")
	flags.BoolVar(&opts.secureCookie, "secure-cookie", false, "Mark the session cookie Secure")
	return cmd
}

func runServe(ctx context.Context, a *app, opts *serveOptions) error {
	logger := a.logger

	shutdownTracing, err := telemetry.Setup(ctx, a.cfg.ServiceName, a.cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), opts.grace)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	}()

	registry, err := carbonclicks.LoadForms(a.cfg.FormsDir)
	if err != nil {
		return err
	}
	if err := a.checkBackend(registry.List()...); err != nil {
		return err
	}
	themes, err := html.NewThemes(html.DefaultManifest())
	if err != nil {
		return err
	}
	themeCfg, err := html.ResolveTheme(themes, a.cfg.Theme, a.cfg.Variant)
	if err != nil {
		return err
	}
	renderers, err := carbonclicks.NewRenderers()
	if err != nil {
		return err
	}
	doc, err := openapi.Build(registry.List(), openapi.WithServer(localURL(a.cfg.Addr)))
	if err != nil {
		return err
	}

	settings := a.settings(localURL(a.cfg.Addr))
	settings.OnCreate = func(formID string, state submission.State) {
		logger.Info("form submitted", zap.String("form", formID), zap.Uint64("seq", state.Seq))
	}
	settings.OnRefetch = func(formID, query string, data any) {
		if list, ok := data.([]any); ok {
			logger.Debug("query refetched", zap.String("form", formID), zap.String("query", query), zap.Int("items", len(list)))
		}
	}

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithRenderers(renderers),
		server.WithTheme(themeCfg),
		server.WithOpenAPI(doc),
		server.WithSessions(session.NewStore(
			session.WithTTL(opts.sessionTTL),
			session.WithSecureCookie(opts.secureCookie),
		)),
	}
	if a.cfg.MockAPI {
		serverOpts = append(serverOpts, server.WithMockAPI(mockapi.New(logger.Named("mockapi"))))
	}
	srv, err := server.New(registry, carbonclicks.ControllerBuilder(registry, settings), serverOpts...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", a.cfg.Addr), zap.Bool("mockAPI", a.cfg.MockAPI))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.SweepSessions(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.grace)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
