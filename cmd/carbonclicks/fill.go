package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bullrushinvestments/carbonclicks"
	"github.com/bullrushinvestments/carbonclicks/internal/mockapi"
	"github.com/bullrushinvestments/carbonclicks/pkg/renderers/tui"
)

func newFillCmd(a *app) *cobra.Command {
	var (
		format    string
		maxRounds int
	)
	cmd := &cobra.Command{
		Use:   "fill <form-id>",
		Short: "Fill and submit a form from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			registry, err := carbonclicks.LoadForms(a.cfg.FormsDir)
			if err != nil {
				return err
			}
			def, ok := registry.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown form %q", args[0])
			}
			if err := a.checkBackend(def); err != nil {
				return err
			}

			base := ""
			if a.cfg.MockAPI && a.cfg.APIBaseURL == "" {
				url, closeAPI, err := startMockAPI(a.logger)
				if err != nil {
					return err
				}
				defer closeAPI()
				base = url
			}
			c, err := carbonclicks.NewController(def, a.settings(base))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderer, err := tui.New(
				tui.WithPromptDriver(tui.NewSurveyDriver(out)),
				tui.WithOutputFormat(tui.OutputFormat(format)),
				tui.WithMaxRounds(maxRounds),
			)
			if err != nil {
				return err
			}
			state, err := renderer.Fill(ctx, def, c)
			if err != nil {
				if errors.Is(err, tui.ErrAborted) {
					return nil
				}
				return err
			}
			result, err := renderer.Result(state)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(result))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", string(tui.OutputFormatJSON), "Result format: json or pretty")
	cmd.Flags().IntVar(&maxRounds, "max-rounds", 5, "Give up after this many invalid attempts")
	return cmd
}

// startMockAPI serves the demo backend on a loopback port for the lifetime of
// one fill session.
func startMockAPI(logger *zap.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("start demo backend: %w", err)
	}
	srv := &http.Server{Handler: mockapi.New(logger.Named("mockapi")).Handler()}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("demo backend stopped", zap.Error(err))
		}
	}()
	return "http://" + ln.Addr().String(), func() { _ = srv.Shutdown(context.Background()) }, nil
}
