// Command carbonclicks serves the CarbonClicks forms over HTTP, fills them
// from a terminal, and prints their OpenAPI description.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bullrushinvestments/carbonclicks"
	"github.com/bullrushinvestments/carbonclicks/internal/config"
	"github.com/bullrushinvestments/carbonclicks/internal/logging"
	"github.com/bullrushinvestments/carbonclicks/pkg/forms"
)

// app is the state shared by every subcommand once the root pre-run has
// resolved configuration.
type app struct {
	configPath string
	verbose    bool
	logFormat  string
	apiURL     string
	formsDir   string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "carbonclicks",
		Short: "CarbonClicks form host",
		Long: `carbonclicks hosts the CarbonClicks forms: business specification,
requirements, and test cases.

Each form validates its fields, calls its backend once per submit, and reports
success or a single failure message while keeping what was typed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.logFormat, "log-format", "", "Log encoding: json or console")
	flags.StringVar(&a.apiURL, "api-url", "", "Base URL of the REST backend")
	flags.StringVar(&a.formsDir, "forms-dir", "", "Directory of extra form definitions")

	root.AddCommand(
		newServeCmd(a),
		newFillCmd(a),
		newFormsCmd(a),
		newOpenAPICmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if a.apiURL != "" {
		cfg.APIBaseURL = a.apiURL
	}
	if a.formsDir != "" {
		cfg.FormsDir = a.formsDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger.With(zap.String("command", cmd.Name()))
	return nil
}

// settings maps the resolved configuration onto controller settings. base is
// used when no API URL is configured.
func (a *app) settings(base string) carbonclicks.Settings {
	return carbonclicks.Settings{
		APIBaseURL:     a.cfg.APIBase(base),
		GraphQLURL:     a.cfg.GraphQLEndpoint(base),
		SubmitTimeout:  a.cfg.SubmitTimeout,
		SimulatedDelay: a.cfg.SimulatedDelay,
		Logger:         a.logger,
	}
}

// checkBackend fails when a form calls a remote API but the mock API is off
// and no API URL is configured, instead of letting submits hit this host.
func (a *app) checkBackend(defs ...forms.Definition) error {
	if a.cfg.MockAPI || a.cfg.APIBaseURL != "" {
		return nil
	}
	for _, def := range defs {
		switch def.Boundary.Kind {
		case forms.BoundarySimulated:
		case forms.BoundaryGraphQL:
			if a.cfg.GraphQLURL == "" {
				return fmt.Errorf("form %q needs a GraphQL endpoint: set --api-url or graphqlURL, or enable the mock API", def.ID)
			}
		default:
			return fmt.Errorf("form %q needs an API: set --api-url or apiBaseURL, or enable the mock API", def.ID)
		}
	}
	return nil
}

// localURL turns a listen address into a URL the process can call itself on.
func localURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return "http://" + host
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
