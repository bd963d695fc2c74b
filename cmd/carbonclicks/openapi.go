package main

import (
	"github.com/spf13/cobra"

	"github.com/bullrushinvestments/carbonclicks"
	"github.com/bullrushinvestments/carbonclicks/pkg/openapi"
)

func newOpenAPICmd(a *app) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document for the form endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := carbonclicks.LoadForms(a.cfg.FormsDir)
			if err != nil {
				return err
			}
			if serverURL == "" {
				serverURL = localURL(a.cfg.Addr)
			}
			doc, err := openapi.Build(registry.List(), openapi.WithServer(serverURL))
			if err != nil {
				return err
			}
			if err := openapi.Validate(cmd.Context(), doc); err != nil {
				return err
			}
			out, err := openapi.Marshal(doc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(out, '\n'))
			return err
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "Server URL recorded in the document")
	return cmd
}
