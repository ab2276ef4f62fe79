package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/compliance"
)

func cardCmd() *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "card <agent-or-url>",
		Short: "Fetch and print an agent's discovery card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			url, err := loadRegistry(cfg).Resolve(args[0])
			if err != nil {
				return err
			}

			card, err := a2a.NewClient(url).FetchCard(cmd.Context())
			if err != nil {
				return err
			}

			raw, err := json.MarshalIndent(card, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(raw))

			if !validate {
				return nil
			}

			report := compliance.NewValidator().Validate(card)
			for _, e := range report.Errors {
				color.Red("error: %s", e)
			}
			for _, w := range report.Warnings {
				color.Yellow("warning: %s", w)
			}
			if report.Compliant {
				color.Green(report.Summary())
			} else {
				return fmt.Errorf("%s", report.Summary())
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "validate the card against the A2A protocol")

	return cmd
}
