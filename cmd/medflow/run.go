package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/medflow/pipeline"
)

func runCmd() *cobra.Command {
	var pipelineName string

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Send a document through an orchestrator pipeline",
		Long:  "Reads the document from the given file, or from stdin when no file is named.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			document, err := readDocument(args)
			if err != nil {
				return err
			}

			caller := newCaller(cfg, log)

			switch pipelineName {
			case "simple":
				p := pipeline.NewSimple(caller, func(o *pipeline.SimpleOptions) {
					o.SummaryStyle = cfg.Pipeline.SummaryStyle
					o.Logger = log
				})

				result, err := p.Run(cmd.Context(), document)
				if err != nil {
					return err
				}

				fmt.Println(result.Markdown())

			case "cancer":
				p := pipeline.NewCancer(caller, func(o *pipeline.CancerOptions) {
					o.CheckerAttempts = cfg.Pipeline.CheckerAttempts
					o.MaxChunks = cfg.Pipeline.MaxChunks
					o.Logger = log
				})

				result, err := p.Run(cmd.Context(), document)
				if err != nil {
					return err
				}

				if result.Partial {
					color.Yellow("Pipeline returned partial results")
				}
				fmt.Println(result.Narrative)
				color.Cyan("\nChecker attempts: %d  Elapsed: %.2fs",
					result.CheckerAttempts, result.Elapsed.Seconds())

			default:
				return fmt.Errorf("unknown pipeline %q (want simple or cancer)", pipelineName)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&pipelineName, "pipeline", "simple", "pipeline to run (simple or cancer)")

	return cmd
}

func readDocument(args []string) (string, error) {
	if len(args) == 1 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
