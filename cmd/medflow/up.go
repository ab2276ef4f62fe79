package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/medflow"
	"github.com/hupe1980/medflow/agent"
)

func upCmd() *cobra.Command {
	var skipRegistry bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Host the whole agent fleet in one process",
		Long: "Starts every configured agent on its port, writes the agent registry " +
			"file and waits until all agents answer their agent-card endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			handlers := make(map[string]agent.Handler, len(cfg.Ports))
			for name := range cfg.Ports {
				handler, err := newHandler(cfg, name, log)
				if err != nil {
					return fmt.Errorf("agent %s: %w", name, err)
				}
				handlers[name] = handler
			}

			fleet, err := medflow.NewFleet(handlers, cfg.Ports, func(o *medflow.FleetOptions) {
				o.Host = cfg.Host
				o.Logger = log
			})
			if err != nil {
				return err
			}

			if !skipRegistry {
				if err := fleet.Registry().Save(cfg.RegistryPath); err != nil {
					return err
				}
				fmt.Printf("Registry written to %s\n", cfg.RegistryPath)
			}

			fleet.Start()
			for _, name := range fleet.Names() {
				fmt.Printf("  %-22s %s\n", name, fleet.URL(name))
			}

			if err := fleet.WaitReady(cmd.Context(), 30*time.Second); err != nil {
				return err
			}
			color.Green("All %d agents ready", len(fleet.Names()))

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			fmt.Println("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			return fleet.Shutdown(ctx)
		},
	}

	cmd.Flags().BoolVar(&skipRegistry, "no-registry", false, "do not write the registry file")

	return cmd
}
