package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/medflow/a2a"
	"github.com/hupe1980/medflow/agent"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve <agent>",
		Short: "Host one agent as an A2A HTTP service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			if port == 0 {
				if port, err = agentPort(cfg.Ports, name); err != nil {
					return err
				}
			}

			handler, err := newHandler(cfg, name, log)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("http://%s:%d", cfg.Host, port)
			srv := agent.New(handler, func(o *agent.Options) { o.Logger = log }).NewServer(url)

			color.Green("Starting %s", handler.Name())
			fmt.Printf("Server:     %s\n", url)
			fmt.Printf("Agent card: %s%s\n", url, a2a.AgentCardPath)

			return srv.Start(fmt.Sprintf("%s:%d", cfg.Host, port))
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")

	return cmd
}

func agentPort(ports map[string]int, name string) (int, error) {
	port, ok := ports[name]
	if !ok {
		return 0, fmt.Errorf("no port configured for agent %q", name)
	}
	return port, nil
}
