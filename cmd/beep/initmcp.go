package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beep-labs/beep-go/config"
)

func newInitMCPCmd() *cobra.Command {
	var (
		mode   string
		path   string
		apiKey string
		port   int
	)

	cmd := &cobra.Command{
		Use:   "init-mcp",
		Short: "Scaffold a Beep MCP project",
		Long: `Writes .env and beep.config.json into the target directory.
The API key is only ever written to .env, never to the JSON config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Scaffold(config.ScaffoldOptions{
				Dir:    path,
				Mode:   config.Mode(mode),
				APIKey: apiKey,
				Port:   port,
			}); err != nil {
				return err
			}

			fmt.Printf("Scaffolded Beep MCP project in %s (mode: %s)\n", path, mode)
			if apiKey == "" {
				fmt.Println("Set BEEP_API_KEY in .env before serving.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "stdio", "communication mode: https or stdio")
	cmd.Flags().StringVar(&path, "path", ".", "target project directory")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Beep API key to write into .env")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port for https mode")

	return cmd
}
