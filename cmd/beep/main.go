package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "beep",
		Short:         "Beep stablecoin payment platform CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newInitMCPCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
