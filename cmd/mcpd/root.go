package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:           "mcpd",
	Short:         "mcpd — a demo MCP server/client runtime",
	SilenceUsage:  true,
	SilenceErrors: true,
}
