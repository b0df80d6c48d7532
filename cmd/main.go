package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "standup-pulse",
	Short: "Slack daily standup and health-check bot",
	Long: `standup-pulse posts a scheduled standup prompt to a Slack channel, reads the
team's answers (reactions, thread replies, health-check buttons) and routes
blocked teammates to an escalation channel.

Examples:
  standup-pulse serve                          # run the bot
  standup-pulse store columns --kind health    # show the health table's columns
  standup-pulse store rows --kind standup      # dump stored standup answers`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(storeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
