package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fieldctl",
	Short: "Maintenance commands for the document service",
	Long: `fieldctl runs one-off maintenance tasks against the same configuration
as the server (.env and environment variables).

Available commands:
  token      - Issue an admin access token
  purge-otp  - Delete expired one-time codes
  sms-dlq    - Inspect or requeue SMS jobs that exhausted their retries`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(tokenCmd, purgeOTPCmd, smsDLQCmd)
	smsDLQCmd.AddCommand(smsDLQRequeueCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
