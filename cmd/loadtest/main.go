package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xamogh/casbin-test/loadtest"
)

var rootCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Concurrent load harness for the policy gateway",
	Long: `Drives a running policy gateway with many concurrent clients issuing
random policy operations, then prints a summary of what happened.`,
	Run: func(cmd *cobra.Command, args []string) {
		host, _ := cmd.Flags().GetString("host")
		clients, _ := cmd.Flags().GetInt("clients")
		requests, _ := cmd.Flags().GetInt("requests")
		account, _ := cmd.Flags().GetString("account")
		signingKey, _ := cmd.Flags().GetString("signing-key")

		if signingKey == "" {
			signingKey = os.Getenv("GATEWAY_AUTH_SIGNING_KEY")
		}
		if signingKey == "" {
			slog.Error("No signing key provided, set --signing-key or GATEWAY_AUTH_SIGNING_KEY")
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		slog.Info("Starting load test",
			"host", host,
			"clients", clients,
			"requests", requests)

		runner := &loadtest.Runner{
			Client:   loadtest.NewClient(host, signingKey, account),
			Clients:  clients,
			Requests: requests,
		}

		stats := runner.Run(ctx)
		stats.LogSummary()

		if stats.Failures.Load() > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().String("host", "http://localhost:3000", "Base URL of the gateway under test")
	rootCmd.Flags().IntP("clients", "c", 100, "Number of concurrent clients")
	rootCmd.Flags().IntP("requests", "r", 100, "Requests per client")
	rootCmd.Flags().String("account", "loadtest", "Account identifier embedded in issued tokens")
	rootCmd.Flags().String("signing-key", "", "Shared HMAC secret used to self-sign tokens")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
