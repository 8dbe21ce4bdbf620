package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "entitlements-service",
	Short: "Subscription tiers, feature entitlements and usage quotas",
	Long:  "Resolves each user's plan, enforces monthly usage quotas and processes subscription payments.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
