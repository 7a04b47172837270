package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wolfstacksystems/wolfstack/pkg/security"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Manage this node's cluster shared secret",
}

var clusterSecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Inspect or rotate the cluster shared secret",
}

var clusterSecretShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cluster shared secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("secret-path")
		secret, err := security.LoadOrGenerateSecret(path)
		if err != nil {
			return fmt.Errorf("load secret: %w", err)
		}
		fmt.Println(secret.String())
		return nil
	},
}

var clusterSecretRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Generate a new cluster shared secret and persist it",
	Long: `Rotating the secret invalidates every peer's current X-Cluster-Secret
header; every other node in the cluster must be updated with the new value
before it can rejoin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("secret-path")
		secret, err := security.LoadOrGenerateSecret(path)
		if err != nil {
			return fmt.Errorf("load secret: %w", err)
		}
		if err := secret.Rotate(); err != nil {
			return fmt.Errorf("rotate secret: %w", err)
		}
		fmt.Println(secret.String())
		return nil
	},
}

func init() {
	clusterCmd.PersistentFlags().String("secret-path", security.DefaultSecretPath, "Path to the cluster secret file")
	clusterSecretCmd.AddCommand(clusterSecretShowCmd, clusterSecretRotateCmd)
	clusterCmd.AddCommand(clusterSecretCmd)
}
