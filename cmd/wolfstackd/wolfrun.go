package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
	"github.com/wolfstacksystems/wolfstack/pkg/wolfrun"
)

var wolfrunCmd = &cobra.Command{
	Use:   "wolfrun",
	Short: "Manage wolfrun services declared on this node",
}

var wolfrunServiceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage wolfrun services",
}

func openStore(cmd *cobra.Command) (*wolfrun.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = "/var/lib/wolfstack"
	}
	return wolfrun.NewStore(filepath.Join(dataDir, "wolfrun", "services.json"))
}

var wolfrunServiceLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List declared services",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		services := store.ListServices()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(services)
	},
}

var wolfrunServiceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Declare a new service",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		image, _ := cmd.Flags().GetString("image")
		rt, _ := cmd.Flags().GetString("runtime")
		replicas, _ := cmd.Flags().GetInt("replicas")
		if name == "" {
			return fmt.Errorf("--name is required")
		}

		svc := types.WolfRunService{
			Name:     name,
			Image:    image,
			Runtime:  types.Runtime(rt),
			Replicas: replicas,
		}
		created, err := store.Create(svc)
		if err != nil {
			return err
		}
		fmt.Printf("created service %s (%s)\n", created.ID, created.Name)
		return nil
	},
}

var wolfrunServiceRmCmd = &cobra.Command{
	Use:   "rm [service-id]",
	Short: "Remove a declared service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		return store.Delete(args[0])
	},
}

var wolfrunServiceScaleCmd = &cobra.Command{
	Use:   "scale [service-id] [replicas]",
	Short: "Change a service's desired replica count",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		var replicas int
		if _, err := fmt.Sscanf(args[1], "%d", &replicas); err != nil {
			return fmt.Errorf("replicas must be an integer: %w", err)
		}
		svc, err := store.Scale(args[0], replicas)
		if err != nil {
			return err
		}
		fmt.Printf("%s scaled to %d replicas\n", svc.Name, svc.Replicas)
		return nil
	},
}

func init() {
	wolfrunCmd.PersistentFlags().String("data-dir", "/var/lib/wolfstack", "Data directory shared with the running daemon")

	wolfrunServiceCreateCmd.Flags().String("name", "", "Service name (required)")
	wolfrunServiceCreateCmd.Flags().String("image", "", "Container image (docker runtime only)")
	wolfrunServiceCreateCmd.Flags().String("runtime", "docker", "Runtime: docker or lxc")
	wolfrunServiceCreateCmd.Flags().Int("replicas", 1, "Desired replica count")

	wolfrunServiceCmd.AddCommand(wolfrunServiceLsCmd, wolfrunServiceCreateCmd, wolfrunServiceRmCmd, wolfrunServiceScaleCmd)
	wolfrunCmd.AddCommand(wolfrunServiceCmd)
}
