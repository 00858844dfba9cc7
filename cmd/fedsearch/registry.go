package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/candig/fedsearch/pkg/types"
)

// Registry admin commands operate directly on the BoltDB registry, so
// they must run while the node is stopped.

// Peer commands
var peerCmd = &cobra.Command{
	Use:   "peer",
	Short: "Manage the peer registry",
}

var peerAddCmd = &cobra.Command{
	Use:   "add URL",
	Short: "Register a peer node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := url.Parse(args[0])
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid peer URL %q", args[0])
		}

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if existing, err := store.GetPeerByURL(args[0]); err == nil {
			fmt.Printf("Peer already registered: %s (ID: %s)\n", existing.URL, existing.ID)
			return nil
		}

		peer := &types.Peer{
			ID:           uuid.New().String(),
			URL:          args[0],
			RegisteredAt: time.Now(),
			Healthy:      true,
		}
		if err := store.CreatePeer(peer); err != nil {
			return fmt.Errorf("failed to register peer: %w", err)
		}

		fmt.Printf("✓ Peer registered: %s (ID: %s)\n", peer.URL, peer.ID)
		return nil
	},
}

var peerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered peers",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		peers, err := store.ListPeers()
		if err != nil {
			return err
		}
		if len(peers) == 0 {
			fmt.Println("No peers registered")
			return nil
		}
		for _, p := range peers {
			state := "healthy"
			if !p.Healthy {
				state = "unhealthy"
			}
			fmt.Printf("%s  %s  %s\n", p.ID, p.URL, state)
		}
		return nil
	},
}

var peerRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a peer from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeletePeer(args[0]); err != nil {
			return fmt.Errorf("failed to remove peer: %w", err)
		}
		fmt.Printf("✓ Peer removed: %s\n", args[0])
		return nil
	},
}

// Dataset commands
var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage the dataset catalog",
}

var datasetCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if existing, err := store.GetDatasetByName(args[0]); err == nil {
			fmt.Printf("Dataset already exists: %s (ID: %s)\n", existing.Name, existing.ID)
			return nil
		}

		ds := &types.Dataset{
			ID:          uuid.New().String(),
			Name:        args[0],
			Description: description,
			CreatedAt:   time.Now(),
		}
		if err := store.CreateDataset(ds); err != nil {
			return fmt.Errorf("failed to create dataset: %w", err)
		}

		fmt.Printf("✓ Dataset created: %s (ID: %s)\n", ds.Name, ds.ID)
		return nil
	},
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		datasets, err := store.ListDatasets()
		if err != nil {
			return err
		}
		if len(datasets) == 0 {
			fmt.Println("No datasets")
			return nil
		}
		for _, ds := range datasets {
			fmt.Printf("%s  %s  %s\n", ds.ID, ds.Name, ds.Description)
		}
		return nil
	},
}

// Access commands
var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Manage identity access rules",
}

var accessSetCmd = &cobra.Command{
	Use:   "set ISSUER USERNAME DATASET=TIER [DATASET=TIER...]",
	Short: "Grant per-dataset tiers to an identity",
	Long: `Grant per-dataset visibility tiers to one identity.

Tiers run from 0 (public fields only) to 4 (every field). Existing
grants for the identity are replaced.

Example:
  fedsearch access set https://sso.example.org researcher1 mohccn=4 pilot=1`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer, username := args[0], args[1]

		access := types.AccessMap{}
		for _, grant := range args[2:] {
			name, tierStr, ok := strings.Cut(grant, "=")
			if !ok {
				return fmt.Errorf("invalid grant %q (want DATASET=TIER)", grant)
			}
			tier, err := strconv.Atoi(tierStr)
			if err != nil || tier < types.TierPublic || tier > types.TierFull {
				return fmt.Errorf("invalid tier %q (want 0-4)", tierStr)
			}
			access[name] = tier
		}

		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		rule := &types.AccessRule{Issuer: issuer, Username: username, Access: access}
		if err := store.PutAccessRule(rule); err != nil {
			return fmt.Errorf("failed to store access rule: %w", err)
		}

		fmt.Printf("✓ Access updated for %s@%s (%d datasets)\n", username, issuer, len(access))
		return nil
	},
}

var accessListCmd = &cobra.Command{
	Use:   "list",
	Short: "List access rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		rules, err := store.ListAccessRules()
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			fmt.Println("No access rules")
			return nil
		}
		for _, rule := range rules {
			fmt.Printf("%s@%s:\n", rule.Username, rule.Issuer)
			for name, tier := range rule.Access {
				fmt.Printf("  %s = tier %d\n", name, tier)
			}
		}
		return nil
	},
}

func init() {
	peerCmd.AddCommand(peerAddCmd)
	peerCmd.AddCommand(peerListCmd)
	peerCmd.AddCommand(peerRemoveCmd)
	peerCmd.PersistentFlags().String("data-dir", "./fedsearch-data", "Data directory of the registry")

	datasetCmd.AddCommand(datasetCreateCmd)
	datasetCmd.AddCommand(datasetListCmd)
	datasetCmd.PersistentFlags().String("data-dir", "./fedsearch-data", "Data directory of the registry")
	datasetCreateCmd.Flags().String("description", "", "Dataset description")

	accessCmd.AddCommand(accessSetCmd)
	accessCmd.AddCommand(accessListCmd)
	accessCmd.PersistentFlags().String("data-dir", "./fedsearch-data", "Data directory of the registry")
}
