package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/candig/fedsearch/pkg/client"
)

// Query commands talk to a running node over HTTP and print the
// federated envelope, so the output covers the whole mesh.

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run federated queries against a node",
}

var queryGetCmd = &cobra.Command{
	Use:   "get COLLECTION ID",
	Short: "Fetch one record by id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel := queryClient(cmd)
		defer cancel()

		env, err := c.Get(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(env)
	},
}

var querySearchCmd = &cobra.Command{
	Use:   "search COLLECTION",
	Short: "Search a collection across the federation",
	Long: `Search a collection across the federation.

Example:
  fedsearch query search patients --filter gender=female --page-size 50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		datasetID, _ := cmd.Flags().GetString("dataset")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		pageToken, _ := cmd.Flags().GetString("page-token")
		filterArgs, _ := cmd.Flags().GetStringArray("filter")

		filters := make(map[string]string, len(filterArgs))
		for _, f := range filterArgs {
			k, v, ok := strings.Cut(f, "=")
			if !ok {
				return fmt.Errorf("invalid filter %q (want FIELD=VALUE)", f)
			}
			filters[k] = v
		}

		c, ctx, cancel := queryClient(cmd)
		defer cancel()

		env, err := c.Search(ctx, args[0], client.SearchOptions{
			DatasetID: datasetID,
			Filters:   filters,
			PageSize:  pageSize,
			PageToken: pageToken,
		})
		if err != nil {
			return err
		}
		return printJSON(env)
	},
}

var queryCountCmd = &cobra.Command{
	Use:   "count ENTITY",
	Short: "Build field histograms across the federation",
	Long: `Count records per field value across the federation.

Example:
  fedsearch query count patient --field gender --field race`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		datasetID, _ := cmd.Flags().GetString("dataset")
		fields, _ := cmd.Flags().GetStringArray("field")
		if len(fields) == 0 {
			return fmt.Errorf("at least one --field is required")
		}

		c, ctx, cancel := queryClient(cmd)
		defer cancel()

		env, err := c.Count(ctx, client.CountOptions{
			Entity:    args[0],
			DatasetID: datasetID,
			Fields:    fields,
		})
		if err != nil {
			return err
		}
		return printJSON(env)
	},
}

var queryPeersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List the peers of a running node",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel := queryClient(cmd)
		defer cancel()

		peers, err := c.ListPeers(ctx)
		if err != nil {
			return err
		}
		return printJSON(peers)
	},
}

func init() {
	queryCmd.PersistentFlags().String("node", "http://localhost:3000", "Node address")
	queryCmd.PersistentFlags().String("token", "", "Bearer token forwarded to the node")

	querySearchCmd.Flags().String("dataset", "", "Restrict to one dataset id")
	querySearchCmd.Flags().Int("page-size", 0, "Page size")
	querySearchCmd.Flags().String("page-token", "", "Page token from a previous response")
	querySearchCmd.Flags().StringArray("filter", nil, "Field filter FIELD=VALUE (repeatable)")

	queryCountCmd.Flags().String("dataset", "", "Restrict to one dataset id")
	queryCountCmd.Flags().StringArray("field", nil, "Field to count over (repeatable)")

	queryCmd.AddCommand(queryGetCmd)
	queryCmd.AddCommand(querySearchCmd)
	queryCmd.AddCommand(queryCountCmd)
	queryCmd.AddCommand(queryPeersCmd)
	rootCmd.AddCommand(queryCmd)
}

func queryClient(cmd *cobra.Command) (*client.Client, context.Context, context.CancelFunc) {
	node, _ := cmd.Flags().GetString("node")
	token, _ := cmd.Flags().GetString("token")

	c := client.NewClient(node)
	if token != "" {
		if !strings.HasPrefix(token, "Bearer ") {
			token = "Bearer " + token
		}
		c = c.WithToken(token)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	return c, ctx, cancel
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
