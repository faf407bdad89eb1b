// Command boardctl drives a running salesboard controller over its HTTP API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string
	root := &cobra.Command{
		Use:           "boardctl",
		Short:         "Control a running salesboard dashboard",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	defaultAddr := os.Getenv("SALESBOARD_URL")
	if defaultAddr == "" {
		defaultAddr = "http://127.0.0.1:8190"
	}
	root.PersistentFlags().StringVar(&addr, "addr", defaultAddr, "Controller base URL")

	client := func() *apiClient { return newAPIClient(addr) }

	root.AddCommand(
		&cobra.Command{
			Use:   "charts",
			Short: "List charts and their state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return client().printJSON(cmd.Context(), cmd.OutOrStdout(), "GET", "/api/v1/charts", nil)
			},
		},
		&cobra.Command{
			Use:   "refresh <chart>",
			Short: "Re-run the fetch and render cycle of a chart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return client().printJSON(cmd.Context(), cmd.OutOrStdout(), "POST", "/api/v1/charts/"+args[0]+"/refresh", nil)
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Show controller health",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return client().printJSON(cmd.Context(), cmd.OutOrStdout(), "GET", "/api/v1/health", nil)
			},
		},
		newInputsCmd(client),
		newSnapshotCmd(client),
	)
	return root
}

func newInputsCmd(client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inputs",
		Short: "Read or edit filter inputs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the current input values",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return client().printJSON(cmd.Context(), cmd.OutOrStdout(), "GET", "/api/v1/inputs", nil)
			},
		},
		&cobra.Command{
			Use:   "set <id=value>...",
			Short: "Set input values; an empty value clears the input",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				values, err := parseAssignments(args)
				if err != nil {
					return err
				}
				body := map[string]any{"values": values}
				return client().printJSON(cmd.Context(), cmd.OutOrStdout(), "PUT", "/api/v1/inputs", body)
			},
		},
	)
	return cmd
}

func newSnapshotCmd(client func() *apiClient) *cobra.Command {
	var notes, out string
	cmd := &cobra.Command{
		Use:   "snapshot <chart>",
		Short: "Capture a chart as currently shown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client()
			var res struct {
				Snapshot struct {
					ID string `json:"id"`
				} `json:"snapshot"`
				URL string `json:"url"`
			}
			body := map[string]any{"notes": notes}
			if err := c.doJSON(cmd.Context(), "POST", "/api/v1/charts/"+args[0]+"/snapshots", body, &res); err != nil {
				return err
			}
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			data, err := c.download(cmd.Context(), res.URL)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			cmd.Printf("snapshot %s written to %s\n", res.Snapshot.ID, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Annotation stored with the snapshot")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Also download the image to this file")

	var chartFilter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/snapshots"
			if chartFilter != "" {
				path += "?chart=" + chartFilter
			}
			return client().printJSON(cmd.Context(), cmd.OutOrStdout(), "GET", path, nil)
		},
	}
	list.Flags().StringVar(&chartFilter, "chart", "", "Only snapshots of this chart")
	cmd.AddCommand(list)
	return cmd
}
