package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/dataprep-cli/internal/runlog"
	"github.com/KaramelBytes/dataprep-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded preparation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		runs, err := runlog.List(c.RunsDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		if runsLimit > 0 && len(runs) > runsLimit {
			runs = runs[:runsLimit]
		}
		for _, r := range runs {
			status := "ok"
			if r.Error != "" {
				status = "failed"
			}
			fmt.Fprintf(out, "- %s  %s  %-8s %-6s %s (%s)\n", shortID(r.ID), r.StartedAt.Format(time.DateTime),
				r.Command, status, r.Input, r.Duration().Round(time.Millisecond))
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run by ID or unique ID prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		r, err := runlog.Find(c.RunsDir, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if runsJSON {
			b, err := utils.PrettyJSON(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "Run: %s\n", r.ID)
		fmt.Fprintf(out, "Command: %s %s\n", r.Command, r.Input)
		fmt.Fprintf(out, "Started: %s (%s)\n", r.StartedAt.Format(time.RFC3339), r.Duration().Round(time.Millisecond))
		if r.Error != "" {
			fmt.Fprintf(out, "Error: %s\n", r.Error)
		}
		if len(r.Outputs) > 0 {
			fmt.Fprintf(out, "Outputs: %s\n", strings.Join(r.Outputs, ", "))
		}
		if r.Summary != nil {
			fmt.Fprintln(out)
			fmt.Fprintln(out, r.Summary.Markdown())
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum runs to list (0 = all)")
	runsShowCmd.Flags().BoolVar(&runsJSON, "json", false, "print the raw run record")
}
