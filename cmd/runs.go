package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dealmachine-cli/internal/model"
	"github.com/sells-group/dealmachine-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded scrape runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		filter := store.LogFilter{Status: model.RunStatus(status), Limit: limit}
		if filter.Status != "" && !filter.Status.Valid() {
			return eris.Errorf("runs: unknown status %q (want completed or failed)", status)
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		logs, err := st.ListScrapes(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(logs) == 0 && format == "table" {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}
		return formatScrapeLogs(cmd.OutOrStdout(), logs, format)
	},
}

func init() {
	runsCmd.Flags().String("status", "", "filter by run status (completed, failed)")
	runsCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsCmd.Flags().String("format", "table", "output format: table, json, or yaml")
	rootCmd.AddCommand(runsCmd)
}

// scrapeLogView is the yaml/json shape of a listed run.
type scrapeLogView struct {
	ID        string `json:"id" yaml:"id"`
	DataCount int    `json:"dataCount" yaml:"data_count"`
	Status    string `json:"status" yaml:"status"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

func formatScrapeLogs(out io.Writer, logs []model.ScrapeLog, format string) error {
	views := make([]scrapeLogView, 0, len(logs))
	for _, l := range logs {
		views = append(views, scrapeLogView{
			ID:        l.ID,
			DataCount: l.DataCount,
			Status:    string(l.Status),
			CreatedAt: l.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	switch format {
	case "table", "":
		formatScrapeTable(out, logs)
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(views), "runs: encode json")
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return eris.Wrap(err, "runs: encode yaml")
		}
		return eris.Wrap(enc.Close(), "runs: encode yaml")
	default:
		return eris.Errorf("runs: unknown format %q", format)
	}
}

// formatScrapeTable writes a tabular list of scrape runs to out.
func formatScrapeTable(out io.Writer, logs []model.ScrapeLog) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tCOUNT\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t-------")

	for _, l := range logs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			truncateID(l.ID),
			l.Status,
			l.DataCount,
			l.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
