package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/relay/internal/core/config"
	"github.com/vietddude/relay/internal/delivery/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current status of the relay pipeline",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/status", cfg.Server.Port))
	if err != nil {
		slog.Error("Failed to reach relay", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		slog.Error("Failed to decode status", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATUS\tRUNNING\tSUBS\tPENDING\tPROCESSING\tCOMPLETED\tFAILED")
	_, _ = fmt.Fprintf(w, "%s\t%t\t%d\t%d\t%d\t%d\t%d\n",
		report.Status, report.Running, report.Subscriptions,
		report.Pending, report.Processing, report.Completed, report.Failed)
	_ = w.Flush()

	if len(report.OpenCircuits) > 0 {
		fmt.Println()
		fmt.Println("Open circuits:")
		for _, id := range report.OpenCircuits {
			fmt.Printf("  %s\n", id)
		}
	}
}
