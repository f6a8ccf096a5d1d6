package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/pacer/internal/core/config"
	"github.com/vietddude/pacer/internal/infra/storage/postgres"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dispatch counts and the most recent dispatches",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of recent dispatches to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	repo := postgres.NewDispatchRepo(db)

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		slog.Error("Failed to count dispatches", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATUS\tCOUNT")
	for status, count := range counts {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", status, count)
	}
	_ = w.Flush()

	recent, err := repo.ListRecent(ctx, statusLimit)
	if err != nil {
		slog.Error("Failed to list dispatches", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SUBJECT\tKIND\tPAGE\tSTATUS\tATTEMPT\tCREATED")
	for _, d := range recent {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			d.SubjectID, d.Kind, d.PageType, d.Status, d.Attempt, d.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
}
