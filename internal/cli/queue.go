package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/pacer/internal/core/config"
	redisclient "github.com/vietddude/pacer/internal/infra/redis"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the replay queue depth",
	Run:   runQueue,
}

var queueDropCmd = &cobra.Command{
	Use:   "drop [dispatch_id]",
	Short: "Drop a parked dispatch from the replay queue",
	Args:  cobra.ExactArgs(1),
	Run:   runQueueDrop,
}

func init() {
	queueCmd.AddCommand(queueDropCmd)
	rootCmd.AddCommand(queueCmd)
}

func openQueue() (*redisclient.FailedDispatchRepo, func()) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.URL == "" {
		slog.Error("No redis URL configured, replay queue is in-memory only")
		os.Exit(1)
	}

	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}

	return redisclient.NewFailedDispatchRepo(client, cfg.Replay.Namespace), func() { _ = client.Close() }
}

func runQueue(cmd *cobra.Command, args []string) {
	queue, closeFn := openQueue()
	defer closeFn()

	ctx := context.Background()
	depth, err := queue.Depth(ctx)
	if err != nil {
		slog.Error("Failed to read queue depth", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Parked dispatches: %d\n", depth)

	if fd, err := queue.Next(ctx); err == nil && fd != nil {
		fmt.Printf("Next replay: %s %s/%s attempt %d (last error: %s)\n",
			fd.ID, fd.SubjectID, fd.Kind, fd.Attempt, fd.LastError)
	}
}

func runQueueDrop(cmd *cobra.Command, args []string) {
	queue, closeFn := openQueue()
	defer closeFn()

	if err := queue.Remove(context.Background(), args[0]); err != nil {
		slog.Error("Failed to drop parked dispatch", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Dropped %s from the replay queue\n", args[0])
}
