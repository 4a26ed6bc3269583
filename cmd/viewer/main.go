// Viewer dumps the current state of the local tree store: every connection
// request, and the merged conversation feed of a given user. Read-only, can
// run next to a live process.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"lingua-link/contract"
	"lingua-link/domain"
	"lingua-link/domain/event"
	"lingua-link/projection"
	"lingua-link/store"
)

type ViewerConfig struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	SelfID         string `env:"SELF_ID"`
}

func main() {
	_ = godotenv.Load()
	var config ViewerConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while another process holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	slogger := logs.GetLoggerFromString("warn")
	treeStore := store.NewBadgerStore(db, slogger)
	ctx := context.Background()

	printRequests(ctx, treeStore)
	if config.SelfID != "" {
		printFeed(ctx, treeStore, slogger, config.SelfID)
	}
}

func printRequests(ctx context.Context, treeStore store.TreeStore) {
	snap, err := treeStore.Once(ctx, store.Ref{Path: "connection_requests"})
	if err != nil {
		log.Fatalf("Failed to read connection requests: %v", err)
	}

	fmt.Println(color.Bold.Sprint("Connection requests"))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Request", "From", "To", "Session", "Status", "Created"})

	now := time.Now()
	for _, child := range snap.Children() {
		var request domain.ConnectionRequest
		if err := child.Decode(&request); err != nil {
			continue
		}
		table.Append([]string{
			shorten(request.RequestID),
			request.FromUserName,
			request.ToUserID,
			request.SessionID,
			statusCell(request, now),
			time.UnixMilli(request.Timestamp).Format(time.RFC822),
		})
	}
	table.Render()
}

func statusCell(request domain.ConnectionRequest, now time.Time) string {
	if request.Status == domain.StatusPending && request.IsExpired(now) {
		return color.Yellow.Sprint("EXPIRED")
	}
	switch request.Status {
	case domain.StatusPending:
		return color.Cyan.Sprint(request.Status)
	case domain.StatusAccepted:
		return color.Green.Sprint(request.Status)
	default:
		return color.Red.Sprint(request.Status)
	}
}

func printFeed(ctx context.Context, treeStore store.TreeStore, slogger *slog.Logger, selfID string) {
	feed := projection.NewFeed(treeStore, slogger)
	snapshots := make(chan event.FeedRefreshed, 1)
	sink := contract.SinkFunc(func(_ context.Context, e event.DomainEvent) error {
		if refreshed, ok := e.(event.FeedRefreshed); ok {
			select {
			case snapshots <- refreshed:
			default:
			}
		}
		return nil
	})

	watch, err := feed.Watch(ctx, selfID, sink)
	if err != nil {
		log.Fatalf("Failed to watch feed: %v", err)
	}
	defer watch.Close()

	var snapshot event.FeedRefreshed
	select {
	case snapshot = <-snapshots:
	case <-time.After(5 * time.Second):
		log.Fatal("Timed out waiting for a feed snapshot")
	}

	fmt.Println()
	fmt.Println(color.Bold.Sprintf("Conversations of %s (%s)", selfID, snapshot.State))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Kind", "Last message", "Time"})
	for _, item := range snapshot.Items {
		kind := "direct"
		if item.IsGroup {
			kind = "group"
		}
		table.Append([]string{
			item.DisplayName,
			kind,
			truncate(item.LastMessage, 40),
			time.UnixMilli(item.LastMessageTime).Format(time.RFC822),
		})
	}
	table.Render()
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit-3] + "..."
}

func shorten(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
