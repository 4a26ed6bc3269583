package projection

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"lingua-link/domain/event"
)

func TestSearch_TieredResults(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	writeAll(t, s, map[string]any{
		"users/me":     map[string]any{"username": "Me", "email": "me@x.io"},
		"users/anna":   map[string]any{"username": "Anna", "email": "anna@x.io"},
		"users/annika": map[string]any{"username": "Annika", "email": "annika@x.io"},
		"users/bob":    map[string]any{"username": "Bob", "email": "bob@x.io"},

		// Anna has prior history with the viewer, Annika does not.
		"messages/anna_me/m1": map[string]any{
			"message": "hi", "messageOG": "hi", "senderId": "anna", "timestamp": 100},

		"groups/g_review": map[string]any{
			"name": "Annual Review", "members": map[string]any{"me": true}, "createdAt": 1},
		"groups/g_other": map[string]any{
			"name": "Annual Offsite", "members": map[string]any{"bob": true}, "createdAt": 1},
	})

	feed := NewFeed(s, logs.GetLoggerFromLevel(slog.LevelDebug))
	result, err := feed.Search(context.Background(), "me", "ann")
	req.NoError(err)
	req.Equal(event.FeedOK, result.State)

	names := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		names = append(names, item.DisplayName)
	}
	// Users with history first, then groups, then users without history.
	req.Equal([]string{"Anna", "Annual Review", "Annika"}, names)
}

func TestSearch_MatchesAreCaseInsensitive(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	writeAll(t, s, map[string]any{
		"users/me":   map[string]any{"username": "Me", "email": "me@x.io"},
		"users/anna": map[string]any{"username": "Anna", "email": "anna@x.io"},
	})

	feed := NewFeed(s, logs.GetLoggerFromLevel(slog.LevelDebug))
	result, err := feed.Search(context.Background(), "me", "ANNA")
	req.NoError(err)
	req.Len(result.Items, 1)
	req.Equal("Anna", result.Items[0].DisplayName)
}

func TestSearch_MatchesOnEmail(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	writeAll(t, s, map[string]any{
		"users/me":  map[string]any{"username": "Me", "email": "me@x.io"},
		"users/zed": map[string]any{"username": "Zed", "email": "zed@findable.io"},
	})

	feed := NewFeed(s, logs.GetLoggerFromLevel(slog.LevelDebug))
	result, err := feed.Search(context.Background(), "me", "findable")
	req.NoError(err)
	req.Len(result.Items, 1)
	req.Equal("Zed", result.Items[0].DisplayName)
}

func TestSearch_ExcludesSelfAndNonMemberGroups(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	writeAll(t, s, map[string]any{
		"users/anna": map[string]any{"username": "Anna", "email": "anna@x.io"},
		"groups/g1": map[string]any{
			"name": "Anna Fans", "members": map[string]any{"someone-else": true}, "createdAt": 1},
	})

	feed := NewFeed(s, logs.GetLoggerFromLevel(slog.LevelDebug))
	result, err := feed.Search(context.Background(), "anna", "anna")
	req.NoError(err)
	req.Empty(result.Items)
	req.Equal(event.FeedOK, result.State)
}

func TestSearch_Unauthenticated(t *testing.T) {
	req := require.New(t)
	feed := NewFeed(newTestStore(t), logs.GetLoggerFromLevel(slog.LevelDebug))

	result, err := feed.Search(context.Background(), "", "ann")
	req.NoError(err)
	req.Equal(event.FeedUnauthenticated, result.State)
	req.Empty(result.Items)
}
