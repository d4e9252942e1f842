package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/vovakirdan/arena-coordinator/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", ApplySchema)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPlayerRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	picture := "https://example.com/a.png"
	if err := s.CreatePlayer(ctx, &store.Player{
		ID:       "p1",
		Username: "alice",
		Picture:  &picture,
		Rank:     store.DefaultRank,
	}); err != nil {
		t.Fatalf("create player: %v", err)
	}

	got, err := s.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.Username != "alice" || got.Rank != 1500 || got.Picture == nil || *got.Picture != picture {
		t.Fatalf("unexpected player: %+v", got)
	}
	if len(got.Cards) != 0 {
		t.Fatalf("expected no cards, got %v", got.Cards)
	}

	if err := s.UpdatePlayerCards(ctx, "p1", []string{"c1", "c2"}); err != nil {
		t.Fatalf("update cards: %v", err)
	}
	got, err = s.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if len(got.Cards) != 2 || got.Cards[0] != "c1" {
		t.Fatalf("unexpected cards: %v", got.Cards)
	}
}

func TestGetPlayerNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetPlayer(context.Background(), "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdatePlayerCards(context.Background(), "ghost", nil); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGameStatusUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	game := &store.Game{
		ID:        "g1",
		NodeID:    "n1",
		PlayerIDs: []string{"p1", "p2"},
		Status:    store.GameStatusInitialized,
	}
	if err := s.CreateGame(ctx, game); err != nil {
		t.Fatalf("create game: %v", err)
	}

	if err := s.UpdateGameStatus(ctx, "g1", store.GameStatusEnded); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := s.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if got.Status != store.GameStatusEnded || got.NodeID != "n1" || len(got.PlayerIDs) != 2 {
		t.Fatalf("unexpected game: %+v", got)
	}

	if err := s.UpdateGameStatus(ctx, "missing", store.GameStatusEnded); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
