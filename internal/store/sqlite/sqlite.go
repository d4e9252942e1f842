package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

// Schema creates the tables used by the coordinator.
const Schema = `
CREATE TABLE IF NOT EXISTS players (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL,
	picture    TEXT,
	rank       INTEGER NOT NULL DEFAULT 1500,
	cards      TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	node_id    TEXT NOT NULL,
	player_ids TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_games_status ON games(status);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema against an in-memory database.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ApplySchema creates missing tables.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== PlayerStore implementation ====

// GetPlayer retrieves a player by ID.
func (s *SQLiteStore) GetPlayer(ctx context.Context, id string) (*store.Player, error) {
	query := `
		SELECT id, username, picture, rank, cards, created_at
		FROM players
		WHERE id = ?
	`
	var (
		player  store.Player
		picture sql.NullString
		cards   string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&player.ID,
		&player.Username,
		&picture,
		&player.Rank,
		&cards,
		&player.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("player %q: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query player: %w", err)
	}

	if picture.Valid {
		player.Picture = &picture.String
	}
	if err := json.Unmarshal([]byte(cards), &player.Cards); err != nil {
		return nil, fmt.Errorf("decode player cards: %w", err)
	}

	return &player, nil
}

// CreatePlayer inserts a new player record.
func (s *SQLiteStore) CreatePlayer(ctx context.Context, p *store.Player) error {
	cards, err := encodeStrings(p.Cards)
	if err != nil {
		return fmt.Errorf("encode player cards: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO players (id, username, picture, rank, cards, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Username, p.Picture, p.Rank, cards, p.CreatedAt); err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// UpdatePlayerCards replaces the cards owned by a player.
func (s *SQLiteStore) UpdatePlayerCards(ctx context.Context, id string, cards []string) error {
	encoded, err := encodeStrings(cards)
	if err != nil {
		return fmt.Errorf("encode player cards: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE players SET cards = ? WHERE id = ?`, encoded, id)
	if err != nil {
		return fmt.Errorf("update player cards: %w", err)
	}
	return expectOneRow(result, "player", id)
}

// ==== GameStore implementation ====

// CreateGame inserts a new game record.
func (s *SQLiteStore) CreateGame(ctx context.Context, g *store.Game) error {
	playerIDs, err := encodeStrings(g.PlayerIDs)
	if err != nil {
		return fmt.Errorf("encode player ids: %w", err)
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	query := `
		INSERT INTO games (id, node_id, player_ids, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, g.ID, g.NodeID, playerIDs, g.Status, g.CreatedAt, g.UpdatedAt); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// UpdateGameStatus persists a new status for a game.
func (s *SQLiteStore) UpdateGameStatus(ctx context.Context, id string, status store.GameStatus) error {
	query := `
		UPDATE games
		SET status = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update game status: %w", err)
	}
	return expectOneRow(result, "game", id)
}

// GetGame retrieves a game by ID.
func (s *SQLiteStore) GetGame(ctx context.Context, id string) (*store.Game, error) {
	query := `
		SELECT id, node_id, player_ids, status, created_at, updated_at
		FROM games
		WHERE id = ?
	`
	var (
		game      store.Game
		playerIDs string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&game.ID,
		&game.NodeID,
		&playerIDs,
		&game.Status,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("game %q: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query game: %w", err)
	}

	if err := json.Unmarshal([]byte(playerIDs), &game.PlayerIDs); err != nil {
		return nil, fmt.Errorf("decode player ids: %w", err)
	}

	return &game, nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func expectOneRow(result sql.Result, kind, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
