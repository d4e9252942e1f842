package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vovakirdan/arena-coordinator/internal/store"
)

type playerRow struct {
	ID        string `gorm:"primaryKey"`
	Username  string `gorm:"not null"`
	Picture   *string
	Rank      int      `gorm:"not null;default:1500"`
	Cards     []string `gorm:"serializer:json;not null"`
	CreatedAt time.Time
}

func (playerRow) TableName() string { return "players" }

func newPlayerRow(p *store.Player) playerRow {
	cards := p.Cards
	if cards == nil {
		cards = []string{}
	}
	return playerRow{
		ID:        p.ID,
		Username:  p.Username,
		Picture:   p.Picture,
		Rank:      p.Rank,
		Cards:     cards,
		CreatedAt: p.CreatedAt,
	}
}

func (r playerRow) toPlayer() *store.Player {
	return &store.Player{
		ID:        r.ID,
		Username:  r.Username,
		Picture:   r.Picture,
		Rank:      r.Rank,
		Cards:     r.Cards,
		CreatedAt: r.CreatedAt,
	}
}

type gameRow struct {
	ID        string   `gorm:"primaryKey"`
	NodeID    string   `gorm:"not null"`
	PlayerIDs []string `gorm:"serializer:json;not null"`
	Status    string   `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (gameRow) TableName() string { return "games" }

func newGameRow(g *store.Game) gameRow {
	playerIDs := g.PlayerIDs
	if playerIDs == nil {
		playerIDs = []string{}
	}
	return gameRow{
		ID:        g.ID,
		NodeID:    g.NodeID,
		PlayerIDs: playerIDs,
		Status:    string(g.Status),
		CreatedAt: g.CreatedAt,
	}
}

func (r gameRow) toGame() *store.Game {
	return &store.Game{
		ID:        r.ID,
		NodeID:    r.NodeID,
		PlayerIDs: r.PlayerIDs,
		Status:    store.GameStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// PostgresStore implements store.Store on top of gorm.
type PostgresStore struct {
	db *gorm.DB
}

// New opens a Postgres connection and migrates the schema.
func New(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB wraps an existing gorm handle and migrates the schema.
func NewWithDB(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&playerRow{}, &gameRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) GetPlayer(ctx context.Context, id string) (*store.Player, error) {
	var row playerRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("player %q: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query player: %w", err)
	}
	return row.toPlayer(), nil
}

func (s *PostgresStore) CreatePlayer(ctx context.Context, p *store.Player) error {
	row := newPlayerRow(p)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	p.CreatedAt = row.CreatedAt
	return nil
}

func (s *PostgresStore) UpdatePlayerCards(ctx context.Context, id string, cards []string) error {
	if cards == nil {
		cards = []string{}
	}
	// Select keeps gorm from skipping the update of an empty slice.
	result := s.db.WithContext(ctx).
		Model(&playerRow{ID: id}).
		Select("Cards").
		Updates(playerRow{Cards: cards})
	if result.Error != nil {
		return fmt.Errorf("update player cards: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("player %q: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CreateGame(ctx context.Context, g *store.Game) error {
	row := newGameRow(g)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	g.CreatedAt = row.CreatedAt
	g.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *PostgresStore) UpdateGameStatus(ctx context.Context, id string, status store.GameStatus) error {
	result := s.db.WithContext(ctx).
		Model(&gameRow{ID: id}).
		Update("status", string(status))
	if result.Error != nil {
		return fmt.Errorf("update game status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("game %q: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetGame(ctx context.Context, id string) (*store.Game, error) {
	var row gameRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("game %q: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query game: %w", err)
	}
	return row.toGame(), nil
}

var _ store.Store = (*PostgresStore)(nil)
