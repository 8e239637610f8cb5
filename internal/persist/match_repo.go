package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arenasync/server/internal/core/event"
)

// MatchRow is one archived match.
type MatchRow struct {
	ID          int64
	ServerName  string
	MapName     string
	Seed        int64
	StartedAt   time.Time
	EndedAt     *time.Time
	Ticks       int64
	PeakPlayers int
}

type MatchRepo struct {
	db *DB
}

func NewMatchRepo(db *DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// StartMatch inserts a match row and returns an archive bound to it.
func (r *MatchRepo) StartMatch(ctx context.Context, serverName, mapName string, seed int64) (*Match, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO matches (server_name, map_name, seed)
		 VALUES ($1, $2, $3) RETURNING id`,
		serverName, mapName, seed,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("start match: %w", err)
	}
	return &Match{repo: r, ID: id}, nil
}

// Load returns the match row, or nil if it does not exist.
func (r *MatchRepo) Load(ctx context.Context, id int64) (*MatchRow, error) {
	row := &MatchRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, server_name, map_name, seed, started_at, ended_at, ticks, peak_players
		 FROM matches WHERE id = $1`, id,
	).Scan(
		&row.ID, &row.ServerName, &row.MapName, &row.Seed,
		&row.StartedAt, &row.EndedAt, &row.Ticks, &row.PeakPlayers,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// KillCount returns the number of archived kills of a match.
func (r *MatchRepo) KillCount(ctx context.Context, matchID int64) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM match_kills WHERE match_id = $1`, matchID,
	).Scan(&n)
	return n, err
}

// Match is the archive handle of the running match.
type Match struct {
	repo *MatchRepo
	ID   int64
}

// WriteKills atomically writes a batch of kill events in a single
// transaction.
func (m *Match) WriteKills(ctx context.Context, kills []event.PlayerKilled) error {
	if len(kills) == 0 {
		return nil
	}
	tx, err := m.repo.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("kills begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, k := range kills {
		if _, err := tx.Exec(ctx,
			`INSERT INTO match_kills (match_id, tick, target_id, target_name, killer_id, killer_name, killer_kills, damage_type, item_source)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			m.ID, int64(k.Tick), int32(k.TargetID), k.TargetName, int32(k.KillerID), k.KillerName,
			int16(k.KillerKills), int16(k.DamageType), k.ItemSource,
		); err != nil {
			return fmt.Errorf("kills insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// End stamps the match's end time and summary.
func (m *Match) End(ctx context.Context, ticks uint64, peakPlayers int) error {
	_, err := m.repo.db.Pool.Exec(ctx,
		`UPDATE matches SET ended_at = now(), ticks = $2, peak_players = $3 WHERE id = $1`,
		m.ID, int64(ticks), peakPlayers,
	)
	if err != nil {
		return fmt.Errorf("end match %d: %w", m.ID, err)
	}
	return nil
}
