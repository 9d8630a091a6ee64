package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/vertwheel/pacman-p2/internal/game"
	"github.com/vertwheel/pacman-p2/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	id         TEXT PRIMARY KEY,
	policy     TEXT NOT NULL,
	layout     TEXT NOT NULL,
	seed       BIGINT NOT NULL,
	status     TEXT NOT NULL,
	steps      INTEGER NOT NULL,
	score      INTEGER NOT NULL,
	food_left  INTEGER NOT NULL,
	last_error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	ended_at   TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS transitions (
	episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	step       INTEGER NOT NULL,
	pos_x      INTEGER NOT NULL,
	pos_y      INTEGER NOT NULL,
	action     TEXT NOT NULL,
	reward     INTEGER NOT NULL,
	done       BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (episode_id, step)
);`

// PostgresStore implements Recorder backed by PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects with a lib/pq DSN and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the tables if they are missing.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (p *PostgresStore) CreateEpisode(ctx context.Context, ep types.Episode) error {
	query := `
		INSERT INTO episodes (id, policy, layout, seed, status, steps, score,
		                      food_left, last_error, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := p.db.ExecContext(ctx, query,
		ep.ID, ep.Policy, ep.Layout, ep.Seed, ep.Status, ep.Steps, ep.Score,
		ep.FoodLeft, ep.LastError, ep.StartedAt, ep.EndedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create episode: %w", err)
	}
	return nil
}

func (p *PostgresStore) UpdateEpisode(ctx context.Context, ep types.Episode) error {
	query := `
		UPDATE episodes SET
			status = $2, steps = $3, score = $4, food_left = $5,
			last_error = $6, ended_at = $7
		WHERE id = $1`

	result, err := p.db.ExecContext(ctx, query,
		ep.ID, ep.Status, ep.Steps, ep.Score, ep.FoodLeft, ep.LastError, ep.EndedAt)
	if err != nil {
		return fmt.Errorf("failed to update episode: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) GetEpisode(ctx context.Context, id string) (types.Episode, error) {
	query := `
		SELECT id, policy, layout, seed, status, steps, score, food_left,
		       last_error, started_at, ended_at
		FROM episodes WHERE id = $1`

	var ep types.Episode
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&ep.ID, &ep.Policy, &ep.Layout, &ep.Seed, &ep.Status, &ep.Steps,
		&ep.Score, &ep.FoodLeft, &ep.LastError, &ep.StartedAt, &ep.EndedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Episode{}, ErrNotFound
	}
	if err != nil {
		return types.Episode{}, fmt.Errorf("failed to get episode: %w", err)
	}
	return ep, nil
}

// AppendTransitions inserts the batch in one transaction.
func (p *PostgresStore) AppendTransitions(ctx context.Context, transitions []types.Transition) error {
	if len(transitions) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transitions (episode_id, step, pos_x, pos_y, action, reward, done, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, tr := range transitions {
		if _, err := stmt.ExecContext(ctx, tr.EpisodeID, tr.Step, tr.Position.X, tr.Position.Y,
			tr.Action, tr.Reward, tr.Done, tr.Timestamp); err != nil {
			return fmt.Errorf("failed to insert transition %s/%d: %w", tr.EpisodeID, tr.Step, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transitions: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListTransitions(ctx context.Context, episodeID string) ([]types.Transition, error) {
	if _, err := p.GetEpisode(ctx, episodeID); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT episode_id, step, pos_x, pos_y, action, reward, done, created_at
		FROM transitions WHERE episode_id = $1 ORDER BY step`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	var out []types.Transition
	for rows.Next() {
		var tr types.Transition
		var action string
		if err := rows.Scan(&tr.EpisodeID, &tr.Step, &tr.Position.X, &tr.Position.Y,
			&action, &tr.Reward, &tr.Done, &tr.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		tr.Action = game.Action(action)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// isUniqueViolation checks the PostgreSQL unique_violation SQLSTATE.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
