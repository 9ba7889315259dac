// Package pgstore is a Postgres-backed session store. Schema migrations are
// embedded and applied on open.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vango-go/voicegate/pkg/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements session.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database, runs pending migrations, and returns the
// store.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func migrate(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Create(ctx context.Context, sess *session.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, requester_id, channel_name, agent_id, status, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sess.ID, sess.RequesterID, sess.ChannelName, sess.AgentID, string(sess.Status), sess.StartedAt, sess.EndedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, requester_id, channel_name, agent_id, status, started_at, ended_at
		FROM sessions WHERE id = $1`, id)

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return sess, nil
}

func (s *Store) Update(ctx context.Context, sess *session.Session) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions
		SET requester_id = $2, channel_name = $3, agent_id = $4, status = $5, started_at = $6, ended_at = $7
		WHERE id = $1`,
		sess.ID, sess.RequesterID, sess.ChannelName, sess.AgentID, string(sess.Status), sess.StartedAt, sess.EndedAt)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s not found", sess.ID)
	}
	return nil
}

func (s *Store) ListActive(ctx context.Context) ([]*session.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, requester_id, channel_name, agent_id, status, started_at, ended_at
		FROM sessions WHERE status = $1 ORDER BY started_at`, string(session.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var sess session.Session
	var status string
	if err := row.Scan(&sess.ID, &sess.RequesterID, &sess.ChannelName, &sess.AgentID,
		&status, &sess.StartedAt, &sess.EndedAt); err != nil {
		return nil, err
	}
	sess.Status = session.Status(status)
	return &sess, nil
}
