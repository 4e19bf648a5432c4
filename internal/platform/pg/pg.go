// Package pg is the self-hosted driver: the same data API and join procedure
// the hosted platform exposes, served by a Postgres the operator runs. The
// capacity check stays in SQL (join_chatroom), not in Go.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
)

// Store implements platform.Store and platform.RPC over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dbURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("platform/pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool; the caller keeps ownership.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool for migrations and tests.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) CreateChatroom(ctx context.Context) (model.Chatroom, error) {
	var room model.Chatroom
	err := s.pool.QueryRow(ctx,
		`INSERT INTO "Chatroom" DEFAULT VALUES RETURNING token, created_at`,
	).Scan(&room.Token, &room.CreatedAt)
	if err != nil {
		return model.Chatroom{}, fmt.Errorf("platform/pg: create chatroom: %w", err)
	}
	return room, nil
}

func (s *Store) ChatroomByToken(ctx context.Context, token string) (model.Chatroom, error) {
	var room model.Chatroom
	err := s.pool.QueryRow(ctx,
		`SELECT token, created_at FROM "Chatroom" WHERE token = $1`, token,
	).Scan(&room.Token, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Chatroom{}, platform.ErrNotFound
	}
	if err != nil {
		return model.Chatroom{}, fmt.Errorf("platform/pg: fetch chatroom: %w", err)
	}
	return room, nil
}

func (s *Store) DeleteChatroom(ctx context.Context, token string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM "Chatroom" WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("platform/pg: delete chatroom: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return platform.ErrNotFound
	}
	return nil
}

func (s *Store) InsertMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	row := msg
	err := s.pool.QueryRow(ctx,
		`INSERT INTO "Messages" ("RoomId", "SenderId", "Content")
		 VALUES ($1, $2, $3)
		 RETURNING id::text, "timestamp"`,
		msg.RoomID, msg.SenderID, msg.Content,
	).Scan(&row.ID, &row.Timestamp)
	if err != nil {
		return model.Message{}, fmt.Errorf("platform/pg: insert message: %w", err)
	}
	return row, nil
}

func (s *Store) MessagesByRoom(ctx context.Context, room string) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, "RoomId", "SenderId", "Content", "timestamp"
		 FROM "Messages" WHERE "RoomId" = $1 ORDER BY "timestamp" ASC`, room)
	if err != nil {
		return nil, fmt.Errorf("platform/pg: list messages: %w", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("platform/pg: scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("platform/pg: list messages: %w", err)
	}
	return out, nil
}

// JoinChatroom calls the SQL procedure so the existence and capacity check
// stay atomic on the database side.
func (s *Store) JoinChatroom(ctx context.Context, token string) (bool, error) {
	var joined *bool
	err := s.pool.QueryRow(ctx, `SELECT join_chatroom($1)`, token).Scan(&joined)
	if err != nil {
		return false, fmt.Errorf("platform/pg: join_chatroom: %w", err)
	}
	return joined != nil && *joined, nil
}
