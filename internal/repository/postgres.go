// Package repository persists room and membership records in PostgreSQL.
// Only the lobby state is durable; live match state never touches the
// database.
package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spindown/spindown-server-go/internal/room"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id          TEXT PRIMARY KEY,
	invite_code TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	host_id     TEXT NOT NULL,
	visibility  TEXT NOT NULL,
	capacity    INT  NOT NULL,
	bracket     TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  BIGINT NOT NULL,
	updated_at  BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS room_members (
	id             TEXT PRIMARY KEY,
	room_id        TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	participant_id TEXT NOT NULL,
	name           TEXT NOT NULL,
	status         TEXT NOT NULL,
	is_host        BOOLEAN NOT NULL,
	deck_id        TEXT NOT NULL DEFAULT '',
	joined_at      BIGINT NOT NULL,
	seat           INT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_room_members_room ON room_members(room_id);
`

// NewPool connects to PostgreSQL and verifies the connection.
func NewPool(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("database connection established")
	return pool, nil
}

// RoomStore implements room.Store on a pgx pool.
type RoomStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRoomStore creates the store and ensures the schema exists.
func NewRoomStore(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*RoomStore, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, err
	}
	return &RoomStore{pool: pool, logger: logger}, nil
}

// SaveRoom writes the full room record, replacing all membership rows, in
// one transaction.
func (s *RoomStore) SaveRoom(ctx context.Context, rec room.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO rooms (
			id, invite_code, name, description, host_id,
			visibility, capacity, bracket, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			visibility = EXCLUDED.visibility,
			capacity = EXCLUDED.capacity,
			bracket = EXCLUDED.bracket,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`,
		rec.ID, rec.InviteCode, rec.Name, rec.Description, rec.HostID,
		rec.Visibility, rec.Capacity, rec.Bracket, rec.Status,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM room_members WHERE room_id = $1`, rec.ID); err != nil {
		return err
	}

	for seat, m := range rec.Members {
		_, err := tx.Exec(ctx, `
			INSERT INTO room_members (
				id, room_id, participant_id, name, status, is_host, deck_id, joined_at, seat
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			m.ID, rec.ID, m.ParticipantID, m.Name, m.Status, m.IsHost, m.DeckID, m.JoinedAt, seat,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// DeleteRoom removes the room; membership rows cascade.
func (s *RoomStore) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	return err
}

// LoadRooms reads every persisted room with its memberships in seat order.
func (s *RoomStore) LoadRooms(ctx context.Context) ([]room.Record, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, `
		SELECT id, invite_code, name, description, host_id,
		       visibility, capacity, bracket, status, created_at, updated_at
		FROM rooms
	`)
	if err != nil {
		return nil, err
	}

	records := make([]room.Record, 0)
	byID := make(map[string]int)
	for rows.Next() {
		var rec room.Record
		err := rows.Scan(
			&rec.ID, &rec.InviteCode, &rec.Name, &rec.Description, &rec.HostID,
			&rec.Visibility, &rec.Capacity, &rec.Bracket, &rec.Status,
			&rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			rows.Close()
			return nil, err
		}
		byID[rec.ID] = len(records)
		records = append(records, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mrows, err := s.pool.Query(ctx, `
		SELECT room_id, id, participant_id, name, status, is_host, deck_id, joined_at
		FROM room_members
		ORDER BY room_id, seat
	`)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()

	for mrows.Next() {
		var roomID string
		var m room.MemberRecord
		err := mrows.Scan(&roomID, &m.ID, &m.ParticipantID, &m.Name, &m.Status, &m.IsHost, &m.DeckID, &m.JoinedAt)
		if err != nil {
			return nil, err
		}
		if i, ok := byID[roomID]; ok {
			records[i].Members = append(records[i].Members, m)
		}
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}

	s.logger.Info("rooms loaded",
		zap.Int("count", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}

var _ room.Store = (*RoomStore)(nil)
