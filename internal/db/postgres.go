package db

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is compiled into the binary at build time.
// This ensures schema init works inside the Docker runtime image which
// does not copy internal/db/schema.sql into the final stage.
//
//go:embed schema.sql
var schemaSQL string

// Blocked threshold: events at or above this risk score count as blocked
// threats in the status aggregate.
const blockedRiskThreshold = 76

// ShieldEvent is one audit row in the shield_events log.
type ShieldEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	EventType  string    `json:"event_type"`
	Chain      string    `json:"chain"`
	Target     string    `json:"target,omitempty"`
	TxHash     string    `json:"tx_hash,omitempty"`
	RiskScore  *int      `json:"risk_score,omitempty"`
	TrustScore *int      `json:"trust_score,omitempty"`
	Result     string    `json:"result,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for Shield Engine")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql DDL statements.
func (s *PostgresStore) InitSchema() error {
	_, err := s.pool.Exec(context.Background(), schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Shield event log schema initialized")
	return nil
}

// LogEvent appends one audit row. Callers treat this as best-effort and
// only log the returned error.
func (s *PostgresStore) LogEvent(ctx context.Context, ev ShieldEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	sql := `
		INSERT INTO shield_events
			(id, user_id, event_type, chain, target, tx_hash, risk_score, trust_score, result)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, NULLIF($9, ''));
	`
	_, err := s.pool.Exec(ctx, sql,
		ev.ID, ev.UserID, ev.EventType, ev.Chain,
		ev.Target, ev.TxHash, ev.RiskScore, ev.TrustScore, ev.Result)
	if err != nil {
		return fmt.Errorf("failed to insert shield event: %v", err)
	}
	return nil
}

// CountEventsSince returns the number of events a user generated after the
// cutoff time.
func (s *PostgresStore) CountEventsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	sql := `SELECT COUNT(*) FROM shield_events WHERE user_id = $1 AND created_at >= $2`
	if err := s.pool.QueryRow(ctx, sql, userID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountBlockedThreats returns how many critical-risk events the user has
// logged since the cutoff.
func (s *PostgresStore) CountBlockedThreats(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	sql := `
		SELECT COUNT(*) FROM shield_events
		WHERE user_id = $1 AND created_at >= $2 AND risk_score >= $3
	`
	if err := s.pool.QueryRow(ctx, sql, userID, since, blockedRiskThreshold).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// RecentEvents returns the newest rows for a user, capped at limit.
func (s *PostgresStore) RecentEvents(ctx context.Context, userID string, limit int) ([]ShieldEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	sql := `
		SELECT id, user_id, event_type, chain,
		       COALESCE(target, ''), COALESCE(tx_hash, ''),
		       risk_score, trust_score, COALESCE(result, ''), created_at
		FROM shield_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, sql, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]ShieldEvent, 0)
	for rows.Next() {
		var ev ShieldEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.EventType, &ev.Chain,
			&ev.Target, &ev.TxHash, &ev.RiskScore, &ev.TrustScore, &ev.Result, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// GetPool exposes the connection pool for other subsystems
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
