package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var ErrIntentNotFound = errors.New("payment intent not found")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PaymentIntent is the ledger row for one provider intent (or hosted
// session when no intent id is known yet).
type PaymentIntent struct {
	ID        string
	CartID    string
	Amount    int64
	Currency  string
	Status    string
	Manifest  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OutboxEvent struct {
	ID           int
	AggregateID  string
	PartitionKey string
	EventType    string
	Payload      []byte
	CreatedAt    time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

// NewRepositoryWithDB wraps an already opened handle.
func NewRepositoryWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// RecordIntent stores a freshly created intent. Recording the same id
// twice keeps the first row, which is what an idempotent retry produces.
func (r *Repository) RecordIntent(ctx context.Context, pi *PaymentIntent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_intents (id, cart_id, amount, currency, status, manifest)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (id) DO NOTHING`,
		pi.ID, pi.CartID, pi.Amount, pi.Currency, pi.Status, manifestOrEmpty(pi.Manifest))
	if err != nil {
		return fmt.Errorf("failed to record payment intent: %w", err)
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_intents SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to update payment intent status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrIntentNotFound
	}
	return nil
}

func (r *Repository) GetIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var pi PaymentIntent
	err := r.db.QueryRowContext(ctx,
		`SELECT id, cart_id, amount, currency, status, manifest, created_at, updated_at
         FROM payment_intents WHERE id = $1`, id).
		Scan(&pi.ID, &pi.CartID, &pi.Amount, &pi.Currency, &pi.Status, &pi.Manifest, &pi.CreatedAt, &pi.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return &pi, nil
}

// CompletePayment marks the intent paid and writes the outbox event in one
// transaction. The intent row is created if the webhook arrives before the
// ledger write, and a redelivered webhook does not add a second event.
func (r *Repository) CompletePayment(ctx context.Context, pi *PaymentIntent, eventType string, payload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payment_intents (id, cart_id, amount, currency, status, manifest)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()`,
		pi.ID, pi.CartID, pi.Amount, pi.Currency, StatusSucceeded, manifestOrEmpty(pi.Manifest))
	if err != nil {
		return fmt.Errorf("failed to complete payment intent: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, partition_key, event_type, payload)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (aggregate_id, event_type) DO NOTHING`,
		pi.ID, pi.CartID, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, partition_key, event_type, payload, created_at
         FROM outbox_events
         WHERE processed_at IS NULL
         ORDER BY created_at
         LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.PartitionKey, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event %d as processed: %w", id, err)
	}
	return nil
}

// GetStuckIntents returns succeeded intents with a cart that never got an
// outbox event, e.g. rows fixed up by hand during reconciliation.
func (r *Repository) GetStuckIntents(ctx context.Context) ([]*PaymentIntent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.cart_id, p.amount, p.currency, p.status, p.manifest, p.created_at, p.updated_at
         FROM payment_intents p
         WHERE p.status = $1
           AND p.cart_id <> ''
           AND NOT EXISTS (SELECT 1 FROM outbox_events o WHERE o.aggregate_id = p.id)
         LIMIT 100`, StatusSucceeded)
	if err != nil {
		return nil, fmt.Errorf("failed to query stuck intents: %w", err)
	}
	defer rows.Close()

	var out []*PaymentIntent
	for rows.Next() {
		var pi PaymentIntent
		if err := rows.Scan(&pi.ID, &pi.CartID, &pi.Amount, &pi.Currency, &pi.Status, &pi.Manifest, &pi.CreatedAt, &pi.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment intent: %w", err)
		}
		out = append(out, &pi)
	}
	return out, rows.Err()
}

func manifestOrEmpty(m []byte) []byte {
	if len(m) == 0 {
		return []byte("[]")
	}
	return m
}
