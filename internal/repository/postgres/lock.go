package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"wikistore/internal/domain/models"
	"wikistore/internal/domain/repositories"
)

// PostgresLockStore keeps the single editing lock row per document.
type PostgresLockStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewLockStore creates the lock store.
func NewLockStore(config *RepositoryConfig) repositories.LockStore {
	return &PostgresLockStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// SaveLock upserts the lock row, stamping now and assigning a token on
// first save.
func (s *PostgresLockStore) SaveLock(ctx context.Context, lock *models.Lock) error {
	if lock.Token == "" {
		lock.Token = uuid.NewString()
	}
	lock.Date = time.Now()

	db := GetExecutor(ctx, s.pool)
	var exists bool
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE doc_id = $1)", s.tables.Locks), lock.DocID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check lock: %w", err)
	}
	if exists {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"UPDATE %s SET owner = $2, token = $3, date = $4 WHERE doc_id = $1", s.tables.Locks),
			lock.DocID, lock.Owner, lock.Token, lock.Date)
	} else {
		_, err = db.Exec(ctx, fmt.Sprintf(
			"INSERT INTO %s (doc_id, owner, token, date) VALUES ($1, $2, $3, $4)", s.tables.Locks),
			lock.DocID, lock.Owner, lock.Token, lock.Date)
	}
	if err != nil {
		return fmt.Errorf("save lock: %w", err)
	}
	return nil
}

// LoadLock returns the lock on a document, or nil when it is unlocked.
// An absent lock is a normal outcome, not an error.
func (s *PostgresLockStore) LoadLock(ctx context.Context, docID int64) (*models.Lock, error) {
	db := GetExecutor(ctx, s.pool)
	lock := &models.Lock{DocID: docID}
	err := db.QueryRow(ctx, fmt.Sprintf(
		"SELECT owner, token, date FROM %s WHERE doc_id = $1", s.tables.Locks),
		docID).Scan(&lock.Owner, &lock.Token, &lock.Date)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load lock: %w", err)
	}
	return lock, nil
}

// DeleteLock releases the lock; releasing an absent lock is fine.
func (s *PostgresLockStore) DeleteLock(ctx context.Context, docID int64) error {
	db := GetExecutor(ctx, s.pool)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE doc_id = $1", s.tables.Locks), docID); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
