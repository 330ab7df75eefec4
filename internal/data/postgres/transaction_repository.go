// Package postgres provides PostgreSQL implementations of the ledger repositories.
// Every statement uses bind parameters; the only dynamic SQL is the ORDER BY
// clause, assembled from a closed set of column names.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/outbox"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/platform/persistence"
)

const transactionColumns = `id, from_account, to_account, amount, description, status, created_at, note, note_updated_at`

const (
	pgCheckViolation  = "23514"
	pgUniqueViolation = "23505"
)

// TransactionRepository implements ledger.Repository for PostgreSQL
type TransactionRepository struct {
	pool   persistence.Pool
	outbox outbox.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewTransactionRepository creates the Postgres ledger store. Each append and
// annotation writes its outbox event in the same database transaction.
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB, outboxRepo outbox.Repository) ledger.Repository {
	return &TransactionRepository{
		pool:   db.Pool(),
		outbox: outboxRepo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Append stores a completed transaction together with its ledger event
func (r *TransactionRepository) Append(ctx context.Context, draft *ledger.Transaction) (*ledger.Transaction, error) {
	if err := draft.CheckInvariants(); err != nil {
		return nil, err
	}

	tx := draft.Clone()
	tx.ID = uuid.New()
	tx.CreatedAt = r.now().Truncate(time.Microsecond)
	tx.Status = shared.TransactionStatusCompleted
	tx.Note = nil
	tx.NoteUpdatedAt = nil

	msg, err := outbox.NewMessage(outbox.EventTransactionCommitted, tx, shared.CorrelationIDFromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger event: %w", err)
	}

	query := `
		INSERT INTO transactions (id, from_account, to_account, amount, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	err = persistence.ExecuteTx(ctx, r.pool, func(dbTx pgx.Tx) error {
		if _, err := dbTx.Exec(ctx, query,
			tx.ID,
			tx.FromAccount,
			tx.ToAccount,
			tx.Amount,
			tx.Description,
			tx.Status,
			tx.CreatedAt,
		); err != nil {
			return err
		}
		return r.outbox.WithTx(dbTx).Create(ctx, msg)
	})
	if err != nil {
		r.logger.Error("Failed to append transaction",
			"from_account", tx.FromAccount,
			"to_account", tx.ToAccount,
			"error", err,
		)
		return nil, classifyWriteError("append", err)
	}

	return tx, nil
}

// Get retrieves a transaction by id
func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	var tx *ledger.Transaction
	err := r.withReadRetry(ctx, "get", func() error {
		var err error
		tx, err = scanTransaction(r.pool.QueryRow(ctx, query, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound(id)
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		return nil, shared.ErrStorage{Op: "get", Err: err}
	}
	return tx, nil
}

// ListByAccount retrieves every transaction the account takes part in
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, key ledger.SortKey, dir ledger.SortDirection) ([]*ledger.Transaction, error) {
	orderBy, err := orderByClause(key, dir)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE from_account = $1 OR to_account = $1
		ORDER BY ` + orderBy

	var txs []*ledger.Transaction
	err = r.withReadRetry(ctx, "list_by_account", func() error {
		rows, err := r.pool.Query(ctx, query, accountID)
		if err != nil {
			return err
		}
		defer rows.Close()

		txs = make([]*ledger.Transaction, 0)
		for rows.Next() {
			tx, err := scanTransaction(rows)
			if err != nil {
				return err
			}
			txs = append(txs, tx)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID, "error", err)
		return nil, shared.ErrStorage{Op: "list_by_account", Err: err}
	}
	return txs, nil
}

// Annotate replaces the note of an existing transaction and records an annotation event
func (r *TransactionRepository) Annotate(ctx context.Context, id uuid.UUID, note string) (*ledger.Transaction, error) {
	query := `
		UPDATE transactions
		SET note = $1, note_updated_at = $2
		WHERE id = $3
		RETURNING ` + transactionColumns

	var updated *ledger.Transaction
	err := persistence.ExecuteTx(ctx, r.pool, func(dbTx pgx.Tx) error {
		var err error
		updated, err = scanTransaction(dbTx.QueryRow(ctx, query, note, r.now().Truncate(time.Microsecond), id))
		if err != nil {
			return err
		}
		msg, err := outbox.NewMessage(outbox.EventTransactionAnnotated, updated, shared.CorrelationIDFromContext(ctx))
		if err != nil {
			return err
		}
		return r.outbox.WithTx(dbTx).Create(ctx, msg)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound(id)
		}
		r.logger.Error("Failed to annotate transaction", "transaction_id", id.String(), "error", err)
		return nil, classifyWriteError("annotate", err)
	}
	return updated, nil
}

// withReadRetry retries a read once when it fails for a reason other than a missing row
func (r *TransactionRepository) withReadRetry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil || errors.Is(err, pgx.ErrNoRows) || ctx.Err() != nil {
		return err
	}
	r.logger.Warn("Retrying ledger read", "op", op, "error", err)
	return fn()
}

func orderByClause(key ledger.SortKey, dir ledger.SortDirection) (string, error) {
	var column string
	switch key {
	case ledger.SortByDate:
		column = "created_at"
	case ledger.SortByAmount:
		column = "amount"
	case ledger.SortByDescription:
		column = "description"
	default:
		return "", shared.ErrInvalidArgument{Field: "sort", Reason: "must be one of date, amount, description"}
	}

	var direction string
	switch dir {
	case ledger.SortAscending:
		direction = "ASC"
	case ledger.SortDescending:
		direction = "DESC"
	default:
		return "", shared.ErrInvalidArgument{Field: "order", Reason: "must be asc or desc"}
	}

	return column + " " + direction + ", id " + direction, nil
}

func scanTransaction(row pgx.Row) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.FromAccount,
		&tx.ToAccount,
		&tx.Amount,
		&tx.Description,
		&tx.Status,
		&tx.CreatedAt,
		&tx.Note,
		&tx.NoteUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// classifyWriteError maps database constraint failures onto the ledger taxonomy
func classifyWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCheckViolation:
			return shared.ErrConstraintViolation{Constraint: pgErr.ConstraintName}
		case pgUniqueViolation:
			return shared.ErrConstraintViolation{Constraint: "duplicate transaction id"}
		}
	}
	return shared.ErrStorage{Op: op, Err: err}
}
