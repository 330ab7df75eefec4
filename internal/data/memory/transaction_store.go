// Package memory provides in-process implementations of the ledger and report
// run repositories, used when LEDGER_BACKEND=memory and in tests.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
)

type record struct {
	mu sync.RWMutex
	tx *ledger.Transaction
}

type accountIndex struct {
	mu  sync.RWMutex
	ids []uuid.UUID
}

// TransactionStore is an in-memory ledger.Repository. Locks are held per record
// and per account; the maps themselves are sync.Maps so unrelated accounts
// never contend.
type TransactionStore struct {
	records  sync.Map // uuid.UUID -> *record
	accounts sync.Map // string -> *accountIndex
	now      func() time.Time
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{now: func() time.Time { return time.Now().UTC() }}
}

func (s *TransactionStore) account(id string) *accountIndex {
	idx, _ := s.accounts.LoadOrStore(id, &accountIndex{})
	return idx.(*accountIndex)
}

// Append stores a completed copy of draft. Both account indexes are locked in
// a fixed order so concurrent appends on the same pair cannot deadlock.
func (s *TransactionStore) Append(ctx context.Context, draft *ledger.Transaction) (*ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.ErrStorage{Op: "append", Err: err}
	}
	if err := draft.CheckInvariants(); err != nil {
		return nil, err
	}

	tx := draft.Clone()
	tx.Status = shared.TransactionStatusCompleted
	tx.Note = nil
	tx.NoteUpdatedAt = nil

	first, second := s.account(tx.FromAccount), s.account(tx.ToAccount)
	if tx.ToAccount < tx.FromAccount {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	tx.CreatedAt = s.now()
	for {
		tx.ID = uuid.New()
		if _, loaded := s.records.LoadOrStore(tx.ID, &record{tx: tx}); !loaded {
			break
		}
	}

	first.ids = append(first.ids, tx.ID)
	second.ids = append(second.ids, tx.ID)

	return tx.Clone(), nil
}

func (s *TransactionStore) Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	v, ok := s.records.Load(id)
	if !ok {
		return nil, ledger.ErrTransactionNotFound(id)
	}
	rec := v.(*record)
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.tx.Clone(), nil
}

func (s *TransactionStore) ListByAccount(ctx context.Context, accountID string, key ledger.SortKey, dir ledger.SortDirection) ([]*ledger.Transaction, error) {
	less, err := lessFunc(key)
	if err != nil {
		return nil, err
	}
	if dir != ledger.SortAscending && dir != ledger.SortDescending {
		return nil, shared.ErrInvalidArgument{Field: "order", Reason: "must be asc or desc"}
	}

	v, ok := s.accounts.Load(accountID)
	if !ok {
		return []*ledger.Transaction{}, nil
	}
	idx := v.(*accountIndex)
	idx.mu.RLock()
	ids := append([]uuid.UUID(nil), idx.ids...)
	idx.mu.RUnlock()

	txs := make([]*ledger.Transaction, 0, len(ids))
	for _, id := range ids {
		tx, err := s.Get(ctx, id)
		if err != nil {
			return nil, shared.ErrStorage{Op: "list_by_account", Err: err}
		}
		txs = append(txs, tx)
	}

	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if dir == ledger.SortDescending {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
	return txs, nil
}

func (s *TransactionStore) Annotate(ctx context.Context, id uuid.UUID, note string) (*ledger.Transaction, error) {
	v, ok := s.records.Load(id)
	if !ok {
		return nil, ledger.ErrTransactionNotFound(id)
	}
	rec := v.(*record)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	now := s.now()
	n := note
	rec.tx.Note = &n
	rec.tx.NoteUpdatedAt = &now
	return rec.tx.Clone(), nil
}

func lessFunc(key ledger.SortKey) (func(a, b *ledger.Transaction) bool, error) {
	switch key {
	case ledger.SortByDate:
		return func(a, b *ledger.Transaction) bool { return a.CreatedAt.Before(b.CreatedAt) }, nil
	case ledger.SortByAmount:
		return func(a, b *ledger.Transaction) bool { return a.Amount.LessThan(b.Amount) }, nil
	case ledger.SortByDescription:
		return func(a, b *ledger.Transaction) bool { return a.Description < b.Description }, nil
	}
	return nil, shared.ErrInvalidArgument{Field: "sort", Reason: "must be one of date, amount, description"}
}

var _ ledger.Repository = (*TransactionStore)(nil)
