package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/amezhanin/skinstore/internal/events"
	"github.com/amezhanin/skinstore/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memLedgerStore emulates the store's row locking: a transaction that has
// read a user's balance holds that user's mutex until commit or rollback,
// so concurrent debits on one account serialize exactly like FOR UPDATE.
type memLedgerStore struct {
	mu       sync.Mutex
	balances map[int64]int64
	locks    map[int64]*sync.Mutex

	beginErr error
}

func newMemLedgerStore(balances map[int64]int64) *memLedgerStore {
	return &memLedgerStore{
		balances: balances,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (s *memLedgerStore) Begin(ctx context.Context) (repository.LedgerTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &memLedgerTx{store: s, staged: make(map[int64]int64)}, nil
}

func (s *memLedgerStore) rowLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[userID]; !ok {
		s.locks[userID] = &sync.Mutex{}
	}
	return s.locks[userID]
}

func (s *memLedgerStore) balance(userID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[userID]
	return b, ok
}

type memLedgerTx struct {
	store  *memLedgerStore
	held   []*sync.Mutex
	staged map[int64]int64
	closed bool
}

func (t *memLedgerTx) BalanceForUpdate(ctx context.Context, userID int64) (int64, bool, error) {
	lock := t.store.rowLock(userID)
	lock.Lock()
	t.held = append(t.held, lock)

	b, ok := t.store.balance(userID)
	if !ok {
		return 0, false, nil
	}
	return b, true, nil
}

func (t *memLedgerTx) SetBalance(ctx context.Context, userID int64, balance int64) error {
	t.staged[userID] = balance
	return nil
}

func (t *memLedgerTx) Commit() error {
	t.store.mu.Lock()
	for id, b := range t.staged {
		t.store.balances[id] = b
	}
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *memLedgerTx) Rollback() error {
	t.release()
	return nil
}

func (t *memLedgerTx) release() {
	if t.closed {
		return
	}
	t.closed = true
	for _, l := range t.held {
		l.Unlock()
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PurchaseCompleted
	err    error
}

func (p *recordingPublisher) PublishPurchase(ctx context.Context, event events.PurchaseCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func TestDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("successful debit returns new balance", func(t *testing.T) {
		store := newMemLedgerStore(map[int64]int64{1: 1000})
		pub := &recordingPublisher{}
		svc := NewLedgerService(store, pub, zap.NewNop())

		balance, err := svc.Debit(ctx, 1, 400)
		require.NoError(t, err)
		assert.Equal(t, int64(600), balance)

		got, _ := store.balance(1)
		assert.Equal(t, int64(600), got)

		require.Len(t, pub.events, 1)
		assert.Equal(t, int64(1), pub.events[0].UserID)
		assert.Equal(t, int64(400), pub.events[0].Amount)
		assert.Equal(t, int64(600), pub.events[0].Balance)
		assert.NotEmpty(t, pub.events[0].PurchaseID)
	})

	t.Run("insufficient balance leaves row untouched", func(t *testing.T) {
		store := newMemLedgerStore(map[int64]int64{1: 1000})
		pub := &recordingPublisher{}
		svc := NewLedgerService(store, pub, zap.NewNop())

		_, err := svc.Debit(ctx, 1, 1500)
		require.ErrorIs(t, err, ErrInsufficientBalance)

		got, _ := store.balance(1)
		assert.Equal(t, int64(1000), got)
		assert.Empty(t, pub.events)
	})

	t.Run("unknown user", func(t *testing.T) {
		store := newMemLedgerStore(map[int64]int64{1: 1000})
		svc := NewLedgerService(store, &recordingPublisher{}, zap.NewNop())

		_, err := svc.Debit(ctx, 42, 10)
		require.ErrorIs(t, err, ErrUserNotFound)

		got, _ := store.balance(1)
		assert.Equal(t, int64(1000), got)
	})

	t.Run("begin failure surfaces as store error", func(t *testing.T) {
		store := newMemLedgerStore(map[int64]int64{})
		store.beginErr = errors.New("connection refused")
		svc := NewLedgerService(store, &recordingPublisher{}, zap.NewNop())

		_, err := svc.Debit(ctx, 1, 10)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUserNotFound)
		assert.NotErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("publisher failure does not fail the debit", func(t *testing.T) {
		store := newMemLedgerStore(map[int64]int64{1: 100})
		pub := &recordingPublisher{err: errors.New("broker down")}
		svc := NewLedgerService(store, pub, zap.NewNop())

		balance, err := svc.Debit(ctx, 1, 40)
		require.NoError(t, err)
		assert.Equal(t, int64(60), balance)
	})
}

func TestDebitConcurrent(t *testing.T) {
	// Ten debits of 300 against a balance of 1000: under any serialization
	// exactly three succeed and the final balance is 100.
	store := newMemLedgerStore(map[int64]int64{1: 1000})
	svc := NewLedgerService(store, &recordingPublisher{}, zap.NewNop())

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Debit(context.Background(), 1, 300)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientBalance):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, rejected)

	balance, _ := store.balance(1)
	assert.Equal(t, int64(100), balance)
}

func TestDebitParallelAccounts(t *testing.T) {
	store := newMemLedgerStore(map[int64]int64{1: 500, 2: 500})
	svc := NewLedgerService(store, &recordingPublisher{}, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(2)
	for _, id := range []int64{1, 2} {
		go func(id int64) {
			defer wg.Done()
			_, err := svc.Debit(context.Background(), id, 200)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	b1, _ := store.balance(1)
	b2, _ := store.balance(2)
	assert.Equal(t, int64(300), b1)
	assert.Equal(t, int64(300), b2)
}
