package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawnledger/internal/core"
	"lawnledger/internal/storage"
)

var fixedNow = time.Date(2024, 5, 20, 15, 4, 5, 0, time.Local)

func sequentialIDs() func() core.ID {
	n := 0
	return func() core.ID {
		n++
		return core.ID(fmt.Sprintf("id-%d", n))
	}
}

func openTestLedger(t *testing.T, store storage.Store) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), store,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	return l
}

func draft(desc string, cents int64, date string, kind core.Kind) core.Draft {
	return core.Draft{Description: desc, Amount: core.Money{Cents: cents}, Date: core.MustParseDate(date), Kind: kind}
}

func TestLedgerAddThenRemoveRestores(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, storage.NewMemoryStore())

	_, err := l.Add(ctx, draft("Mow", 4500, "2024-05-01", core.Income))
	require.NoError(t, err)
	before := l.Transactions()

	added, err := l.Add(ctx, draft("Gas", 1000, "2024-05-02", core.Expense))
	require.NoError(t, err)
	assert.Equal(t, core.ID("id-2"), added.ID)

	removed, err := l.Remove(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added, removed)
	assert.Equal(t, before, l.Transactions())
}

func TestLedgerAddValidates(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, storage.NewMemoryStore())

	_, err := l.Add(ctx, draft("", 100, "2024-05-01", core.Income))
	assert.ErrorIs(t, err, core.ErrEmptyDescription)
	_, err = l.Add(ctx, draft("Mow", 0, "2024-05-01", core.Income))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = l.Add(ctx, core.Draft{Description: "Mow", Amount: core.Money{Cents: 1}, Kind: core.Income})
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	assert.Empty(t, l.Transactions())
	assert.Zero(t, l.Version())
}

func TestLedgerEditKeepsIDAndPosition(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, storage.NewMemoryStore())

	first, _ := l.Add(ctx, draft("Mow", 4500, "2024-05-01", core.Income))
	_, _ = l.Add(ctx, draft("Gas", 1000, "2024-05-02", core.Expense))

	edited, err := l.Edit(ctx, first.ID, draft("Mow and edge", 6000, "2024-05-03", core.Income))
	require.NoError(t, err)
	assert.Equal(t, first.ID, edited.ID)

	txs := l.Transactions()
	assert.Equal(t, edited, txs[0])
	assert.Equal(t, "Mow and edge", txs[0].Description)

	_, err = l.Edit(ctx, "missing", draft("x", 1, "2024-05-01", core.Income))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedgerRemoveUnknown(t *testing.T) {
	l := openTestLedger(t, storage.NewMemoryStore())
	_, err := l.Remove(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = l.Get("nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedgerTemplates(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, storage.NewMemoryStore())

	tpl := core.Template{Description: "Weekly mow", Amount: core.Money{Cents: 4500}, Kind: core.Income, Client: "Smith"}

	added, err := l.AddTemplate(ctx, tpl)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = l.AddTemplate(ctx, tpl)
	require.NoError(t, err)
	assert.False(t, added, "duplicate template must not be added")
	assert.Len(t, l.Templates(), 1)

	// Client is not part of the key
	dup := tpl
	dup.Client = "Jones"
	added, _ = l.AddTemplate(ctx, dup)
	assert.False(t, added)

	_, err = l.AddTemplate(ctx, core.Template{Description: "x", Amount: core.Money{Cents: 1}, Kind: "refund"})
	assert.ErrorIs(t, err, core.ErrInvalidKind)

	assert.True(t, l.RemoveTemplate(ctx, tpl.Key()))
	assert.False(t, l.RemoveTemplate(ctx, tpl.Key()))
	assert.Empty(t, l.Templates())
}

func TestLedgerUseTemplate(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, storage.NewMemoryStore())
	_, _ = l.Add(ctx, draft("Existing", 100, "2024-05-01", core.Income))

	tpl := core.Template{Description: "Weekly mow", Amount: core.Money{Cents: 4500}, Kind: core.Income, Client: "Smith"}
	got, err := l.UseTemplate(ctx, tpl)
	require.NoError(t, err)

	assert.Equal(t, core.ID("id-2"), got.ID)
	assert.Equal(t, "2024-05-20", got.Date.String())
	assert.Equal(t, tpl.Description, got.Description)
	assert.Equal(t, tpl.Amount, got.Amount)
	assert.Equal(t, tpl.Kind, got.Kind)
	assert.Equal(t, tpl.Client, got.Client)

	again, err := l.UseTemplate(ctx, tpl)
	require.NoError(t, err)
	assert.NotEqual(t, got.ID, again.ID)
}

func TestLedgerVersion(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, storage.NewMemoryStore())

	v0 := l.Version()
	tx, _ := l.Add(ctx, draft("Mow", 4500, "2024-05-01", core.Income))
	v1 := l.Version()
	_, _ = l.Remove(ctx, tx.ID)
	v2 := l.Version()
	_, _ = l.Remove(ctx, tx.ID)

	assert.Less(t, v0, v1)
	assert.Less(t, v1, v2)
	assert.Equal(t, v2, l.Version(), "failed mutation must not bump version")
}

func TestLedgerViewAndHistory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	l, err := Open(ctx, store, WithIDGenerator(sequentialIDs()), WithGapFill(false))
	require.NoError(t, err)

	for i := 1; i <= 12; i++ {
		_, err := l.Add(ctx, draft(fmt.Sprintf("job %d", i), 1000, fmt.Sprintf("2024-05-%02d", i), core.Income))
		require.NoError(t, err)
	}

	view := l.View(MonthRange(2024, 5), FilterAll)
	assert.Equal(t, int64(12000), view.NetTotal.Cents)
	assert.Len(t, view.PerDay, 12)

	hist := l.History(0)
	require.Len(t, hist, DefaultHistoryLimit)
	assert.Equal(t, "job 12", hist[0].Description)
}

func TestLedgerPersistsAndRehydrates(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	l := openTestLedger(t, store)

	_, _ = l.Add(ctx, draft("Mow", 4500, "2024-05-01", core.Income))
	_, _ = l.Add(ctx, draft("Gas", 1000, "2024-05-02", core.Expense))
	_, _ = l.AddTemplate(ctx, core.Template{Description: "Mow", Amount: core.Money{Cents: 4500}, Kind: core.Income})

	reopened := openTestLedger(t, store)
	assert.Equal(t, l.Transactions(), reopened.Transactions())
	assert.Equal(t, l.Templates(), reopened.Templates())
}

func TestOpenToleratesMalformedStore(t *testing.T) {
	ctx := context.Background()

	t.Run("top level not an array", func(t *testing.T) {
		store := storage.NewMemoryStore()
		require.NoError(t, store.Set(ctx, storage.TransactionsKey, `{"oops":`))
		require.NoError(t, store.Set(ctx, storage.TemplatesKey, `42`))

		l := openTestLedger(t, store)
		assert.Empty(t, l.Transactions())
		assert.Empty(t, l.Templates())
	})

	t.Run("bad entries skipped", func(t *testing.T) {
		store := storage.NewMemoryStore()
		require.NoError(t, store.Set(ctx, storage.TransactionsKey, `[
			{"id": 1714567890123, "description": "Legacy", "amount": 45, "date": "2024-05-01"},
			{"id": "b", "description": "Bad amount", "amount": "lots", "date": "2024-05-01", "type": "income"},
			{"description": "No id", "amount": 5, "date": "2024-05-01", "type": "income"},
			{"id": "c", "description": "Weird kind", "amount": 5, "date": "2024-05-01", "type": "refund"},
			{"id": "d", "description": "Odd date", "amount": 5, "date": "someday", "type": "expense"},
			{"id": "d", "description": "Duplicate", "amount": 5, "date": "2024-05-01", "type": "expense"},
			"garbage"
		]`))

		l := openTestLedger(t, store)
		txs := l.Transactions()
		require.Len(t, txs, 2)

		assert.Equal(t, core.ID("1714567890123"), txs[0].ID)
		assert.Equal(t, core.Income, txs[0].Kind, "legacy entries without a kind are income")
		assert.Equal(t, int64(4500), txs[0].Amount.Cents)

		assert.Equal(t, core.ID("d"), txs[1].ID)
		assert.False(t, txs[1].Date.IsValid())
		assert.Equal(t, "someday", txs[1].Date.String())
	})

	t.Run("entries breaking amount or description rules skipped", func(t *testing.T) {
		store := storage.NewMemoryStore()
		require.NoError(t, store.Set(ctx, storage.TransactionsKey, `[
			{"id": "a", "description": "Mow", "amount": 50, "date": "2024-05-01", "type": "income"},
			{"id": "b", "description": "", "amount": -50, "date": "2024-05-01", "type": "income"},
			{"id": "c", "description": "Huge", "amount": 1e30, "date": "2024-05-01", "type": "income"},
			{"id": "e", "description": "Free", "amount": 0, "date": "2024-05-01", "type": "expense"},
			{"id": "f", "description": "Refund", "amount": -20, "date": "2024-05-01", "type": "expense"},
			{"id": "g", "description": "   ", "amount": 5, "date": "2024-05-01", "type": "expense"}
		]`))

		l := openTestLedger(t, store)
		txs := l.Transactions()
		require.Len(t, txs, 1)
		assert.Equal(t, core.ID("a"), txs[0].ID)

		view := l.View(DayRange(core.MustParseDate("2024-05-01")), FilterAll)
		assert.Equal(t, int64(5000), view.NetTotal.Cents)
		assert.Equal(t, int64(0), view.ExpenseTotal.Cents)
	})
}

type failingStore struct {
	*storage.MemoryStore
	getErr error
	setErr error
}

func (s *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func TestLedgerPersistenceIsBestEffort(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), setErr: errors.New("disk full")}
	l := openTestLedger(t, store)

	tx, err := l.Add(ctx, draft("Mow", 4500, "2024-05-01", core.Income))
	require.NoError(t, err)

	got, err := l.Get(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx, got)
}

func TestOpenFailsOnStoreReadError(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), getErr: errors.New("locked")}
	_, err := Open(context.Background(), store)
	assert.Error(t, err)
}
