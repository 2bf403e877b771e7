package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lawnledger/internal/core"
	applog "lawnledger/internal/log"
	"lawnledger/internal/storage"
)

// Ledger owns the transaction and template collections. Every mutation is
// written through to the store; a failed write is logged and the in-memory
// state stays authoritative.
type Ledger struct {
	mu        sync.Mutex
	store     storage.Store
	txs       []core.Transaction
	templates []core.Template
	version   uint64

	now      func() time.Time
	newID    func() core.ID
	fillGaps bool
	logger   *applog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides transaction id assignment.
func WithIDGenerator(gen func() core.ID) Option {
	return func(l *Ledger) { l.newID = gen }
}

// WithGapFill sets the per-day gap policy used by View.
func WithGapFill(fill bool) Option {
	return func(l *Ledger) { l.fillGaps = fill }
}

func WithLogger(logger *applog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func newUUID() core.ID { return core.ID(uuid.NewString()) }

// Open hydrates a ledger from store. Only a failing store read is an error;
// malformed content is logged and skipped.
func Open(ctx context.Context, store storage.Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:     store,
		txs:       []core.Transaction{},
		templates: []core.Template{},
		now:       time.Now,
		newID:     newUUID,
		fillGaps:  true,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = applog.FromContext(ctx).WithComponent(applog.ComponentLedger)
	}

	txRaw, err := l.load(ctx, storage.TransactionsKey)
	if err != nil {
		return nil, err
	}
	l.txs = l.decodeTransactions(ctx, txRaw)

	tplRaw, err := l.load(ctx, storage.TemplatesKey)
	if err != nil {
		return nil, err
	}
	l.templates = l.decodeTemplates(ctx, tplRaw)

	l.logger.InfoContext(ctx, "Ledger hydrated",
		applog.FieldOperation, applog.OpHydrate,
		"transactions", len(l.txs),
		"templates", len(l.templates))

	return l, nil
}

// load returns the raw elements stored under key, or nil when the key is
// absent or its value is not a JSON array.
func (l *Ledger) load(ctx context.Context, key string) ([]json.RawMessage, error) {
	value, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		l.logger.WarnContext(ctx, "Stored value is malformed, starting empty",
			applog.FieldKey, key,
			applog.FieldError, err)
		return nil, nil
	}
	return items, nil
}

func (l *Ledger) decodeTransactions(ctx context.Context, items []json.RawMessage) []core.Transaction {
	out := make([]core.Transaction, 0, len(items))
	seen := make(map[core.ID]bool, len(items))
	for i, item := range items {
		var tx core.Transaction
		if err := json.Unmarshal(item, &tx); err != nil {
			l.logger.WarnContext(ctx, "Skipping malformed transaction", "index", i, applog.FieldError, err)
			continue
		}
		if tx.Kind == "" {
			tx.Kind = core.Income
		}
		if err := tx.ValidateStored(); err != nil {
			l.logger.WarnContext(ctx, "Skipping invalid transaction", "index", i,
				applog.FieldTransactionID, string(tx.ID),
				applog.FieldError, err)
			continue
		}
		if seen[tx.ID] {
			l.logger.WarnContext(ctx, "Skipping duplicate transaction id", "index", i, applog.FieldTransactionID, string(tx.ID))
			continue
		}
		seen[tx.ID] = true
		out = append(out, tx)
	}
	return out
}

func (l *Ledger) decodeTemplates(ctx context.Context, items []json.RawMessage) []core.Template {
	out := make([]core.Template, 0, len(items))
	seen := make(map[core.TemplateKey]bool, len(items))
	for i, item := range items {
		var tp core.Template
		if err := json.Unmarshal(item, &tp); err != nil {
			l.logger.WarnContext(ctx, "Skipping malformed template", "index", i, applog.FieldError, err)
			continue
		}
		if tp.Kind == "" {
			tp.Kind = core.Income
		}
		if err := tp.Validate(); err != nil {
			l.logger.WarnContext(ctx, "Skipping invalid template", "index", i, applog.FieldError, err)
			continue
		}
		if seen[tp.Key()] {
			continue
		}
		seen[tp.Key()] = true
		out = append(out, tp)
	}
	return out
}

// Transactions returns a copy of all transactions in insertion order.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Transaction{}, l.txs...)
}

// Templates returns a copy of all templates in insertion order.
func (l *Ledger) Templates() []core.Template {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Template{}, l.templates...)
}

func (l *Ledger) Get(id core.ID) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return l.txs[i], nil
}

// Version increases on every mutation.
func (l *Ledger) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// Today is the ledger's current calendar date.
func (l *Ledger) Today() core.Date {
	return core.DateOf(l.now())
}

// Add appends a new transaction with a fresh id.
func (l *Ledger) Add(ctx context.Context, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx := core.Transaction{ID: l.newID()}.Apply(d)
	l.txs = append(l.txs, tx)
	l.version++
	l.persistTransactions(ctx)
	return tx, nil
}

// Edit replaces every editable field of the transaction with id. The id and
// position are kept.
func (l *Ledger) Edit(ctx context.Context, id core.ID, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	l.txs[i] = l.txs[i].Apply(d)
	l.version++
	l.persistTransactions(ctx)
	return l.txs[i], nil
}

// Remove deletes the transaction with id and returns it.
func (l *Ledger) Remove(ctx context.Context, id core.ID) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	removed := l.txs[i]
	l.txs = append(l.txs[:i:i], l.txs[i+1:]...)
	l.version++
	l.persistTransactions(ctx)
	return removed, nil
}

// AddTemplate stores t unless a template with the same key exists.
func (l *Ledger) AddTemplate(ctx context.Context, t core.Template) (bool, error) {
	t.Description = strings.TrimSpace(t.Description)
	t.Client = strings.TrimSpace(t.Client)
	if err := t.Validate(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.templateIndex(t.Key()) >= 0 {
		return false, nil
	}
	l.templates = append(l.templates, t)
	l.version++
	l.persistTemplates(ctx)
	return true, nil
}

// RemoveTemplate deletes the template with key. It reports whether one was
// removed.
func (l *Ledger) RemoveTemplate(ctx context.Context, key core.TemplateKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.templateIndex(key)
	if i < 0 {
		return false
	}
	l.templates = append(l.templates[:i:i], l.templates[i+1:]...)
	l.version++
	l.persistTemplates(ctx)
	return true
}

// UseTemplate adds a transaction copied from t, dated today.
func (l *Ledger) UseTemplate(ctx context.Context, t core.Template) (core.Transaction, error) {
	return l.Add(ctx, t.Draft(l.Today()))
}

// View aggregates the current transactions over r.
func (l *Ledger) View(r Range, f Filter) core.View {
	l.mu.Lock()
	txs := append([]core.Transaction{}, l.txs...)
	fill := l.fillGaps
	l.mu.Unlock()
	return Aggregate(txs, r, f, WithFillGaps(fill))
}

// History returns up to limit transactions, most recent first.
func (l *Ledger) History(limit int) []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return History(l.txs, limit)
}

func (l *Ledger) indexOf(id core.ID) int {
	for i := range l.txs {
		if l.txs[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) templateIndex(key core.TemplateKey) int {
	for i := range l.templates {
		if l.templates[i].Key() == key {
			return i
		}
	}
	return -1
}

func (l *Ledger) persistTransactions(ctx context.Context) {
	l.persist(ctx, storage.TransactionsKey, l.txs)
}

func (l *Ledger) persistTemplates(ctx context.Context) {
	l.persist(ctx, storage.TemplatesKey, l.templates)
}

// persist must be called with mu held.
func (l *Ledger) persist(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err == nil {
		err = l.store.Set(ctx, key, string(b))
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to persist ledger",
			applog.FieldOperation, applog.OpPersist,
			applog.FieldKey, key,
			applog.FieldVersion, l.version,
			applog.FieldError, err)
		return
	}
	l.logger.DebugContext(ctx, "Ledger persisted",
		applog.FieldKey, key,
		applog.FieldVersion, l.version)
}
