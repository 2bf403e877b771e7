// Package ledger owns the transaction and template collections and derives
// the read-only views the calendar, chart and history list are drawn from.
package ledger

import (
	"fmt"
	"slices"
	"strings"

	"lawnledger/internal/core"
)

// MaxFillDays bounds zero-filling of per-day totals. Longer ranges only
// report days that have data.
const MaxFillDays = 366

// FilterAll is the filter that keeps every kind.
const FilterAll Filter = "all"

// Filter selects which kinds a view keeps: "all", "income" or "expense".
type Filter string

// ParseFilter accepts "all", "income" or "expense"; empty means "all".
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", string(FilterAll):
		return FilterAll, nil
	case string(core.Income), string(core.Expense):
		return Filter(s), nil
	}
	return "", fmt.Errorf("invalid filter %q: must be all, income or expense", s)
}

func (f Filter) keeps(k core.Kind) bool {
	return f == FilterAll || f == "" || core.Kind(f) == k
}

type aggregateConfig struct {
	fillGaps bool
}

// AggregateOption configures Aggregate.
type AggregateOption func(*aggregateConfig)

// WithFillGaps controls whether days without data appear in PerDay with a
// zero total. It is on by default.
func WithFillGaps(fill bool) AggregateOption {
	return func(c *aggregateConfig) { c.fillGaps = fill }
}

// Aggregate derives the view of txs for the inclusive day range r and the
// kind filter f. It is pure: no I/O, no errors, same input same output.
// Transactions with an invalid date never fall in range.
func Aggregate(txs []core.Transaction, r Range, f Filter, opts ...AggregateOption) core.View {
	cfg := aggregateConfig{fillGaps: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	view := core.View{
		InRange:  []core.Transaction{},
		Filtered: []core.Transaction{},
		PerDay:   []core.DayTotal{},
	}
	if !r.valid() {
		return view
	}

	// Day totals in first-seen order, indexed by the day's Unix time.
	var days []core.DayTotal
	dayIndex := map[int64]int{}
	for _, tx := range txs {
		if !r.Contains(tx.Date) {
			continue
		}
		view.InRange = append(view.InRange, tx)
		if !f.keeps(tx.Kind) {
			continue
		}
		view.Filtered = append(view.Filtered, tx)

		signed := tx.Signed()
		view.NetTotal = view.NetTotal.Add(signed)
		key := tx.Date.Time().Unix()
		i, ok := dayIndex[key]
		if !ok {
			i = len(days)
			dayIndex[key] = i
			days = append(days, core.DayTotal{Date: tx.Date})
		}
		days[i].Net = days[i].Net.Add(signed)
		switch tx.Kind {
		case core.Income:
			view.IncomeTotal = view.IncomeTotal.Add(tx.Amount)
		case core.Expense:
			view.ExpenseTotal = view.ExpenseTotal.Add(tx.Amount)
		}
	}

	if cfg.fillGaps && r.Days() <= MaxFillDays {
		for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
			total := core.DayTotal{Date: d}
			if i, ok := dayIndex[d.Time().Unix()]; ok {
				total.Net = days[i].Net
			}
			view.PerDay = append(view.PerDay, total)
		}
		return view
	}

	// Days with data only.
	slices.SortFunc(days, func(a, b core.DayTotal) int { return a.Date.Compare(b.Date) })
	view.PerDay = append(view.PerDay, days...)
	return view
}

// CalendarEvents lists the agenda entries for txs, skipping invalid dates.
func CalendarEvents(txs []core.Transaction) []core.CalendarEvent {
	events := make([]core.CalendarEvent, 0, len(txs))
	for _, tx := range txs {
		if !tx.Date.IsValid() {
			continue
		}
		events = append(events, core.CalendarEvent{
			ID:    tx.ID,
			Title: fmt.Sprintf("%s - $%s", tx.Description, tx.Amount),
			Date:  tx.Date,
			Kind:  tx.Kind,
		})
	}
	return events
}

// DefaultHistoryLimit is how many entries the history list shows.
const DefaultHistoryLimit = 10

// History returns up to limit transactions, most recently added first.
// A non-positive limit uses DefaultHistoryLimit.
func History(txs []core.Transaction, limit int) []core.Transaction {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > len(txs) {
		limit = len(txs)
	}
	out := make([]core.Transaction, 0, limit)
	for i := len(txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, txs[i])
	}
	return out
}
