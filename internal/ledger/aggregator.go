package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

type windowKey struct {
	companyID int64
	lo, hi    string
	from, to  string
}

func keyOf(w Window) windowKey {
	return windowKey{
		companyID: w.CompanyID,
		lo:        w.Codes.Lo,
		hi:        w.Codes.Hi,
		from:      w.From.Format(DateLayout),
		to:        w.To.Format(DateLayout),
	}
}

// Aggregator sums postings per account code. Results are memoised per window
// for the lifetime of the aggregator, which is one report run, and reads
// against the source are serialised so a single transaction can back it.
type Aggregator struct {
	source PostingSource

	mu    sync.Mutex
	cache map[windowKey]map[string]Split
	reads int
}

// NewAggregator constructs an Aggregator over the source.
func NewAggregator(source PostingSource) *Aggregator {
	return &Aggregator{source: source, cache: make(map[windowKey]map[string]Split)}
}

// SplitByAccount returns debit and credit sums per account. Accounts with no
// postings are absent. The returned map must not be modified.
func (a *Aggregator) SplitByAccount(ctx context.Context, w Window) (map[string]Split, error) {
	if a == nil || a.source == nil {
		return nil, ErrNotConfigured
	}
	if w.Empty() || w.Codes.Inverted() {
		return map[string]Split{}, nil
	}
	key := keyOf(w)
	a.mu.Lock()
	defer a.mu.Unlock()
	if cached, ok := a.cache[key]; ok {
		return cached, nil
	}
	postings, err := a.source.Postings(ctx, w)
	if err != nil {
		return nil, err
	}
	a.reads++
	out := make(map[string]Split)
	for _, p := range postings {
		if !w.Codes.Contains(p.AcctCode) {
			continue
		}
		cur := out[p.AcctCode]
		cur.Debit = cur.Debit.Add(p.Debit)
		cur.Credit = cur.Credit.Add(p.Credit)
		out[p.AcctCode] = cur
	}
	a.cache[key] = out
	return out, nil
}

// NetByAccount returns debit minus credit per account.
func (a *Aggregator) NetByAccount(ctx context.Context, w Window) (map[string]decimal.Decimal, error) {
	split, err := a.SplitByAccount(ctx, w)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(split))
	for code, s := range split {
		out[code] = s.Net()
	}
	return out, nil
}

// SplitFor looks up a single account, defaulting to zero.
func (a *Aggregator) SplitFor(ctx context.Context, w Window, code string) (Split, error) {
	split, err := a.SplitByAccount(ctx, w)
	if err != nil {
		return Split{}, err
	}
	return split[code], nil
}

// NetFor looks up the net movement of a single account, defaulting to zero.
func (a *Aggregator) NetFor(ctx context.Context, w Window, code string) (decimal.Decimal, error) {
	s, err := a.SplitFor(ctx, w, code)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Net(), nil
}

// Reads reports how many source reads the aggregator performed.
func (a *Aggregator) Reads() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reads
}
