package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	_ "github.com/odyssey-erp/glengine/testing"
)

type memPosting struct {
	companyID int64
	family    string
	date      time.Time
	code      string
	debit     decimal.Decimal
	credit    decimal.Decimal
}

type memStore struct {
	accounts  []Account
	baseline  map[int64]map[string]decimal.Decimal
	postings  []memPosting
	companies map[int64]string
	failOn    func(w Window) error

	mu    sync.Mutex
	reads []Window
}

func newMemStore() *memStore {
	return &memStore{baseline: map[int64]map[string]decimal.Decimal{}, companies: map[int64]string{}}
}

func (m *memStore) addAccount(companyID int64, code, fs string) *memStore {
	m.accounts = append(m.accounts, Account{CompanyID: companyID, Code: code, Description: "Account " + code, FS: fs, Active: true})
	return m
}

func (m *memStore) setBaseline(companyID int64, code, amount string) *memStore {
	if m.baseline[companyID] == nil {
		m.baseline[companyID] = map[string]decimal.Decimal{}
	}
	m.baseline[companyID][code] = dec(amount)
	return m
}

func (m *memStore) post(companyID int64, family string, date time.Time, code, debit, credit string) *memStore {
	m.postings = append(m.postings, memPosting{companyID: companyID, family: family, date: date, code: code, debit: dec(debit), credit: dec(credit)})
	return m
}

func (m *memStore) Postings(_ context.Context, w Window) ([]Posting, error) {
	m.mu.Lock()
	m.reads = append(m.reads, w)
	m.mu.Unlock()
	if m.failOn != nil {
		if err := m.failOn(w); err != nil {
			return nil, err
		}
	}
	var out []Posting
	for _, p := range m.postings {
		if w.CompanyID > 0 && p.companyID != w.CompanyID {
			continue
		}
		if !w.Codes.Contains(p.code) {
			continue
		}
		if p.date.Before(w.From) || p.date.After(w.To) {
			continue
		}
		out = append(out, Posting{AcctCode: p.code, Debit: p.debit, Credit: p.credit})
	}
	return out, nil
}

func (m *memStore) Accounts(_ context.Context, companyID int64, codes CodeRange) ([]Account, error) {
	var out []Account
	for _, a := range m.accounts {
		if companyID > 0 && a.CompanyID != companyID {
			continue
		}
		if a.Active && codes.Contains(a.Code) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) BaselineSnapshot(_ context.Context, companyID int64) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for cid, amounts := range m.baseline {
		if companyID > 0 && cid != companyID {
			continue
		}
		for code, amount := range amounts {
			out[code] = out[code].Add(amount)
		}
	}
	return out, nil
}

func (m *memStore) CompanyName(_ context.Context, companyID int64) (string, error) {
	return m.companies[companyID], nil
}

func (m *memStore) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reads)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
