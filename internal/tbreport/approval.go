package tbreport

import (
	"context"
	"errors"

	"github.com/odyssey-erp/glengine/jobs"
)

// ErrNotApproved is returned by gates that refuse a request.
var ErrNotApproved = errors.New("tbreport: request not approved")

// ApprovalGate decides whether a queued report may run. The approval
// workflow itself lives outside this service.
type ApprovalGate interface {
	Approve(ctx context.Context, payload jobs.TrialBalancePayload) error
}

// ApprovalFunc adapts a function to ApprovalGate.
type ApprovalFunc func(ctx context.Context, payload jobs.TrialBalancePayload) error

// Approve implements ApprovalGate.
func (f ApprovalFunc) Approve(ctx context.Context, payload jobs.TrialBalancePayload) error {
	return f(ctx, payload)
}

// AllowAll approves every request.
var AllowAll ApprovalGate = ApprovalFunc(func(context.Context, jobs.TrialBalancePayload) error { return nil })

// CompanyAllowList approves requests scoped to one of the listed companies.
// Unscoped requests need allowAllCompanies.
func CompanyAllowList(allowAllCompanies bool, companyIDs ...int64) ApprovalGate {
	allowed := make(map[int64]struct{}, len(companyIDs))
	for _, id := range companyIDs {
		allowed[id] = struct{}{}
	}
	return ApprovalFunc(func(_ context.Context, payload jobs.TrialBalancePayload) error {
		if payload.CompanyID <= 0 {
			if allowAllCompanies {
				return nil
			}
			return ErrNotApproved
		}
		if _, ok := allowed[payload.CompanyID]; ok {
			return nil
		}
		return ErrNotApproved
	})
}
