// Package tbreport runs trial balance reports in the background: it turns a
// queued request into a rendered artefact and keeps the ticket status current.
package tbreport

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/glengine/internal/export"
	"github.com/odyssey-erp/glengine/internal/ledger"
	"github.com/odyssey-erp/glengine/jobs"
)

var ticketPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Request is the user-facing shape of a report request.
type Request struct {
	CompanyID    int64  `json:"company_id" validate:"gte=0"`
	StartAccount string `json:"start_account" validate:"required,max=32"`
	EndAccount   string `json:"end_account" validate:"required,max=32"`
	StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string `json:"end_date" validate:"required,datetime=2006-01-02"`
	FSFilter     string `json:"fs_filter" validate:"omitempty,oneof=ALL ACT BS IS all act bs is"`
	Format       string `json:"format" validate:"omitempty,oneof=xlsx csv pdf XLSX CSV PDF"`
	RequestedBy  string `json:"requested_by" validate:"max=128"`
}

// FieldErrors maps request fields to validation messages.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "tbreport: invalid request: " + strings.Join(parts, "; ")
}

// Fields exposes the messages for problem responses.
func (e FieldErrors) Fields() map[string]string {
	return e
}

// Is lets callers treat field errors like engine input errors.
func (e FieldErrors) Is(target error) bool {
	return target == ledger.ErrInvalidInput
}

// Validate checks the request shape and then the engine-level rules, so a
// request that passes will not be rejected by the worker for input reasons.
func (r Request) Validate(v *validator.Validate) error {
	if v == nil {
		v = validator.New()
	}
	if err := v.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		out := FieldErrors{}
		for _, fe := range verrs {
			out[jsonName(fe.Field())] = fmt.Sprintf("failed %s", fe.Tag())
		}
		return out
	}
	_, _, err := r.Params()
	return err
}

func jsonName(field string) string {
	switch field {
	case "CompanyID":
		return "company_id"
	case "StartAccount":
		return "start_account"
	case "EndAccount":
		return "end_account"
	case "StartDate":
		return "start_date"
	case "EndDate":
		return "end_date"
	case "FSFilter":
		return "fs_filter"
	case "RequestedBy":
		return "requested_by"
	default:
		return strings.ToLower(field)
	}
}

// Params converts the request to engine parameters and an output format.
func (r Request) Params() (ledger.Params, export.Format, error) {
	start, err := ledger.ParseDate("start_date", r.StartDate)
	if err != nil {
		return ledger.Params{}, "", err
	}
	end, err := ledger.ParseDate("end_date", r.EndDate)
	if err != nil {
		return ledger.Params{}, "", err
	}
	fs, err := ledger.ParseFSFilter(r.FSFilter)
	if err != nil {
		return ledger.Params{}, "", err
	}
	format, err := export.ParseFormat(r.Format)
	if err != nil {
		return ledger.Params{}, "", &ledger.InputError{Field: "format", Reason: err.Error()}
	}
	p := ledger.Params{
		CompanyID:    r.CompanyID,
		StartAccount: strings.TrimSpace(r.StartAccount),
		EndAccount:   strings.TrimSpace(r.EndAccount),
		StartDate:    start,
		EndDate:      end,
		FSFilter:     fs,
	}
	if err := p.Validate(); err != nil {
		return ledger.Params{}, "", err
	}
	return p, format, nil
}

// Payload builds the queue payload for ticket.
func (r Request) Payload(ticket string) jobs.TrialBalancePayload {
	return jobs.TrialBalancePayload{
		Ticket:       ticket,
		CompanyID:    r.CompanyID,
		StartAccount: r.StartAccount,
		EndAccount:   r.EndAccount,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		FSFilter:     r.FSFilter,
		Format:       r.Format,
		RequestedBy:  r.RequestedBy,
	}
}

// RequestFromPayload is the inverse of Payload.
func RequestFromPayload(p jobs.TrialBalancePayload) Request {
	return Request{
		CompanyID:    p.CompanyID,
		StartAccount: p.StartAccount,
		EndAccount:   p.EndAccount,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		FSFilter:     p.FSFilter,
		Format:       p.Format,
		RequestedBy:  p.RequestedBy,
	}
}

// ValidTicket reports whether ticket is safe to use as a file name.
func ValidTicket(ticket string) bool {
	return ticketPattern.MatchString(ticket)
}
