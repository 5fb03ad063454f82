// Package eligibility decides whether a leave request can be submitted.
// Evaluation is pure: the only outside dependency is the clock, which can
// be replaced with WithClock.
package eligibility

import (
	"fmt"
	"time"
)

// DateLayout is the canonical ISO calendar date used on input and output.
const DateLayout = "2006-01-02"

// Rejection reasons, in evaluation order.
const (
	ReasonInsufficientBalance = "Insufficient leave balance"
	ReasonAdvanceNotice       = "Advance notice requirement not met"
	ReasonMaxConsecutive      = "Requested units exceed max consecutive limit"
)

// deptHeadThreshold is the requested unit count above which the
// department head joins the approval chain.
const deptHeadThreshold = 3

type Request struct {
	AvailableUnits      float64 `json:"available_units" validate:"gte=0"`
	RequestedUnits      float64 `json:"requested_units" validate:"gte=0"`
	StartDate           string  `json:"start_date" validate:"required"`
	AdvanceDaysRequired int     `json:"advance_days_required" validate:"gte=0"`
	MaxConsecutive      float64 `json:"max_consecutive" validate:"gte=0"`
	ManagerID           string  `json:"manager_id" validate:"required"`
	DeptHeadID          string  `json:"dept_head_id,omitempty"`
	Today               string  `json:"today,omitempty"`
}

type BalanceSnapshot struct {
	AvailableUnits      float64 `json:"available_units"`
	RequestedUnits      float64 `json:"requested_units"`
	RemainingIfApproved float64 `json:"remaining_if_approved"`
}

type NormalizedForm struct {
	Today               string  `json:"today"`
	StartDate           string  `json:"start_date"`
	AdvanceDaysRequired int     `json:"advance_days_required"`
	MaxConsecutive      float64 `json:"max_consecutive"`
}

type Result struct {
	Eligible        bool            `json:"eligible"`
	Reasons         []string        `json:"reasons"`
	BalanceSnapshot BalanceSnapshot `json:"balance_snapshot"`
	NormalizedForm  NormalizedForm  `json:"normalized_form"`
	ApprovalChain   []string        `json:"approval_chain"`
}

// ParseError reports a malformed input field. It is never used for a
// business-rule rejection.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("eligibility: cannot parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type Engine struct {
	now func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the rules against req. A rejected request is a normal
// result; only unparsable dates return an error.
func (e *Engine) Evaluate(req Request) (*Result, error) {
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}

	var today time.Time
	if req.Today != "" {
		if today, err = parseDate("today", req.Today); err != nil {
			return nil, err
		}
	} else {
		y, m, d := e.now().Date()
		today = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	reasons := make([]string, 0, 3)
	if req.AvailableUnits < req.RequestedUnits {
		reasons = append(reasons, ReasonInsufficientBalance)
	}
	// equal dates satisfy the notice period
	if today.AddDate(0, 0, req.AdvanceDaysRequired).After(start) {
		reasons = append(reasons, ReasonAdvanceNotice)
	}
	if req.RequestedUnits > req.MaxConsecutive {
		reasons = append(reasons, ReasonMaxConsecutive)
	}

	chain := []string{req.ManagerID}
	if req.RequestedUnits > deptHeadThreshold && req.DeptHeadID != "" {
		chain = append(chain, req.DeptHeadID)
	}

	return &Result{
		Eligible: len(reasons) == 0,
		Reasons:  reasons,
		BalanceSnapshot: BalanceSnapshot{
			AvailableUnits:      req.AvailableUnits,
			RequestedUnits:      req.RequestedUnits,
			RemainingIfApproved: req.AvailableUnits - req.RequestedUnits,
		},
		NormalizedForm: NormalizedForm{
			Today:               today.Format(DateLayout),
			StartDate:           start.Format(DateLayout),
			AdvanceDaysRequired: req.AdvanceDaysRequired,
			MaxConsecutive:      req.MaxConsecutive,
		},
		ApprovalChain: chain,
	}, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &ParseError{Field: field, Value: value, Err: err}
	}
	return t, nil
}
