package core

import "strings"

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// TransactionFilter narrows a transaction listing. Zero values mean "no
// constraint"; amount bounds are pointers because zero is a meaningful bound.
type TransactionFilter struct {
	From       Date
	To         Date
	AccountID  int64
	CategoryID int64
	MinAmount  *Money
	MaxAmount  *Money
	Keyword    string
	Offset     int
	Limit      int
}

// Page is one slice of an ordered result plus the total count of the
// filtered set it was cut from.
type Page[T any] struct {
	Items  []T
	Total  int
	Offset int
	Limit  int
}

// Totals summarises a filtered transaction set.
type Totals struct {
	Count   int
	Income  Money
	Expense Money
	Net     Money
}

func (f TransactionFilter) Validate() error {
	if !f.From.IsEmpty() && !f.To.IsEmpty() && f.To.Before(f.From.Time) {
		return Invalid("to", "end date before start date")
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.Cents > f.MaxAmount.Cents {
		return Invalid("max_amount", "maximum below minimum")
	}
	if f.Offset < 0 {
		return Invalid("offset", "cannot be negative")
	}
	if f.Limit < 0 || f.Limit > MaxPageSize {
		return Invalid("limit", "must be between 0 and %d", MaxPageSize)
	}
	if f.AccountID < 0 || f.CategoryID < 0 {
		return Invalid("filter", "ids cannot be negative")
	}
	return nil
}

// FoldedKeyword is the keyword prepared for case-insensitive matching.
func (f TransactionFilter) FoldedKeyword() string {
	return Fold(strings.TrimSpace(f.Keyword))
}

// Fold lowercases text for case-insensitive substring search.
func Fold(s string) string {
	return strings.ToLower(s)
}

// Within restricts the filter to the period, intersecting existing bounds.
func (f TransactionFilter) Within(p Period) TransactionFilter {
	if f.From.IsEmpty() || f.From.Before(p.Start.Time) {
		f.From = p.Start
	}
	if f.To.IsEmpty() || f.To.After(p.End.Time) {
		f.To = p.End
	}
	return f
}
