package core

import (
	"cmp"
	"slices"
)

// Report holds signed totals for a period. TotalExpense is negative or zero,
// so Net is simply TotalIncome + TotalExpense.
type Report struct {
	Period       Period
	TotalIncome  Money
	TotalExpense Money
	Net          Money
	ByCategory   map[int64]Money
}

// CategoryAmount is one entry of a report's category breakdown.
type CategoryAmount struct {
	CategoryID int64
	Amount     Money
}

func NewReport(p Period) Report {
	return Report{Period: p, ByCategory: map[int64]Money{}}
}

// Aggregate folds txs into a report for p. kinds maps category id to kind;
// a category missing from it is classified by the amount's sign.
func Aggregate(p Period, txs []Transaction, kinds map[int64]Kind) Report {
	r := NewReport(p)
	for _, tx := range txs {
		if !p.Contains(tx.OccurredOn) {
			continue
		}
		kind, ok := kinds[tx.CategoryID]
		if !ok {
			kind = KindExpense
			if tx.Amount.Cents > 0 {
				kind = KindIncome
			}
		}
		r.add(tx, kind)
	}
	return r
}

func (r *Report) add(tx Transaction, kind Kind) {
	r.ByCategory[tx.CategoryID] = r.ByCategory[tx.CategoryID].Add(tx.Amount)
	if kind == KindIncome {
		r.TotalIncome = r.TotalIncome.Add(tx.Amount)
	} else {
		r.TotalExpense = r.TotalExpense.Add(tx.Amount)
	}
	r.Net = r.TotalIncome.Add(r.TotalExpense)
}

// Categories returns the breakdown ordered by absolute amount, largest first.
func (r Report) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(r.ByCategory))
	for id, amount := range r.ByCategory {
		out = append(out, CategoryAmount{CategoryID: id, Amount: amount})
	}
	slices.SortFunc(out, func(a, b CategoryAmount) int {
		if c := cmp.Compare(b.Amount.Abs().Cents, a.Amount.Abs().Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.CategoryID, b.CategoryID)
	})
	return out
}

// Totals returns the report's income, expense and net as Totals.
func (r Report) Totals() Totals {
	return Totals{Income: r.TotalIncome, Expense: r.TotalExpense, Net: r.Net}
}
