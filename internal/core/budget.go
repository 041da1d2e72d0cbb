package core

// BudgetProgress is spent-versus-limit for one budget.
type BudgetProgress struct {
	Budget    Budget
	Spent     Money
	Remaining Money
	Percent   float64
	OverLimit bool
}

// Progress folds the given transactions into spend for b. Only transactions
// in the budget's category and period count; the caller is responsible for
// supplying an already authorized set.
func Progress(b Budget, txs []Transaction) BudgetProgress {
	period := b.Period()
	var spent int64
	for _, tx := range txs {
		if tx.CategoryID != b.CategoryID || !period.Contains(tx.OccurredOn) {
			continue
		}
		spent += tx.Amount.Abs().Cents
	}

	limit := b.LimitAmount.Cents
	p := BudgetProgress{
		Budget:    b,
		Spent:     Money{Cents: spent},
		Remaining: Money{Cents: max(limit-spent, 0)},
		OverLimit: spent > limit,
	}
	switch {
	case limit > 0:
		p.Percent = float64(spent) / float64(limit)
	case spent > 0:
		p.Percent = 1.0
	}
	return p
}
