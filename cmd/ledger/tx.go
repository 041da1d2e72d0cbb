package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/subcommands"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/services"
)

func txGroup() *group {
	return &group{name: "tx", synopsis: "Record and query transactions", cmds: []subcommands.Command{
		&txAddCmd{}, &txEditCmd{}, &txDeleteCmd{}, &txShowCmd{}, &txListCmd{}, &txSummaryCmd{},
	}}
}

// amountIn parses s in the minor units of the account's currency.
func amountIn(dir *services.Directory, defaultCurrency string, accountID int64, s string) (core.Money, error) {
	currency := defaultCurrency
	if acc, ok := dir.Accounts[accountID]; ok {
		currency = acc.Currency
	}
	return core.ParseAmountScale(s, export.CurrencyFraction(currency))
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func parseOptionalDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

// txFields are the flags shared by tx add and tx edit.
type txFields struct {
	account  int64
	category int64
	amount   string
	date     string
	tags     string
	note     string
}

func (t *txFields) setFlags(f *flag.FlagSet) {
	f.Int64Var(&t.account, "account", 0, "Account id")
	f.Int64Var(&t.category, "category", 0, "Category id")
	f.StringVar(&t.amount, "amount", "", "Signed amount, negative for expenses (e.g. -12.50)")
	f.StringVar(&t.date, "date", "", "Date as YYYY-MM-DD (default today)")
	f.StringVar(&t.tags, "tags", "", "Comma-separated tags")
	f.StringVar(&t.note, "note", "", "Free-text note")
}

type txAddCmd struct {
	txFields
}

func (*txAddCmd) Name() string     { return "add" }
func (*txAddCmd) Synopsis() string { return "Record a transaction" }
func (*txAddCmd) Usage() string {
	return "add -account <id> -category <id> -amount <amount> [-date YYYY-MM-DD] [-tags a,b] [-note text]\n"
}
func (c *txAddCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *txAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		dir, err := a.Directory.Directory(ctx, a.actor.OrganizationID)
		if err != nil {
			return err
		}
		amount, err := amountIn(dir, a.cfg.DefaultCurrency, c.account, c.amount)
		if err != nil {
			return err
		}
		day := core.DateOf(time.Now())
		if c.date != "" {
			if day, err = core.ParseDate(c.date); err != nil {
				return err
			}
		}
		tx, err := a.Transactions.Create(ctx, a.actor, core.TransactionDraft{
			AccountID:  c.account,
			CategoryID: c.category,
			Amount:     amount,
			OccurredOn: day,
			Tags:       splitTags(c.tags),
			Note:       c.note,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Recorded transaction %d\n", tx.ID)
		return nil
	})
}

type txEditCmd struct {
	txFields
}

func (*txEditCmd) Name() string     { return "edit" }
func (*txEditCmd) Synopsis() string { return "Change fields of a transaction" }
func (*txEditCmd) Usage() string {
	return "edit [-account id] [-category id] [-amount a] [-date d] [-tags a,b] [-note text] <tx-id>\n"
}
func (c *txEditCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *txEditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := parseID(f, "transaction")
	if err != nil {
		return fail(err)
	}
	set := map[string]bool{}
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	return run(ctx, func(ctx context.Context, a *app) error {
		var patch core.TransactionPatch
		if set["account"] {
			patch.AccountID = &c.account
		}
		if set["category"] {
			patch.CategoryID = &c.category
		}
		if set["amount"] {
			accountID := c.account
			if !set["account"] {
				existing, err := a.Transactions.Get(ctx, a.actor, id)
				if err != nil {
					return err
				}
				accountID = existing.AccountID
			}
			dir, err := a.Directory.Directory(ctx, a.actor.OrganizationID)
			if err != nil {
				return err
			}
			amount, err := amountIn(dir, a.cfg.DefaultCurrency, accountID, c.amount)
			if err != nil {
				return err
			}
			patch.Amount = &amount
		}
		if set["date"] {
			day, err := core.ParseDate(c.date)
			if err != nil {
				return err
			}
			patch.OccurredOn = &day
		}
		if set["tags"] {
			tags := splitTags(c.tags)
			patch.Tags = &tags
		}
		if set["note"] {
			patch.Note = &c.note
		}

		tx, err := a.Transactions.Update(ctx, a.actor, id, patch)
		if err != nil {
			return err
		}
		fmt.Printf("Updated transaction %d\n", tx.ID)
		return nil
	})
}

type txDeleteCmd struct{}

func (*txDeleteCmd) Name() string           { return "delete" }
func (*txDeleteCmd) Synopsis() string       { return "Delete a transaction" }
func (*txDeleteCmd) Usage() string          { return "delete <tx-id>\n" }
func (*txDeleteCmd) SetFlags(*flag.FlagSet) {}

func (*txDeleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := parseID(f, "transaction")
	if err != nil {
		return fail(err)
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		return a.Transactions.Delete(ctx, a.actor, id)
	})
}

type txShowCmd struct{}

func (*txShowCmd) Name() string           { return "show" }
func (*txShowCmd) Synopsis() string       { return "Show one transaction" }
func (*txShowCmd) Usage() string          { return "show <tx-id>\n" }
func (*txShowCmd) SetFlags(*flag.FlagSet) {}

func (*txShowCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := parseID(f, "transaction")
	if err != nil {
		return fail(err)
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		tx, err := a.Transactions.Get(ctx, a.actor, id)
		if err != nil {
			return err
		}
		dir, err := a.Directory.Directory(ctx, a.actor.OrganizationID)
		if err != nil {
			return err
		}
		var md markdown
		md.heading(2, "Transaction %d", tx.ID)
		md.table([]string{"Field", "Value"}, [][]string{
			{"Date", tx.OccurredOn.String()},
			{"Account", dir.Accounts[tx.AccountID].Name},
			{"Category", dir.Categories[tx.CategoryID].Name},
			{"Amount", formatIn(dir, a.cfg.DefaultCurrency, tx.AccountID, tx.Amount)},
			{"Tags", strings.Join(tx.Tags, ", ")},
			{"Note", tx.Note},
			{"Created by", strconv.FormatInt(tx.CreatedBy, 10)},
			{"Updated", tx.UpdatedAt.Format(time.RFC3339)},
		})
		return printMarkdown(md.String())
	})
}

// filterFlags are the transaction filter flags shared by listings, the
// summary and exports.
type filterFlags struct {
	from, to   string
	account    int64
	category   int64
	min, max   string
	keyword    string
	offset     int
	limit      int
	withPaging bool
}

func (ff *filterFlags) setFlags(f *flag.FlagSet) {
	f.StringVar(&ff.from, "from", "", "First day, YYYY-MM-DD")
	f.StringVar(&ff.to, "to", "", "Last day, YYYY-MM-DD")
	f.Int64Var(&ff.account, "account", 0, "Account id")
	f.Int64Var(&ff.category, "category", 0, "Category id")
	f.StringVar(&ff.min, "min", "", "Minimum signed amount")
	f.StringVar(&ff.max, "max", "", "Maximum signed amount")
	f.StringVar(&ff.keyword, "q", "", "Keyword matched against notes and tags")
	if ff.withPaging {
		f.IntVar(&ff.offset, "offset", 0, "Rows to skip")
		f.IntVar(&ff.limit, "limit", 0, "Page size (default PAGE_SIZE)")
	}
}

func (ff *filterFlags) filter(ctx context.Context, a *app) (core.TransactionFilter, error) {
	from, err := parseOptionalDate(ff.from)
	if err != nil {
		return core.TransactionFilter{}, err
	}
	to, err := parseOptionalDate(ff.to)
	if err != nil {
		return core.TransactionFilter{}, err
	}
	f := core.TransactionFilter{
		From:       from,
		To:         to,
		AccountID:  ff.account,
		CategoryID: ff.category,
		Keyword:    ff.keyword,
		Offset:     ff.offset,
		Limit:      ff.limit,
	}
	if ff.min == "" && ff.max == "" {
		return f, nil
	}
	dir, err := a.Directory.Directory(ctx, a.actor.OrganizationID)
	if err != nil {
		return core.TransactionFilter{}, err
	}
	if ff.min != "" {
		m, err := amountIn(dir, a.cfg.DefaultCurrency, ff.account, ff.min)
		if err != nil {
			return core.TransactionFilter{}, err
		}
		f.MinAmount = &m
	}
	if ff.max != "" {
		m, err := amountIn(dir, a.cfg.DefaultCurrency, ff.account, ff.max)
		if err != nil {
			return core.TransactionFilter{}, err
		}
		f.MaxAmount = &m
	}
	return f, nil
}

func formatIn(dir *services.Directory, defaultCurrency string, accountID int64, m core.Money) string {
	currency := defaultCurrency
	if acc, ok := dir.Accounts[accountID]; ok {
		currency = acc.Currency
	}
	return export.FormatAmount(m, currency) + " " + currency
}

func transactionRows(dir *services.Directory, defaultCurrency string, txs []core.Transaction) [][]string {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []string{
			strconv.FormatInt(tx.ID, 10),
			tx.OccurredOn.String(),
			dir.Accounts[tx.AccountID].Name,
			dir.Categories[tx.CategoryID].Name,
			formatIn(dir, defaultCurrency, tx.AccountID, tx.Amount),
			strings.Join(tx.Tags, ", "),
			tx.Note,
		})
	}
	return rows
}

var transactionHeader = []string{"ID", "Date", "Account", "Category", "Amount", "Tags", "Note"}

type txListCmd struct {
	filterFlags
}

func (*txListCmd) Name() string     { return "list" }
func (*txListCmd) Synopsis() string { return "List transactions, newest first" }
func (*txListCmd) Usage() string {
	return "list [-from d] [-to d] [-account id] [-category id] [-min a] [-max a] [-q keyword] [-offset n] [-limit n]\n"
}
func (c *txListCmd) SetFlags(f *flag.FlagSet) {
	c.withPaging = true
	c.setFlags(f)
}

func (c *txListCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		filter, err := c.filter(ctx, a)
		if err != nil {
			return err
		}
		page, err := a.Transactions.List(ctx, a.actor, filter)
		if err != nil {
			return err
		}
		dir, err := a.Directory.Directory(ctx, a.actor.OrganizationID)
		if err != nil {
			return err
		}
		var md markdown
		md.heading(2, "Transactions")
		md.table(transactionHeader, transactionRows(dir, a.cfg.DefaultCurrency, page.Items))
		md.para("Showing %d-%d of %d.", min(page.Offset+1, page.Total), page.Offset+len(page.Items), page.Total)
		return printMarkdown(md.String())
	})
}

type txSummaryCmd struct {
	filterFlags
}

func (*txSummaryCmd) Name() string     { return "summary" }
func (*txSummaryCmd) Synopsis() string { return "Total income, expense and net of matching transactions" }
func (*txSummaryCmd) Usage() string {
	return "summary [-from d] [-to d] [-account id] [-category id] [-min a] [-max a] [-q keyword]\n"
}
func (c *txSummaryCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *txSummaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		filter, err := c.filter(ctx, a)
		if err != nil {
			return err
		}
		totals, err := a.Transactions.Summarize(ctx, a.actor, filter)
		if err != nil {
			return err
		}
		var md markdown
		md.heading(2, "Summary")
		md.table([]string{"Transactions", "Income", "Expense", "Net"}, [][]string{totalsRow(a, totals)})
		return printMarkdown(md.String())
	})
}

// totalsRow formats totals in the default currency.
func totalsRow(a *app, t core.Totals) []string {
	cur := a.cfg.DefaultCurrency
	return []string{
		strconv.Itoa(t.Count),
		export.FormatAmount(t.Income, cur),
		export.FormatAmount(t.Expense, cur),
		export.FormatAmount(t.Net, cur),
	}
}
