package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/google/subcommands"

	"ledger/internal/core"
	"ledger/internal/export"
)

func budgetGroup() *group {
	return &group{name: "budget", synopsis: "Plan spending caps per expense category", cmds: []subcommands.Command{
		&budgetAddCmd{}, &budgetEditCmd{}, &budgetListCmd{}, &budgetProgressCmd{},
	}}
}

// budgetFields are the flags shared by budget add and budget edit.
type budgetFields struct {
	name    string
	cadence string
	limit   string
	start   string
	end     string
}

func (b *budgetFields) setFlags(f *flag.FlagSet) {
	f.StringVar(&b.name, "name", "", "Budget name")
	f.StringVar(&b.cadence, "cadence", "", "Recurrence label: monthly, yearly or empty")
	f.StringVar(&b.limit, "limit", "", "Spending cap in the default currency")
	f.StringVar(&b.start, "start", "", "First day of the period, YYYY-MM-DD")
	f.StringVar(&b.end, "end", "", "Last day of the period, YYYY-MM-DD")
}

func (a *app) parseLimit(s string) (core.Money, error) {
	return core.ParseAmountScale(s, export.CurrencyFraction(a.cfg.DefaultCurrency))
}

type budgetAddCmd struct {
	budgetFields
	category int64
	month    string
}

func (*budgetAddCmd) Name() string     { return "add" }
func (*budgetAddCmd) Synopsis() string { return "Create a budget" }
func (*budgetAddCmd) Usage() string {
	return "add -category <id> -limit <amount> (-month YYYY-MM | -start d -end d) [-name text] [-cadence monthly|yearly]\n"
}
func (c *budgetAddCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.Int64Var(&c.category, "category", 0, "Expense category id")
	f.StringVar(&c.month, "month", "", "Calendar month as YYYY-MM, instead of -start/-end")
}

func (c *budgetAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		limit, err := a.parseLimit(c.limit)
		if err != nil {
			return err
		}
		draft := core.BudgetDraft{CategoryID: c.category, Name: c.name, Cadence: core.Cadence(c.cadence), LimitAmount: limit}
		if c.month != "" {
			t, err := time.Parse("2006-01", c.month)
			if err != nil {
				return core.Invalid("month", "expected YYYY-MM, got %q", c.month)
			}
			p, err := core.MonthPeriod(t.Year(), int(t.Month()))
			if err != nil {
				return err
			}
			draft.PeriodStart, draft.PeriodEnd = p.Start, p.End
		} else {
			if draft.PeriodStart, err = core.ParseDate(c.start); err != nil {
				return err
			}
			if draft.PeriodEnd, err = core.ParseDate(c.end); err != nil {
				return err
			}
		}
		b, err := a.Budgets.Create(ctx, a.actor, draft)
		if err != nil {
			return err
		}
		fmt.Printf("Created budget %d for %s\n", b.ID, b.Period())
		return nil
	})
}

type budgetEditCmd struct {
	budgetFields
}

func (*budgetEditCmd) Name() string     { return "edit" }
func (*budgetEditCmd) Synopsis() string { return "Change a running or future budget" }
func (*budgetEditCmd) Usage() string {
	return "edit [-name text] [-cadence label] [-limit amount] [-start d] [-end d] <budget-id>\n"
}
func (c *budgetEditCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *budgetEditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := parseID(f, "budget")
	if err != nil {
		return fail(err)
	}
	set := map[string]bool{}
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	return run(ctx, func(ctx context.Context, a *app) error {
		var patch core.BudgetPatch
		if set["name"] {
			patch.Name = &c.name
		}
		if set["cadence"] {
			cadence := core.Cadence(c.cadence)
			patch.Cadence = &cadence
		}
		if set["limit"] {
			limit, err := a.parseLimit(c.limit)
			if err != nil {
				return err
			}
			patch.LimitAmount = &limit
		}
		if set["start"] {
			d, err := core.ParseDate(c.start)
			if err != nil {
				return err
			}
			patch.PeriodStart = &d
		}
		if set["end"] {
			d, err := core.ParseDate(c.end)
			if err != nil {
				return err
			}
			patch.PeriodEnd = &d
		}
		b, err := a.Budgets.Update(ctx, a.actor, id, patch)
		if err != nil {
			return err
		}
		fmt.Printf("Updated budget %d\n", b.ID)
		return nil
	})
}

type budgetListCmd struct{}

func (*budgetListCmd) Name() string           { return "list" }
func (*budgetListCmd) Synopsis() string       { return "List budgets" }
func (*budgetListCmd) Usage() string          { return "list\n" }
func (*budgetListCmd) SetFlags(*flag.FlagSet) {}

func (*budgetListCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		budgets, err := a.Budgets.List(ctx, a.actor)
		if err != nil {
			return err
		}
		dir, err := a.Directory.Directory(ctx, a.actor.OrganizationID)
		if err != nil {
			return err
		}
		var md markdown
		md.heading(2, "Budgets")
		rows := make([][]string, 0, len(budgets))
		for _, b := range budgets {
			rows = append(rows, []string{
				strconv.FormatInt(b.ID, 10),
				b.Name,
				string(b.Cadence),
				dir.Categories[b.CategoryID].Name,
				b.Period().String(),
				export.FormatAmount(b.LimitAmount, a.cfg.DefaultCurrency),
			})
		}
		md.table([]string{"ID", "Name", "Cadence", "Category", "Period", "Limit"}, rows)
		return printMarkdown(md.String())
	})
}

type budgetProgressCmd struct {
	date string
}

func (*budgetProgressCmd) Name() string     { return "progress" }
func (*budgetProgressCmd) Synopsis() string { return "Show spend against budgets" }
func (*budgetProgressCmd) Usage() string {
	return "progress [<budget-id>] [-date YYYY-MM-DD]:\n  Without an id, every budget running on -date (default today).\n"
}
func (c *budgetProgressCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "date", "", "Day whose running budgets to show")
}

func (c *budgetProgressCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		var progress []core.BudgetProgress
		if f.NArg() > 0 {
			id, err := parseID(f, "budget")
			if err != nil {
				return err
			}
			p, err := a.Budgets.Progress(ctx, a.actor, id)
			if err != nil {
				return err
			}
			progress = append(progress, p)
		} else {
			day := core.DateOf(time.Now())
			if c.date != "" {
				var err error
				if day, err = core.ParseDate(c.date); err != nil {
					return err
				}
			}
			var err error
			if progress, err = a.Budgets.ProgressAll(ctx, a.actor, day); err != nil {
				return err
			}
		}
		dir, err := a.Directory.Directory(ctx, a.actor.OrganizationID)
		if err != nil {
			return err
		}
		var md markdown
		md.heading(2, "Budget progress")
		md.table(progressHeader, progressRows(a, dir.Categories, progress))
		return printMarkdown(md.String())
	})
}

var progressHeader = []string{"Budget", "Category", "Period", "Spent", "Limit", "Remaining", "Used", ""}

func progressRows(a *app, categories map[int64]core.Category, progress []core.BudgetProgress) [][]string {
	cur := a.cfg.DefaultCurrency
	rows := make([][]string, 0, len(progress))
	for _, p := range progress {
		mark := ""
		if p.OverLimit {
			mark = "**over**"
		}
		rows = append(rows, []string{
			p.Budget.Name,
			categories[p.Budget.CategoryID].Name,
			p.Budget.Period().String(),
			export.FormatAmount(p.Spent, cur),
			export.FormatAmount(p.Budget.LimitAmount, cur),
			export.FormatAmount(p.Remaining, cur),
			fmt.Sprintf("%.0f%%", p.Percent*100),
			mark,
		})
	}
	return rows
}
