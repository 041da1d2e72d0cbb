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
	"ledger/internal/services"
)

func reportGroup() *group {
	return &group{name: "report", synopsis: "Monthly, yearly and dashboard reports", cmds: []subcommands.Command{
		&monthlyCmd{}, &yearlyCmd{}, &dashboardCmd{},
	}}
}

// reportOutput selects where and how a report is written.
type reportOutput struct {
	html   bool
	output string
}

func (o *reportOutput) setFlags(f *flag.FlagSet) {
	f.BoolVar(&o.html, "html", false, "Write the report as an HTML document")
	f.StringVar(&o.output, "o", "", "Output file for -html (default stdout)")
}

func (o *reportOutput) emit(title, md string) error {
	if !o.html {
		return printMarkdown(md)
	}
	doc, err := markdownToHTML(title, md)
	if err != nil {
		return err
	}
	return writeOutput(o.output, doc)
}

// writeReport renders totals and the category breakdown of r.
func writeReport(md *markdown, a *app, dir *services.Directory, r core.Report) {
	cur := a.cfg.DefaultCurrency
	t := r.Totals()
	md.table([]string{"Income", "Expense", "Net"}, [][]string{{
		export.FormatAmount(t.Income, cur),
		export.FormatAmount(t.Expense, cur),
		export.FormatAmount(t.Net, cur),
	}})

	rows := [][]string{}
	for _, c := range r.Categories() {
		cat := dir.Categories[c.CategoryID]
		rows = append(rows, []string{cat.Name, string(cat.Kind), export.FormatAmount(c.Amount, cur)})
	}
	md.heading(3, "By category")
	md.table([]string{"Category", "Kind", "Amount"}, rows)
}

type monthlyCmd struct {
	reportOutput
	month string
}

func (*monthlyCmd) Name() string     { return "monthly" }
func (*monthlyCmd) Synopsis() string { return "Income, expense and category totals for a month" }
func (*monthlyCmd) Usage() string    { return "monthly [-month YYYY-MM] [-html] [-o file]\n" }
func (c *monthlyCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.month, "month", "", "Month as YYYY-MM (default current month)")
}

func (c *monthlyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	month := time.Now()
	if c.month != "" {
		var err error
		if month, err = time.Parse("2006-01", c.month); err != nil {
			return fail(core.Invalid("month", "expected YYYY-MM, got %q", c.month))
		}
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		r, err := a.Reports.Monthly(ctx, a.actor, month.Year(), int(month.Month()))
		if err != nil {
			return err
		}
		dir, err := a.Directory.Directory(ctx, a.actor.OrganizationID)
		if err != nil {
			return err
		}
		title := "Report " + month.Format("January 2006")
		var md markdown
		md.heading(2, "%s", title)
		writeReport(&md, a, dir, r)
		return c.emit(title, md.String())
	})
}

type yearlyCmd struct {
	reportOutput
	year int
}

func (*yearlyCmd) Name() string     { return "yearly" }
func (*yearlyCmd) Synopsis() string { return "Income, expense and category totals for a year" }
func (*yearlyCmd) Usage() string    { return "yearly [-year YYYY] [-html] [-o file]\n" }
func (c *yearlyCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.IntVar(&c.year, "year", time.Now().Year(), "Calendar year")
}

func (c *yearlyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		r, err := a.Reports.Yearly(ctx, a.actor, c.year)
		if err != nil {
			return err
		}
		dir, err := a.Directory.Directory(ctx, a.actor.OrganizationID)
		if err != nil {
			return err
		}
		title := "Report " + strconv.Itoa(c.year)
		var md markdown
		md.heading(2, "%s", title)
		writeReport(&md, a, dir, r)
		return c.emit(title, md.String())
	})
}

type dashboardCmd struct {
	reportOutput
}

func (*dashboardCmd) Name() string             { return "dashboard" }
func (*dashboardCmd) Synopsis() string         { return "This month, running budgets and recent transactions" }
func (*dashboardCmd) Usage() string            { return "dashboard [-html] [-o file]\n" }
func (c *dashboardCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		d, err := a.Reports.Dashboard(ctx, a.actor, core.DateOf(time.Now()))
		if err != nil {
			return err
		}
		dir, err := a.Directory.Directory(ctx, a.actor.OrganizationID)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("Dashboard %s", d.Today)
		var md markdown
		md.heading(2, "%s", title)
		md.heading(3, "This month")
		writeReport(&md, a, dir, d.Month)
		md.heading(3, "Budgets")
		md.table(progressHeader, progressRows(a, dir.Categories, d.Budgets))
		md.heading(3, "Recent transactions")
		md.table(transactionHeader, transactionRows(dir, a.cfg.DefaultCurrency, d.Recent))
		return c.emit(title, md.String())
	})
}
