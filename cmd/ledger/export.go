package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"ledger/internal/core"
)

type exportCmd struct {
	filterFlags
	format string
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "Export transactions as CSV or XLSX" }
func (*exportCmd) Usage() string {
	return `export [-format csv|xlsx] [-o file] [filter flags]:
  Export every matching transaction, newest first. Output goes to stdout
  unless -o is given.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.format, "format", "csv", "Output format: csv or xlsx")
	f.StringVar(&c.output, "o", "", "Output file (default stdout)")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.format != "csv" && c.format != "xlsx" {
		return fail(core.Invalid("format", "unknown export format %q", c.format))
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		filter, err := c.filter(ctx, a)
		if err != nil {
			return err
		}
		var data []byte
		if c.format == "xlsx" {
			data, err = a.Export.XLSX(ctx, a.actor, filter)
		} else {
			data, err = a.Export.CSV(ctx, a.actor, filter)
		}
		if err != nil {
			return err
		}
		if err := writeOutput(c.output, data); err != nil {
			return err
		}
		if c.output != "" && c.output != "-" {
			fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s\n", len(data), c.output)
		}
		return nil
	})
}
