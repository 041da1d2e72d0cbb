package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"ledger/internal/auth"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
)

// passwordEnv holds the password of the user the CLI acts as.
const passwordEnv = "LEDGER_PASSWORD"

var (
	orgFlag   = flag.Int64("org", 0, "Organization id to act in")
	asFlag    = flag.String("as", "", "Username to act as; the password is read from "+passwordEnv)
	plainFlag = flag.Bool("plain", false, "Print raw markdown instead of terminal-rendered output")
)

func main() {
	cli.LoadEnvFile()
	cli.SetupLogger(log.ComponentCLI)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&initCmd{}, "directory")
	commander.Register(userGroup(), "directory")
	commander.Register(accountGroup(), "directory")
	commander.Register(categoryGroup(), "directory")
	commander.Register(&auditCmd{}, "directory")

	commander.Register(txGroup(), "ledger")
	commander.Register(budgetGroup(), "ledger")

	commander.Register(reportGroup(), "reports")
	commander.Register(&exportCmd{}, "reports")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// app is an authenticated CLI session.
type app struct {
	*services.Ledger
	cfg   *config.Config
	actor core.Actor
}

func openLedger(ctx context.Context) (*services.Ledger, *config.Config, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, nil, err
	}
	l, err := cli.OpenLedger(ctx, log.ForComponent(log.ComponentCLI), cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, cfg, nil
}

var errBadCredentials = errors.New("unknown user or wrong password")

func authenticate(ctx context.Context, l *services.Ledger) (core.Actor, error) {
	if *orgFlag <= 0 || *asFlag == "" {
		return core.Actor{}, core.Invalid("credentials", "-org and -as are required")
	}
	u, err := l.Directory.LookupUser(ctx, *orgFlag, *asFlag)
	if errors.Is(err, core.ErrNotFound) {
		return core.Actor{}, errBadCredentials
	}
	if err != nil {
		return core.Actor{}, err
	}
	if !auth.CheckPassword(u.CredentialHash, os.Getenv(passwordEnv)) {
		return core.Actor{}, errBadCredentials
	}
	if !u.Active {
		return core.Actor{}, fmt.Errorf("user %s is deactivated", u.Username)
	}
	return core.Actor{OrganizationID: u.OrganizationID, UserID: u.ID, Role: u.Role}, nil
}

// run executes fn within an authenticated session and maps its error to an
// exit status.
func run(ctx context.Context, fn func(context.Context, *app) error) subcommands.ExitStatus {
	l, cfg, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer l.Close()

	actor, err := authenticate(ctx, l)
	if err != nil {
		return fail(err)
	}
	return status(fn(ctx, &app{Ledger: l, cfg: cfg, actor: actor}))
}

func status(err error) subcommands.ExitStatus {
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	if errors.Is(err, core.ErrValidation) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

// group nests related subcommands under one top-level name, e.g.
// "ledger tx add".
type group struct {
	name, synopsis string
	cmds           []subcommands.Command
}

func (g *group) Name() string     { return g.name }
func (g *group) Synopsis() string { return g.synopsis }
func (g *group) Usage() string {
	s := fmt.Sprintf("%s <subcommand> [flags] [args]:\n  %s.\n\nSubcommands:\n", g.name, g.synopsis)
	for _, c := range g.cmds {
		s += fmt.Sprintf("  %-12s %s\n", c.Name(), c.Synopsis())
	}
	return s
}
func (g *group) SetFlags(*flag.FlagSet) {}

func (g *group) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cdr := subcommands.NewCommander(f, path.Base(os.Args[0])+" "+g.name)
	cdr.Register(cdr.HelpCommand(), "")
	for _, c := range g.cmds {
		cdr.Register(c, "")
	}
	return cdr.Execute(ctx, args...)
}
