package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/subcommands"

	"ledger/internal/auth"
	"ledger/internal/core"
)

// parseID reads the single positional id argument.
func parseID(f *flag.FlagSet, what string) (int64, error) {
	if f.NArg() != 1 {
		return 0, core.Invalid("args", "expected exactly one %s id", what)
	}
	id, err := strconv.ParseInt(f.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid("args", "invalid %s id %q", what, f.Arg(0))
	}
	return id, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

type initCmd struct {
	orgName  string
	username string
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "Register an organization and its first admin" }
func (*initCmd) Usage() string {
	return `init -name <organization> -username <admin>:
  Create an organization with default categories, a cash account and an
  admin user whose password is read from ` + passwordEnv + `.
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.orgName, "name", "", "Organization name")
	f.StringVar(&c.username, "username", "admin", "Username of the first admin")
}

func (c *initCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	hash, err := auth.HashPassword(os.Getenv(passwordEnv))
	if err != nil {
		return fail(err)
	}
	l, _, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer l.Close()

	org, admin, err := l.Directory.Register(ctx, c.orgName, c.username, hash)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Registered organization %q (id %d) with admin %s (id %d)\n", org.Name, org.ID, admin.Username, admin.ID)
	return subcommands.ExitSuccess
}

func userGroup() *group {
	return &group{name: "user", synopsis: "Manage users of the organization", cmds: []subcommands.Command{
		&userAddCmd{}, &userListCmd{}, &userRoleCmd{}, &userDeactivateCmd{},
	}}
}

type userAddCmd struct {
	role string
}

func (*userAddCmd) Name() string     { return "add" }
func (*userAddCmd) Synopsis() string { return "Add a user; the password is read from " + passwordEnv + "_NEW" }
func (*userAddCmd) Usage() string    { return "add [-role user|admin|readonly] <username>\n" }
func (c *userAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.role, "role", string(core.RoleUser), "Role of the new user")
}

func (c *userAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail(core.Invalid("args", "expected a username"))
	}
	role, err := core.ParseRole(c.role)
	if err != nil {
		return fail(err)
	}
	hash, err := auth.HashPassword(os.Getenv(passwordEnv + "_NEW"))
	if err != nil {
		return fail(err)
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		u, err := a.Directory.CreateUser(ctx, a.actor, f.Arg(0), hash, role)
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (id %d, %s)\n", u.Username, u.ID, u.Role)
		return nil
	})
}

type userListCmd struct{}

func (*userListCmd) Name() string           { return "list" }
func (*userListCmd) Synopsis() string       { return "List users" }
func (*userListCmd) Usage() string          { return "list\n" }
func (*userListCmd) SetFlags(*flag.FlagSet) {}

func (*userListCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		users, err := a.Directory.ListUsers(ctx, a.actor)
		if err != nil {
			return err
		}
		var md markdown
		md.heading(2, "Users")
		rows := make([][]string, 0, len(users))
		for _, u := range users {
			rows = append(rows, []string{
				strconv.FormatInt(u.ID, 10), u.Username, string(u.Role), yesNo(u.Active),
			})
		}
		md.table([]string{"ID", "Username", "Role", "Active"}, rows)
		return printMarkdown(md.String())
	})
}

type userRoleCmd struct {
	role string
}

func (*userRoleCmd) Name() string     { return "role" }
func (*userRoleCmd) Synopsis() string { return "Change a user's role" }
func (*userRoleCmd) Usage() string    { return "role -role <role> <user-id>\n" }
func (c *userRoleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.role, "role", "", "New role")
}

func (c *userRoleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := parseID(f, "user")
	if err != nil {
		return fail(err)
	}
	role, err := core.ParseRole(c.role)
	if err != nil {
		return fail(err)
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		return a.Directory.SetRole(ctx, a.actor, id, role)
	})
}

type userDeactivateCmd struct{}

func (*userDeactivateCmd) Name() string           { return "deactivate" }
func (*userDeactivateCmd) Synopsis() string       { return "Deactivate a user" }
func (*userDeactivateCmd) Usage() string          { return "deactivate <user-id>\n" }
func (*userDeactivateCmd) SetFlags(*flag.FlagSet) {}

func (*userDeactivateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := parseID(f, "user")
	if err != nil {
		return fail(err)
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		return a.Directory.DeactivateUser(ctx, a.actor, id)
	})
}

func accountGroup() *group {
	return &group{name: "account", synopsis: "Manage accounts", cmds: []subcommands.Command{
		&accountAddCmd{}, &accountListCmd{}, &accountDeactivateCmd{}, &accountDeleteCmd{},
	}}
}

type accountAddCmd struct {
	typ      string
	currency string
}

func (*accountAddCmd) Name() string     { return "add" }
func (*accountAddCmd) Synopsis() string { return "Add an account" }
func (*accountAddCmd) Usage() string {
	return "add [-type cash|bank|card|other] [-currency CODE] <name>\n"
}
func (c *accountAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.typ, "type", string(core.AccountCash), "Account type")
	f.StringVar(&c.currency, "currency", "", "ISO 4217 currency; defaults to DEFAULT_CURRENCY")
}

func (c *accountAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail(core.Invalid("args", "expected an account name"))
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		acc, err := a.Directory.CreateAccount(ctx, a.actor, f.Arg(0), core.AccountType(c.typ), c.currency)
		if err != nil {
			return err
		}
		fmt.Printf("Created account %s (id %d, %s)\n", acc.Name, acc.ID, acc.Currency)
		return nil
	})
}

type accountListCmd struct {
	all bool
}

func (*accountListCmd) Name() string     { return "list" }
func (*accountListCmd) Synopsis() string { return "List accounts" }
func (*accountListCmd) Usage() string    { return "list [-all]\n" }
func (c *accountListCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Include deactivated accounts")
}

func (c *accountListCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		accounts, err := a.Directory.ListAccounts(ctx, a.actor, !c.all)
		if err != nil {
			return err
		}
		var md markdown
		md.heading(2, "Accounts")
		rows := make([][]string, 0, len(accounts))
		for _, acc := range accounts {
			rows = append(rows, []string{
				strconv.FormatInt(acc.ID, 10), acc.Name, string(acc.Type), acc.Currency, yesNo(acc.Active),
			})
		}
		md.table([]string{"ID", "Name", "Type", "Currency", "Active"}, rows)
		return printMarkdown(md.String())
	})
}

type accountDeactivateCmd struct{}

func (*accountDeactivateCmd) Name() string           { return "deactivate" }
func (*accountDeactivateCmd) Synopsis() string       { return "Deactivate an account, keeping its history" }
func (*accountDeactivateCmd) Usage() string          { return "deactivate <account-id>\n" }
func (*accountDeactivateCmd) SetFlags(*flag.FlagSet) {}

func (*accountDeactivateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := parseID(f, "account")
	if err != nil {
		return fail(err)
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		return a.Directory.DeactivateAccount(ctx, a.actor, id)
	})
}

type accountDeleteCmd struct{}

func (*accountDeleteCmd) Name() string           { return "delete" }
func (*accountDeleteCmd) Synopsis() string       { return "Delete an account without transactions" }
func (*accountDeleteCmd) Usage() string          { return "delete <account-id>\n" }
func (*accountDeleteCmd) SetFlags(*flag.FlagSet) {}

func (*accountDeleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := parseID(f, "account")
	if err != nil {
		return fail(err)
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		return a.Directory.DeleteAccount(ctx, a.actor, id)
	})
}

func categoryGroup() *group {
	return &group{name: "category", synopsis: "Manage categories", cmds: []subcommands.Command{
		&categoryAddCmd{}, &categoryListCmd{}, &categoryDeleteCmd{},
	}}
}

type categoryAddCmd struct {
	kind string
}

func (*categoryAddCmd) Name() string     { return "add" }
func (*categoryAddCmd) Synopsis() string { return "Add a category" }
func (*categoryAddCmd) Usage() string    { return "add -kind income|expense <name>\n" }
func (c *categoryAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", string(core.KindExpense), "Category kind")
}

func (c *categoryAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return fail(core.Invalid("args", "expected a category name"))
	}
	kind, err := core.ParseKind(c.kind)
	if err != nil {
		return fail(err)
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		cat, err := a.Directory.CreateCategory(ctx, a.actor, f.Arg(0), kind)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s category %s (id %d)\n", cat.Kind, cat.Name, cat.ID)
		return nil
	})
}

type categoryListCmd struct{}

func (*categoryListCmd) Name() string           { return "list" }
func (*categoryListCmd) Synopsis() string       { return "List categories" }
func (*categoryListCmd) Usage() string          { return "list\n" }
func (*categoryListCmd) SetFlags(*flag.FlagSet) {}

func (*categoryListCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		categories, err := a.Directory.ListCategories(ctx, a.actor)
		if err != nil {
			return err
		}
		var md markdown
		md.heading(2, "Categories")
		rows := make([][]string, 0, len(categories))
		for _, c := range categories {
			rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, string(c.Kind)})
		}
		md.table([]string{"ID", "Name", "Kind"}, rows)
		return printMarkdown(md.String())
	})
}

type categoryDeleteCmd struct{}

func (*categoryDeleteCmd) Name() string           { return "delete" }
func (*categoryDeleteCmd) Synopsis() string       { return "Delete an unused category" }
func (*categoryDeleteCmd) Usage() string          { return "delete <category-id>\n" }
func (*categoryDeleteCmd) SetFlags(*flag.FlagSet) {}

func (*categoryDeleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := parseID(f, "category")
	if err != nil {
		return fail(err)
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		return a.Directory.DeleteCategory(ctx, a.actor, id)
	})
}

type auditCmd struct {
	limit int
}

func (*auditCmd) Name() string     { return "audit" }
func (*auditCmd) Synopsis() string { return "Show the audit trail recorded by ledger-worker" }
func (*auditCmd) Usage() string    { return "audit [-n limit]\n" }
func (c *auditCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 50, "Number of entries to show")
}

func (c *auditCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		logs, err := a.Directory.AuditTrail(ctx, a.actor, c.limit)
		if err != nil {
			return err
		}
		var md markdown
		md.heading(2, "Audit trail")
		rows := make([][]string, 0, len(logs))
		for _, l := range logs {
			rows = append(rows, []string{
				l.CreatedAt.Format("2006-01-02 15:04:05"),
				strconv.FormatInt(l.UserID, 10),
				l.Action,
				fmt.Sprintf("%s %d", l.Entity, l.EntityID),
			})
		}
		md.table([]string{"When (UTC)", "User", "Action", "Entity"}, rows)
		return printMarkdown(md.String())
	})
}
