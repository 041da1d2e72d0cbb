package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/policy"
	"ledger/internal/storage"
)

const (
	entityOrganization = "organization"
	entityUser         = "user"
	entityAccount      = "account"
	entityCategory     = "category"
)

// Seed data for a newly registered organization.
var (
	defaultCategories = []struct {
		name string
		kind core.Kind
	}{
		{"Salary", core.KindIncome},
		{"Bonus", core.KindIncome},
		{"Food", core.KindExpense},
		{"Rent", core.KindExpense},
		{"Transport", core.KindExpense},
	}
)

const defaultAccount = "Cash"

// Directory is a read-only snapshot of an organization's accounts and
// categories, used to resolve names and kinds.
type Directory struct {
	Accounts   map[int64]core.Account
	Categories map[int64]core.Category
}

// Kinds maps category id to kind.
func (d *Directory) Kinds() map[int64]core.Kind {
	kinds := make(map[int64]core.Kind, len(d.Categories))
	for id, c := range d.Categories {
		kinds[id] = c.Kind
	}
	return kinds
}

// DirectoryService manages organizations, users, accounts and categories.
type DirectoryService struct {
	repo            *storage.SQLiteRepository
	events          *publisher
	now             func() time.Time
	defaultCurrency string
	cache           cache.Cache[*Directory]
	logger          *log.Logger
}

func NewDirectoryService(repo *storage.SQLiteRepository, events *publisher, now func() time.Time,
	defaultCurrency string, c cache.Cache[*Directory]) *DirectoryService {
	return &DirectoryService{
		repo:            repo,
		events:          events,
		now:             now,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		cache:           c,
		logger:          log.ForComponent(log.ComponentDirectory),
	}
}

// Register onboards an organization with its first admin, default
// categories and a cash account. credentialHash is stored as given.
func (s *DirectoryService) Register(ctx context.Context, orgName, username, credentialHash string) (core.Organization, core.User, error) {
	orgName, err := core.ValidateName("organization", orgName)
	if err != nil {
		return core.Organization{}, core.User{}, err
	}
	username, err = core.ValidateName("username", username)
	if err != nil {
		return core.Organization{}, core.User{}, err
	}
	if credentialHash == "" {
		return core.Organization{}, core.User{}, core.Invalid("credential", "missing credential hash")
	}

	now := s.now().UTC()
	var (
		org   core.Organization
		admin core.User
	)
	err = s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		if org, err = q.CreateOrganization(ctx, orgName, now); err != nil {
			return err
		}
		admin, err = q.CreateUser(ctx, core.User{
			OrganizationID: org.ID,
			Username:       username,
			CredentialHash: credentialHash,
			Role:           core.RoleAdmin,
			Active:         true,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		for _, c := range defaultCategories {
			if _, err := q.CreateCategory(ctx, core.Category{
				OrganizationID: org.ID, Name: c.name, Kind: c.kind, CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		_, err = q.CreateAccount(ctx, core.Account{
			OrganizationID: org.ID,
			Name:           defaultAccount,
			Type:           core.AccountCash,
			Currency:       s.defaultCurrency,
			Active:         true,
			CreatedAt:      now,
		})
		return err
	})
	if err != nil {
		return core.Organization{}, core.User{}, err
	}

	actor := core.Actor{OrganizationID: org.ID, UserID: admin.ID, Role: admin.Role}
	s.logger.WithFields(actorFields(actor, log.OpRegister)).
		InfoContext(ctx, "Registered organization", "name", org.Name)
	s.events.publish(ctx, actor, amqp.ActionCreated, entityOrganization, org.ID)
	return org, admin, nil
}

// LookupUser finds a user by username for an authentication layer. It is
// not policy-gated: the caller is not yet an actor.
func (s *DirectoryService) LookupUser(ctx context.Context, orgID int64, username string) (core.User, error) {
	return s.repo.Queries().GetUserByUsername(ctx, orgID, strings.TrimSpace(username))
}

func (s *DirectoryService) CreateUser(ctx context.Context, actor core.Actor, username, credentialHash string, role core.Role) (core.User, error) {
	if err := s.authorize(actor, core.ManageUsers); err != nil {
		return core.User{}, err
	}
	username, err := core.ValidateName("username", username)
	if err != nil {
		return core.User{}, err
	}
	if !role.Valid() {
		return core.User{}, core.Invalid("role", "unknown role %q", role)
	}
	if credentialHash == "" {
		return core.User{}, core.Invalid("credential", "missing credential hash")
	}

	u, err := s.repo.Queries().CreateUser(ctx, core.User{
		OrganizationID: actor.OrganizationID,
		Username:       username,
		CredentialHash: credentialHash,
		Role:           role,
		Active:         true,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return core.User{}, err
	}
	s.events.publish(ctx, actor, amqp.ActionCreated, entityUser, u.ID)
	return u, nil
}

func (s *DirectoryService) ListUsers(ctx context.Context, actor core.Actor) ([]core.User, error) {
	if err := s.authorize(actor, core.ManageUsers); err != nil {
		return nil, err
	}
	return s.repo.Queries().ListUsers(ctx, actor.OrganizationID)
}

// SetRole changes a user's role. Demoting the last active admin is a conflict.
func (s *DirectoryService) SetRole(ctx context.Context, actor core.Actor, userID int64, role core.Role) error {
	if err := s.authorize(actor, core.ManageUsers); err != nil {
		return err
	}
	if !role.Valid() {
		return core.Invalid("role", "unknown role %q", role)
	}

	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		u, err := q.GetUser(ctx, actor.OrganizationID, userID)
		if err != nil {
			return err
		}
		if u.Role == role {
			return nil
		}
		if u.Role == core.RoleAdmin && u.Active {
			if err := ensureAnotherAdmin(ctx, q, actor.OrganizationID); err != nil {
				return err
			}
		}
		return q.UpdateUserRole(ctx, actor.OrganizationID, userID, role)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(actorFields(actor, log.OpUpdate).WithEntity(entityUser, userID)).
		InfoContext(ctx, "Changed user role", "new_role", string(role))
	s.events.publish(ctx, actor, amqp.ActionRoleChanged, entityUser, userID)
	return nil
}

// DeactivateUser disables a user. Users are never deleted.
func (s *DirectoryService) DeactivateUser(ctx context.Context, actor core.Actor, userID int64) error {
	if err := s.authorize(actor, core.ManageUsers); err != nil {
		return err
	}

	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		u, err := q.GetUser(ctx, actor.OrganizationID, userID)
		if err != nil {
			return err
		}
		if !u.Active {
			return nil
		}
		if u.Role == core.RoleAdmin {
			if err := ensureAnotherAdmin(ctx, q, actor.OrganizationID); err != nil {
				return err
			}
		}
		return q.SetUserActive(ctx, actor.OrganizationID, userID, false)
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(actorFields(actor, log.OpDeactivate).WithEntity(entityUser, userID)).
		InfoContext(ctx, "Deactivated user")
	s.events.publish(ctx, actor, amqp.ActionDeactivated, entityUser, userID)
	return nil
}

func ensureAnotherAdmin(ctx context.Context, q *storage.Queries, orgID int64) error {
	n, err := q.CountActiveAdmins(ctx, orgID)
	if err != nil {
		return err
	}
	if n <= 1 {
		return core.Conflict("organization must keep at least one active admin")
	}
	return nil
}

// CreateAccount adds an account. An empty currency uses the default.
func (s *DirectoryService) CreateAccount(ctx context.Context, actor core.Actor, name string, typ core.AccountType, currency string) (core.Account, error) {
	if err := s.authorize(actor, core.ManageAccounts); err != nil {
		return core.Account{}, err
	}
	name, err := core.ValidateName("name", name)
	if err != nil {
		return core.Account{}, err
	}
	if typ, err = core.ParseAccountType(string(typ)); err != nil {
		return core.Account{}, err
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if money.GetCurrency(currency) == nil {
		return core.Account{}, core.Invalid("currency", "unknown currency %q", currency)
	}

	a, err := s.repo.Queries().CreateAccount(ctx, core.Account{
		OrganizationID: actor.OrganizationID,
		Name:           name,
		Type:           typ,
		Currency:       currency,
		Active:         true,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return core.Account{}, err
	}
	s.invalidate(actor.OrganizationID)
	s.events.publish(ctx, actor, amqp.ActionCreated, entityAccount, a.ID)
	return a, nil
}

// ListAccounts is open to every role; names are needed to render listings.
func (s *DirectoryService) ListAccounts(ctx context.Context, actor core.Actor, activeOnly bool) ([]core.Account, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Queries().ListAccounts(ctx, actor.OrganizationID, activeOnly)
}

// DeactivateAccount hides an account from new transactions while existing
// ones keep resolving its name.
func (s *DirectoryService) DeactivateAccount(ctx context.Context, actor core.Actor, id int64) error {
	if err := s.authorize(actor, core.ManageAccounts); err != nil {
		return err
	}
	if err := s.repo.Queries().SetAccountActive(ctx, actor.OrganizationID, id, false); err != nil {
		return err
	}
	s.invalidate(actor.OrganizationID)
	s.logger.WithFields(actorFields(actor, log.OpDeactivate).WithEntity(entityAccount, id)).
		InfoContext(ctx, "Deactivated account")
	s.events.publish(ctx, actor, amqp.ActionDeactivated, entityAccount, id)
	return nil
}

// DeleteAccount removes an account that no transaction references.
func (s *DirectoryService) DeleteAccount(ctx context.Context, actor core.Actor, id int64) error {
	if err := s.authorize(actor, core.ManageAccounts); err != nil {
		return err
	}
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetAccount(ctx, actor.OrganizationID, id); err != nil {
			return err
		}
		n, err := q.CountAccountReferences(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return core.Conflict("account %d is used by %d transactions; deactivate it instead", id, n)
		}
		return q.DeleteAccount(ctx, actor.OrganizationID, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(actor.OrganizationID)
	s.events.publish(ctx, actor, amqp.ActionDeleted, entityAccount, id)
	return nil
}

func (s *DirectoryService) CreateCategory(ctx context.Context, actor core.Actor, name string, kind core.Kind) (core.Category, error) {
	if err := s.authorize(actor, core.ManageCategories); err != nil {
		return core.Category{}, err
	}
	name, err := core.ValidateName("name", name)
	if err != nil {
		return core.Category{}, err
	}
	if !kind.Valid() {
		return core.Category{}, core.Invalid("kind", "unknown category kind %q", kind)
	}

	c, err := s.repo.Queries().CreateCategory(ctx, core.Category{
		OrganizationID: actor.OrganizationID,
		Name:           name,
		Kind:           kind,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return core.Category{}, err
	}
	s.invalidate(actor.OrganizationID)
	s.events.publish(ctx, actor, amqp.ActionCreated, entityCategory, c.ID)
	return c, nil
}

func (s *DirectoryService) ListCategories(ctx context.Context, actor core.Actor) ([]core.Category, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Queries().ListCategories(ctx, actor.OrganizationID)
}

// DeleteCategory removes a category no transaction or budget references.
func (s *DirectoryService) DeleteCategory(ctx context.Context, actor core.Actor, id int64) error {
	if err := s.authorize(actor, core.ManageCategories); err != nil {
		return err
	}
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetCategory(ctx, actor.OrganizationID, id); err != nil {
			return err
		}
		n, err := q.CountCategoryReferences(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return core.Conflict("category %d is used by %d transactions or budgets", id, n)
		}
		return q.DeleteCategory(ctx, actor.OrganizationID, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(actor.OrganizationID)
	s.events.publish(ctx, actor, amqp.ActionDeleted, entityCategory, id)
	return nil
}

// AuditTrail lists the newest recorded ledger events of the actor's
// organization.
func (s *DirectoryService) AuditTrail(ctx context.Context, actor core.Actor, limit int) ([]core.AuditLog, error) {
	if err := s.authorize(actor, core.ManageUsers); err != nil {
		return nil, err
	}
	if limit < 0 || limit > core.MaxPageSize {
		return nil, core.Invalid("limit", "must be between 0 and %d", core.MaxPageSize)
	}
	return s.repo.Queries().ListAuditLogs(ctx, actor.OrganizationID, limit)
}

// Directory returns the organization's accounts (deactivated included) and
// categories, served from cache when fresh.
func (s *DirectoryService) Directory(ctx context.Context, orgID int64) (*Directory, error) {
	key := strconv.FormatInt(orgID, 10)
	if d, ok := s.cache.Get(key); ok {
		return d, nil
	}

	var d Directory
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		accounts, err := q.ListAccounts(ctx, orgID, false)
		if err != nil {
			return err
		}
		categories, err := q.ListCategories(ctx, orgID)
		if err != nil {
			return err
		}
		d.Accounts = make(map[int64]core.Account, len(accounts))
		for _, a := range accounts {
			d.Accounts[a.ID] = a
		}
		d.Categories = make(map[int64]core.Category, len(categories))
		for _, c := range categories {
			d.Categories[c.ID] = c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, &d)
	return &d, nil
}

func (s *DirectoryService) invalidate(orgID int64) {
	s.cache.Delete(strconv.FormatInt(orgID, 10))
}

func (s *DirectoryService) authorize(actor core.Actor, action core.Action) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	return policy.Check(actor, action, actor.UserID)
}
