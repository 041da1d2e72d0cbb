package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

var testNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// fixture is one organization with a user, an account and one category of
// each kind.
type fixture struct {
	org     core.Organization
	user    core.User
	account core.Account
	food    core.Category
	salary  core.Category
}

func seed(t *testing.T, q *Queries, orgName string) fixture {
	t.Helper()
	ctx := context.Background()

	var (
		f   fixture
		err error
	)
	f.org, err = q.CreateOrganization(ctx, orgName, testNow)
	require.NoError(t, err)
	f.user, err = q.CreateUser(ctx, core.User{
		OrganizationID: f.org.ID, Username: "alice", CredentialHash: "x",
		Role: core.RoleAdmin, Active: true, CreatedAt: testNow,
	})
	require.NoError(t, err)
	f.account, err = q.CreateAccount(ctx, core.Account{
		OrganizationID: f.org.ID, Name: "Cash", Type: core.AccountCash,
		Currency: "EUR", Active: true, CreatedAt: testNow,
	})
	require.NoError(t, err)
	f.food, err = q.CreateCategory(ctx, core.Category{
		OrganizationID: f.org.ID, Name: "Food", Kind: core.KindExpense, CreatedAt: testNow,
	})
	require.NoError(t, err)
	f.salary, err = q.CreateCategory(ctx, core.Category{
		OrganizationID: f.org.ID, Name: "Salary", Kind: core.KindIncome, CreatedAt: testNow,
	})
	require.NoError(t, err)
	return f
}

func (f fixture) tx(cat core.Category, cents int64, day core.Date, note string, tags ...string) core.Transaction {
	return core.Transaction{
		OrganizationID: f.org.ID,
		AccountID:      f.account.ID,
		CategoryID:     cat.ID,
		CreatedBy:      f.user.ID,
		Amount:         core.Money{Cents: cents},
		OccurredOn:     day,
		Tags:           tags,
		Note:           note,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
}

func TestTransaction_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()
	f := seed(t, q, "Acme")

	created, err := q.CreateTransaction(ctx, f.tx(f.food, -1250, core.NewDate(2024, 3, 5), "Pizza", "lunch", "work"))
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := q.GetTransaction(ctx, f.org.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-1250), got.Amount.Cents)
	assert.Equal(t, "2024-03-05", got.OccurredOn.String())
	assert.Equal(t, []string{"lunch", "work"}, got.Tags)
	assert.Equal(t, testNow, got.CreatedAt)

	got.Note = "Pasta"
	got.Tags = []string{"dinner"}
	got.UpdatedAt = testNow.Add(time.Hour)
	require.NoError(t, q.UpdateTransaction(ctx, got))

	again, err := q.GetTransaction(ctx, f.org.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pasta", again.Note)
	assert.Equal(t, []string{"dinner"}, again.Tags)
	assert.Equal(t, testNow.Add(time.Hour), again.UpdatedAt)
}

func TestTransaction_OtherOrganizationIsNotFound(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()
	a := seed(t, q, "Acme")
	b := seed(t, q, "Globex")

	tx, err := q.CreateTransaction(ctx, a.tx(a.food, -100, core.NewDate(2024, 3, 1), ""))
	require.NoError(t, err)

	_, err = q.GetTransaction(ctx, b.org.ID, tx.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	items, total, err := q.ListTransactions(ctx, b.org.ID, 0, core.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}

func TestTransaction_CrossOrganizationReferenceRejected(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()
	a := seed(t, q, "Acme")
	b := seed(t, q, "Globex")

	bad := a.tx(a.food, -100, core.NewDate(2024, 3, 1), "")
	bad.AccountID = b.account.ID
	_, err := q.CreateTransaction(ctx, bad)
	assert.True(t, errors.Is(err, core.ErrConflict), "got %v", err)
}

func TestTransaction_SoftDelete(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()
	f := seed(t, q, "Acme")

	tx, err := q.CreateTransaction(ctx, f.tx(f.food, -100, core.NewDate(2024, 3, 1), ""))
	require.NoError(t, err)

	require.NoError(t, q.SoftDeleteTransaction(ctx, f.org.ID, tx.ID, testNow))

	_, err = q.GetTransaction(ctx, f.org.ID, tx.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	err = q.SoftDeleteTransaction(ctx, f.org.ID, tx.ID, testNow)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, total, err := q.ListTransactions(ctx, f.org.ID, 0, core.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	// The row still pins its account.
	n, err := q.CountAccountReferences(ctx, f.org.ID, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListTransactions_OrderFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()
	f := seed(t, q, "Acme")

	rows := []core.Transaction{
		f.tx(f.salary, 250000, core.NewDate(2024, 3, 1), "March salary"),
		f.tx(f.food, -1250, core.NewDate(2024, 3, 5), "Pizza with Bob", "Lunch"),
		f.tx(f.food, -800, core.NewDate(2024, 3, 3), "groceries"),
		f.tx(f.food, -90000, core.NewDate(2024, 2, 28), "", "RENT-share"),
	}
	for _, r := range rows {
		_, err := q.CreateTransaction(ctx, r)
		require.NoError(t, err)
	}

	all, total, err := q.ListTransactions(ctx, f.org.ID, 0, core.TransactionFilter{})
	require.NoError(t, err)
	require.Equal(t, 4, total)
	var days []string
	for _, tx := range all {
		days = append(days, tx.OccurredOn.String())
	}
	assert.Equal(t, []string{"2024-03-05", "2024-03-03", "2024-03-01", "2024-02-28"}, days)

	page, total, err := q.ListTransactions(ctx, f.org.ID, 0, core.TransactionFilter{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "2024-03-03", page[0].OccurredOn.String())

	march, _, err := q.ListTransactions(ctx, f.org.ID, 0, core.TransactionFilter{
		From: core.NewDate(2024, 3, 1), To: core.NewDate(2024, 3, 31),
	})
	require.NoError(t, err)
	assert.Len(t, march, 3)

	minus := core.Money{Cents: -1000}
	small, _, err := q.ListTransactions(ctx, f.org.ID, 0, core.TransactionFilter{MinAmount: &minus, MaxAmount: &core.Money{Cents: -1}})
	require.NoError(t, err)
	require.Len(t, small, 1)
	assert.Equal(t, "groceries", small[0].Note)

	byNote, _, err := q.ListTransactions(ctx, f.org.ID, 0, core.TransactionFilter{Keyword: "BOB"})
	require.NoError(t, err)
	require.Len(t, byNote, 1)
	assert.Equal(t, []string{"Lunch"}, byNote[0].Tags)

	byTag, _, err := q.ListTransactions(ctx, f.org.ID, 0, core.TransactionFilter{Keyword: "rent"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, int64(-90000), byTag[0].Amount.Cents)

	mine, total, err := q.ListTransactions(ctx, f.org.ID, f.user.ID+100, core.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, mine)
	assert.Zero(t, total)
}

func TestSummarizeTransactions(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()
	f := seed(t, q, "Acme")

	for _, r := range []core.Transaction{
		f.tx(f.salary, 250000, core.NewDate(2024, 3, 1), ""),
		f.tx(f.food, -1250, core.NewDate(2024, 3, 5), ""),
		f.tx(f.food, -800, core.NewDate(2024, 3, 3), ""),
	} {
		_, err := q.CreateTransaction(ctx, r)
		require.NoError(t, err)
	}

	totals, err := q.SummarizeTransactions(ctx, f.org.ID, 0, core.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Count)
	assert.Equal(t, int64(250000), totals.Income.Cents)
	assert.Equal(t, int64(-2050), totals.Expense.Cents)
	assert.Equal(t, int64(247950), totals.Net.Cents)

	empty, err := q.SummarizeTransactions(ctx, f.org.ID, 0, core.TransactionFilter{Keyword: "nothing"})
	require.NoError(t, err)
	assert.Equal(t, core.Totals{}, empty)
}

func TestDirectory_UniqueNamesAndReferences(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()
	f := seed(t, q, "Acme")

	_, err := q.CreateAccount(ctx, core.Account{
		OrganizationID: f.org.ID, Name: "Cash", Type: core.AccountCash, Currency: "EUR", Active: true, CreatedAt: testNow,
	})
	assert.True(t, errors.Is(err, core.ErrConflict), "got %v", err)

	_, err = q.CreateUser(ctx, core.User{
		OrganizationID: f.org.ID, Username: "alice", CredentialHash: "x", Role: core.RoleUser, Active: true, CreatedAt: testNow,
	})
	assert.True(t, errors.Is(err, core.ErrConflict), "got %v", err)

	_, err = q.CreateBudget(ctx, core.Budget{
		OrganizationID: f.org.ID, CategoryID: f.food.ID, LimitAmount: core.Money{Cents: 10000},
		PeriodStart: core.NewDate(2024, 3, 1), PeriodEnd: core.NewDate(2024, 3, 31), CreatedAt: testNow,
	})
	require.NoError(t, err)
	n, err := q.CountCategoryReferences(ctx, f.org.ID, f.food.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, q.DeleteCategory(ctx, f.org.ID, f.salary.ID))
	_, err = q.GetCategory(ctx, f.org.ID, f.salary.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	require.NoError(t, q.SetAccountActive(ctx, f.org.ID, f.account.ID, false))
	active, err := q.ListAccounts(ctx, f.org.ID, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := q.ListAccounts(ctx, f.org.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUsers_RoleAndActiveAdmins(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()
	f := seed(t, q, "Acme")

	bob, err := q.CreateUser(ctx, core.User{
		OrganizationID: f.org.ID, Username: "bob", CredentialHash: "x", Role: core.RoleUser, Active: true, CreatedAt: testNow,
	})
	require.NoError(t, err)

	n, err := q.CountActiveAdmins(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, q.UpdateUserRole(ctx, f.org.ID, bob.ID, core.RoleAdmin))
	require.NoError(t, q.SetUserActive(ctx, f.org.ID, f.user.ID, false))

	n, err = q.CountActiveAdmins(ctx, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := q.GetUserByUsername(ctx, f.org.ID, "alice")
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = q.GetUserByUsername(ctx, f.org.ID+1, "alice")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestBudgets_ListActiveOn(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()
	f := seed(t, q, "Acme")

	for _, month := range []int{1, 2, 3} {
		p, err := core.MonthPeriod(2024, month)
		require.NoError(t, err)
		_, err = q.CreateBudget(ctx, core.Budget{
			OrganizationID: f.org.ID, CategoryID: f.food.ID, LimitAmount: core.Money{Cents: 10000},
			PeriodStart: p.Start, PeriodEnd: p.End, CreatedAt: testNow,
		})
		require.NoError(t, err)
	}

	all, err := q.ListBudgets(ctx, f.org.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-03-01", all[0].PeriodStart.String())

	running, err := q.ListBudgets(ctx, f.org.ID, core.NewDate(2024, 2, 29).Time)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "2024-02-01", running[0].PeriodStart.String())

	b := running[0]
	b.LimitAmount = core.Money{Cents: 5000}
	b.Name = "Groceries"
	b.Cadence = core.CadenceMonthly
	require.NoError(t, q.UpdateBudget(ctx, b))
	got, err := q.GetBudget(ctx, f.org.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Name)
	assert.Equal(t, core.CadenceMonthly, got.Cadence)
	assert.Equal(t, int64(5000), got.LimitAmount.Cents)

	b.Cadence = "weekly"
	assert.ErrorIs(t, q.UpdateBudget(ctx, b), core.ErrValidation)
}

func TestAuditLog_Idempotent(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()
	f := seed(t, q, "Acme")

	entry := core.AuditLog{
		EventID: "3f1c7a9e-8d2b-4c61-9a0e-6b5d4f3e2a10", OrganizationID: f.org.ID, UserID: f.user.ID,
		Action: "created", Entity: "transaction", EntityID: 7, CreatedAt: testNow,
	}
	written, err := q.InsertAuditLog(ctx, entry)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = q.InsertAuditLog(ctx, entry)
	require.NoError(t, err)
	assert.False(t, written)

	logs, err := q.ListAuditLogs(ctx, f.org.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entry.EventID, logs[0].EventID)
	assert.Equal(t, testNow, logs[0].CreatedAt)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(q *Queries) error {
		if _, err := q.CreateOrganization(ctx, "Acme", testNow); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Queries().CreateOrganization(ctx, "Acme", testNow)
	assert.NoError(t, err, "rolled back organization must not block its name")
}
