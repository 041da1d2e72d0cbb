package core

import (
	"slices"
	"strings"
	"time"
)

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleReadonly Role = "readonly"

	KindIncome  Kind = "income"
	KindExpense Kind = "expense"

	// Cadence labels how a budget recurs. The empty label means one-off.
	CadenceMonthly Cadence = "monthly"
	CadenceYearly  Cadence = "yearly"

	AccountCash  AccountType = "cash"
	AccountBank  AccountType = "bank"
	AccountCard  AccountType = "card"
	AccountOther AccountType = "other"
)

const (
	MaxNoteLength = 500
	MaxTagLength  = 32
	MaxTags       = 20
	maxNameLength = 120
)

type (
	Role        string
	Kind        string
	AccountType string
	Cadence     string

	// Actor is the already-authenticated caller. OrganizationID always comes
	// from the session, never from request payloads.
	Actor struct {
		OrganizationID int64
		UserID         int64
		Role           Role
	}

	Organization struct {
		ID        int64
		Name      string
		CreatedAt time.Time
	}

	User struct {
		ID             int64
		OrganizationID int64
		Username       string
		CredentialHash string
		Role           Role
		Active         bool
		CreatedAt      time.Time
	}

	Account struct {
		ID             int64
		OrganizationID int64
		Name           string
		Type           AccountType
		Currency       string // ISO 4217 code
		Active         bool
		CreatedAt      time.Time
	}

	Category struct {
		ID             int64
		OrganizationID int64
		Name           string
		Kind           Kind
		CreatedAt      time.Time
	}

	Transaction struct {
		ID             int64
		OrganizationID int64
		AccountID      int64
		CategoryID     int64
		CreatedBy      int64
		Amount         Money // signed: expense < 0, income > 0
		OccurredOn     Date
		Tags           []string
		Note           string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	TransactionDraft struct {
		AccountID  int64
		CategoryID int64
		Amount     Money
		OccurredOn Date
		Tags       []string
		Note       string
	}

	// TransactionPatch carries the fields to change; nil means unchanged.
	TransactionPatch struct {
		AccountID  *int64
		CategoryID *int64
		Amount     *Money
		OccurredOn *Date
		Tags       *[]string
		Note       *string
	}

	Budget struct {
		ID             int64
		OrganizationID int64
		CategoryID     int64
		Name           string
		Cadence        Cadence
		LimitAmount    Money
		PeriodStart    Date
		PeriodEnd      Date
		CreatedAt      time.Time
	}

	BudgetDraft struct {
		CategoryID  int64
		Name        string
		Cadence     Cadence
		LimitAmount Money
		PeriodStart Date
		PeriodEnd   Date
	}

	BudgetPatch struct {
		Name        *string
		Cadence     *Cadence
		LimitAmount *Money
		PeriodStart *Date
		PeriodEnd   *Date
	}

	AuditLog struct {
		ID             int64
		EventID        string
		OrganizationID int64
		UserID         int64
		Action         string
		Entity         string
		EntityID       int64
		CreatedAt      time.Time
	}
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", Invalid("role", "unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleReadonly:
		return true
	}
	return false
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", Invalid("kind", "unknown category kind %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func ParseCadence(s string) (Cadence, error) {
	c := Cadence(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", Invalid("cadence", "unknown budget cadence %q", s)
	}
	return c, nil
}

func (c Cadence) Valid() bool {
	return c == "" || c == CadenceMonthly || c == CadenceYearly
}

func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return AccountCash, nil
	}
	switch t {
	case AccountCash, AccountBank, AccountCard, AccountOther:
		return t, nil
	}
	return "", Invalid("type", "unknown account type %q", s)
}

func (a Actor) Validate() error {
	if a.OrganizationID <= 0 {
		return Invalid("organization_id", "missing organization")
	}
	if a.UserID <= 0 {
		return Invalid("user_id", "missing user")
	}
	if !a.Role.Valid() {
		return Invalid("role", "unknown role %q", a.Role)
	}
	return nil
}

// CheckAmountSign enforces the category kind sign convention.
func CheckAmountSign(kind Kind, amount Money) error {
	switch {
	case amount.Cents == 0:
		return Invalid("amount", "amount cannot be zero")
	case kind == KindExpense && amount.Cents > 0:
		return Invalid("amount", "expense amounts must be negative")
	case kind == KindIncome && amount.Cents < 0:
		return Invalid("amount", "income amounts must be positive")
	case !kind.Valid():
		return Invalid("kind", "unknown category kind %q", kind)
	}
	return nil
}

// NormalizeTags trims tags, drops empties and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		if len(t) > MaxTagLength {
			return nil, Invalid("tags", "tag %q too long (max %d characters)", t, MaxTagLength)
		}
		if strings.ContainsAny(t, ";\r\n") {
			return nil, Invalid("tags", "tag %q contains a reserved character", t)
		}
		out = append(out, t)
	}
	if len(out) > MaxTags {
		return nil, Invalid("tags", "too many tags (max %d)", MaxTags)
	}
	return out, nil
}

// ValidateName checks an entity display name.
func ValidateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Invalid(field, "cannot be empty")
	}
	if len(name) > maxNameLength {
		return "", Invalid(field, "too long (max %d characters)", maxNameLength)
	}
	return name, nil
}

// Normalize validates the draft fields that do not depend on stored state
// and returns a cleaned copy.
func (d TransactionDraft) Normalize() (TransactionDraft, error) {
	if d.AccountID <= 0 {
		return d, Invalid("account_id", "missing account")
	}
	if d.CategoryID <= 0 {
		return d, Invalid("category_id", "missing category")
	}
	if err := d.OccurredOn.Validate(); err != nil {
		return d, Invalid("occurred_on", "%v", err)
	}
	if d.Amount.Cents == 0 {
		return d, Invalid("amount", "amount cannot be zero")
	}
	if !d.Amount.inRange() {
		return d, Invalid("amount", "amount out of range")
	}
	if len(d.Note) > MaxNoteLength {
		return d, Invalid("note", "too long (max %d characters)", MaxNoteLength)
	}
	tags, err := NormalizeTags(d.Tags)
	if err != nil {
		return d, err
	}
	d.Tags = tags
	d.Note = strings.TrimSpace(d.Note)
	return d, nil
}

// Draft returns the mutable fields of the transaction.
func (t Transaction) Draft() TransactionDraft {
	return TransactionDraft{
		AccountID:  t.AccountID,
		CategoryID: t.CategoryID,
		Amount:     t.Amount,
		OccurredOn: t.OccurredOn,
		Tags:       slices.Clone(t.Tags),
		Note:       t.Note,
	}
}

// Apply overlays the patch on a draft.
func (p TransactionPatch) Apply(d TransactionDraft) TransactionDraft {
	if p.AccountID != nil {
		d.AccountID = *p.AccountID
	}
	if p.CategoryID != nil {
		d.CategoryID = *p.CategoryID
	}
	if p.Amount != nil {
		d.Amount = *p.Amount
	}
	if p.OccurredOn != nil {
		d.OccurredOn = *p.OccurredOn
	}
	if p.Tags != nil {
		d.Tags = slices.Clone(*p.Tags)
	}
	if p.Note != nil {
		d.Note = *p.Note
	}
	return d
}

func (d BudgetDraft) Normalize() (BudgetDraft, error) {
	if d.CategoryID <= 0 {
		return d, Invalid("category_id", "missing category")
	}
	d.Name = strings.TrimSpace(d.Name)
	if len(d.Name) > maxNameLength {
		return d, Invalid("name", "too long (max %d characters)", maxNameLength)
	}
	cadence, err := ParseCadence(string(d.Cadence))
	if err != nil {
		return d, err
	}
	d.Cadence = cadence
	if d.LimitAmount.Cents < 0 {
		return d, Invalid("limit_amount", "limit cannot be negative")
	}
	if !d.LimitAmount.inRange() {
		return d, Invalid("limit_amount", "limit out of range")
	}
	if err := d.PeriodStart.Validate(); err != nil {
		return d, Invalid("period_start", "%v", err)
	}
	if err := d.PeriodEnd.Validate(); err != nil {
		return d, Invalid("period_end", "%v", err)
	}
	if d.PeriodEnd.Before(d.PeriodStart.Time) {
		return d, Invalid("period_end", "period end must not be before period start")
	}
	return d, nil
}

func (b Budget) Draft() BudgetDraft {
	return BudgetDraft{
		CategoryID:  b.CategoryID,
		Name:        b.Name,
		Cadence:     b.Cadence,
		LimitAmount: b.LimitAmount,
		PeriodStart: b.PeriodStart,
		PeriodEnd:   b.PeriodEnd,
	}
}

func (p BudgetPatch) Apply(d BudgetDraft) BudgetDraft {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Cadence != nil {
		d.Cadence = *p.Cadence
	}
	if p.LimitAmount != nil {
		d.LimitAmount = *p.LimitAmount
	}
	if p.PeriodStart != nil {
		d.PeriodStart = *p.PeriodStart
	}
	if p.PeriodEnd != nil {
		d.PeriodEnd = *p.PeriodEnd
	}
	return d
}

// Period returns the inclusive window the budget applies to.
func (b Budget) Period() Period {
	return Period{Start: b.PeriodStart, End: b.PeriodEnd}
}
