package core

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCheckAmountSign(t *testing.T) {
	cases := []struct {
		kind  Kind
		cents int64
		ok    bool
	}{
		{KindExpense, -100, true},
		{KindExpense, 100, false},
		{KindIncome, 100, true},
		{KindIncome, -100, false},
		{KindIncome, 0, false},
		{KindExpense, 0, false},
		{Kind("gift"), 100, false},
	}
	for _, tc := range cases {
		err := CheckAmountSign(tc.kind, Money{Cents: tc.cents})
		if tc.ok && err != nil {
			t.Fatalf("%s %d: expected ok, got %v", tc.kind, tc.cents, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%s %d: expected error", tc.kind, tc.cents)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%s %d: expected validation error, got %v", tc.kind, tc.cents, err)
			}
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got, err := NormalizeTags([]string{" rent ", "", "home", "rent", "Home"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"rent", "home", "Home"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := NormalizeTags([]string{"a;b"}); err == nil {
		t.Fatalf("expected error for reserved separator")
	}
	if _, err := NormalizeTags([]string{strings.Repeat("x", MaxTagLength+1)}); err == nil {
		t.Fatalf("expected error for long tag")
	}
}

func TestTransactionDraftNormalize(t *testing.T) {
	good := TransactionDraft{
		AccountID:  1,
		CategoryID: 2,
		Amount:     Money{Cents: -1250},
		OccurredOn: NewDate(2025, 3, 4),
		Tags:       []string{"food", " food "},
		Note:       "  lunch ",
	}
	d, err := good.Normalize()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Note != "lunch" || len(d.Tags) != 1 {
		t.Fatalf("unexpected normalized draft: %+v", d)
	}

	bads := []TransactionDraft{
		{CategoryID: 2, Amount: Money{Cents: 1}, OccurredOn: NewDate(2025, 1, 1)},
		{AccountID: 1, Amount: Money{Cents: 1}, OccurredOn: NewDate(2025, 1, 1)},
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: 0}, OccurredOn: NewDate(2025, 1, 1)},
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: 1}},
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: 1}, OccurredOn: NewDate(2025, 1, 1), Note: strings.Repeat("n", MaxNoteLength+1)},
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: math.MinInt64}, OccurredOn: NewDate(2025, 1, 1)},
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: math.MaxInt64}, OccurredOn: NewDate(2025, 1, 1)},
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: maxCents + 1}, OccurredOn: NewDate(2025, 1, 1)},
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: -maxCents - 1}, OccurredOn: NewDate(2025, 1, 1)},
	}
	for i, b := range bads {
		if _, err := b.Normalize(); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestTransactionPatchApply(t *testing.T) {
	tx := Transaction{AccountID: 1, CategoryID: 2, Amount: Money{Cents: -10}, OccurredOn: NewDate(2025, 1, 1), Note: "a", Tags: []string{"x"}}
	amount := Money{Cents: -20}
	tags := []string{"y", "z"}
	d := TransactionPatch{Amount: &amount, Tags: &tags}.Apply(tx.Draft())
	if d.Amount.Cents != -20 || d.AccountID != 1 || d.Note != "a" || len(d.Tags) != 2 {
		t.Fatalf("unexpected patched draft: %+v", d)
	}
	tags[0] = "mutated"
	if d.Tags[0] != "y" {
		t.Fatalf("patch must copy tags")
	}
}

func TestBudgetDraftNormalize(t *testing.T) {
	ok := BudgetDraft{CategoryID: 1, LimitAmount: Money{Cents: 0}, PeriodStart: NewDate(2025, 1, 1), PeriodEnd: NewDate(2025, 1, 1)}
	if _, err := ok.Normalize(); err != nil {
		t.Fatalf("single-day budget should be valid: %v", err)
	}
	reversed := ok
	reversed.PeriodEnd = NewDate(2024, 12, 31)
	if _, err := reversed.Normalize(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for reversed period, got %v", err)
	}
	negative := ok
	negative.LimitAmount = Money{Cents: -1}
	if _, err := negative.Normalize(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for negative limit, got %v", err)
	}
	for _, cents := range []int64{maxCents + 1, math.MaxInt64} {
		huge := ok
		huge.LimitAmount = Money{Cents: cents}
		_, err := huge.Normalize()
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "limit_amount" {
			t.Fatalf("limit %d: expected limit_amount validation error, got %v", cents, err)
		}
	}
	labelled := ok
	labelled.Cadence = "YEARLY"
	if d, err := labelled.Normalize(); err != nil || d.Cadence != CadenceYearly {
		t.Fatalf("cadence should normalize to yearly, got %q, %v", d.Cadence, err)
	}
	labelled.Cadence = "weekly"
	if _, err := labelled.Normalize(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown cadence, got %v", err)
	}

	edge := ok
	edge.LimitAmount = Money{Cents: maxCents}
	if _, err := edge.Normalize(); err != nil {
		t.Fatalf("limit at the bound should be valid: %v", err)
	}
}

func TestActorValidate(t *testing.T) {
	if err := (Actor{OrganizationID: 1, UserID: 1, Role: RoleAdmin}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for i, a := range []Actor{
		{UserID: 1, Role: RoleAdmin},
		{OrganizationID: 1, Role: RoleAdmin},
		{OrganizationID: 1, UserID: 1, Role: "owner"},
	} {
		if err := a.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseRoleAndKind(t *testing.T) {
	if r, err := ParseRole(" Admin "); err != nil || r != RoleAdmin {
		t.Fatalf("ParseRole: %v %v", r, err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if k, err := ParseKind("EXPENSE"); err != nil || k != KindExpense {
		t.Fatalf("ParseKind: %v %v", k, err)
	}
	if at, err := ParseAccountType(""); err != nil || at != AccountCash {
		t.Fatalf("ParseAccountType default: %v %v", at, err)
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{Invalid("f", "bad"), ErrValidation},
		{&AuthorizationError{Role: RoleUser, Action: CreateBudget, Reason: InsufficientRole}, ErrUnauthorized},
		{&NotFoundError{Entity: "account", ID: 3}, ErrNotFound},
		{Conflict("busy"), ErrConflict},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Fatalf("%v should match %v", tc.err, tc.sentinel)
		}
	}
	var authErr *AuthorizationError
	if !errors.As(cases[1].err, &authErr) || authErr.Reason != InsufficientRole {
		t.Fatalf("authorization error should carry its reason")
	}
}
