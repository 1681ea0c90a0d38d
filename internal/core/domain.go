package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	Payable    ObligationKind = "payable"
	Receivable ObligationKind = "receivable"
)

const (
	StatusTrial     PaymentStatus = "trial"
	StatusActive    PaymentStatus = "active"
	StatusExpired   PaymentStatus = "expired"
	StatusCancelled PaymentStatus = "cancelled"
)

type (
	// Kind tells whether a ledger entry adds to or subtracts from the balance.
	Kind string

	ObligationKind string

	// PaymentStatus is the stored billing status of an account. It is written
	// by the payment workflow only.
	PaymentStatus string

	LedgerEntry struct {
		ID          string `json:"id"`
		OwnerID     string `json:"owner_id"`
		Kind        Kind   `json:"kind"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
		OccurredOn  Date   `json:"occurred_on"`
		Category    string `json:"category"`
		Settled     bool   `json:"settled"`
		SettledOn   Date   `json:"settled_on"` // zero unless Settled
	}

	// Obligation is a future movement of money: a bill to pay or an amount
	// a client still owes.
	Obligation struct {
		ID          string         `json:"id"`
		OwnerID     string         `json:"owner_id"`
		Kind        ObligationKind `json:"kind"`
		Description string         `json:"description"`
		Amount      Money          `json:"amount"`
		DueOn       Date           `json:"due_on"`
		Fulfilled   bool           `json:"fulfilled"`
		FulfilledOn Date           `json:"fulfilled_on"`
		Notes       string         `json:"notes,omitempty"`
	}

	AccountSubscription struct {
		OwnerID        string        `json:"owner_id"`
		TrialStartedAt time.Time     `json:"trial_started_at"`
		TrialEndsAt    time.Time     `json:"trial_ends_at"`
		PaymentStatus  PaymentStatus `json:"payment_status"`
		LastPaymentOn  Date          `json:"last_payment_on"`
		NextDueOn      Date          `json:"next_due_on"`
	}
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownCategory = errors.New("unknown category")
	ErrBracketOverflow = errors.New("revenue above the top bracket")
	ErrNotFound        = errors.New("not found")

	ErrInvalidDay         = fmt.Errorf("%w: invalid day", ErrInvalidInput)
	ErrInvalidMonth       = fmt.Errorf("%w: invalid month", ErrInvalidInput)
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrInvalidInput)
	ErrInvalidWindow      = fmt.Errorf("%w: window start after end", ErrInvalidInput)
	ErrInvalidKind        = fmt.Errorf("%w: invalid kind", ErrInvalidInput)
	ErrEmptyDescription   = fmt.Errorf("%w: empty description", ErrInvalidInput)
	ErrEmptyCategory      = fmt.Errorf("%w: empty category", ErrInvalidInput)
	ErrEmptyOwner         = fmt.Errorf("%w: empty owner", ErrInvalidInput)
	ErrSettlementMismatch = fmt.Errorf("%w: settled date must be set exactly when settled", ErrInvalidInput)
	ErrAlreadyFulfilled   = fmt.Errorf("%w: obligation already fulfilled", ErrInvalidInput)
	ErrAmountOverflow     = fmt.Errorf("%w: total out of range", ErrInvalidInput)
)

const maxDescriptionLen = 200

// Income categories offered to the operator. The set is advisory.
var IncomeCategories = []string{
	"Venda Produtos",
	"Prestação Serviços",
	"Outras",
}

var ExpenseCategories = []string{
	"Matéria Prima",
	"Produtos/Estoque",
	"Equipamentos",
	"Marketing",
	"Transporte",
	"Alimentação",
	"Combustível",
	"Manutenção",
	"Contas Fixas",
	"Impostos",
	"Outros",
}

// CategoriesFor returns the suggested vocabulary for a ledger kind.
func CategoriesFor(k Kind) []string {
	switch k {
	case Income:
		return IncomeCategories
	case Expense:
		return ExpenseCategories
	}
	return nil
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidKind
}

func (k ObligationKind) Validate() error {
	switch k {
	case Payable, Receivable:
		return nil
	}
	return ErrInvalidKind
}

// EntryKind is the ledger kind an obligation turns into once fulfilled.
func (k ObligationKind) EntryKind() Kind {
	if k == Receivable {
		return Income
	}
	return Expense
}

func (s PaymentStatus) Validate() error {
	switch s {
	case StatusTrial, StatusActive, StatusExpired, StatusCancelled:
		return nil
	}
	return fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, string(s))
}

func validateDescription(d string) error {
	if len(strings.TrimSpace(d)) == 0 {
		return ErrEmptyDescription
	}
	if len(d) > maxDescriptionLen {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidInput, maxDescriptionLen)
	}
	return nil
}

func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if err := e.OccurredOn.Validate(); err != nil {
		return err
	}
	if err := validateDescription(e.Description); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Settled == e.SettledOn.IsZero() {
		return ErrSettlementMismatch
	}
	return nil
}

func (o Obligation) Validate() error {
	if strings.TrimSpace(o.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if err := o.Kind.Validate(); err != nil {
		return err
	}
	if err := o.DueOn.Validate(); err != nil {
		return err
	}
	if err := validateDescription(o.Description); err != nil {
		return err
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if o.Fulfilled == o.FulfilledOn.IsZero() {
		return ErrSettlementMismatch
	}
	return nil
}

func (s AccountSubscription) Validate() error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if s.TrialEndsAt.IsZero() {
		return fmt.Errorf("%w: trial end cannot be zero", ErrInvalidInput)
	}
	if s.TrialEndsAt.Before(s.TrialStartedAt) {
		return fmt.Errorf("%w: trial ends before it starts", ErrInvalidInput)
	}
	return s.PaymentStatus.Validate()
}
