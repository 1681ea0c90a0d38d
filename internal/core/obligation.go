package core

// Fulfill marks an open obligation as fulfilled on the given day and returns
// the settled ledger entry that records the movement. A receivable becomes
// income, a payable becomes an expense. The entry has no ID yet; the caller
// assigns one when persisting both records together.
func Fulfill(o Obligation, on Date) (Obligation, LedgerEntry, error) {
	if o.Fulfilled {
		return o, LedgerEntry{}, ErrAlreadyFulfilled
	}
	if err := on.Validate(); err != nil {
		return o, LedgerEntry{}, err
	}
	if err := o.Kind.Validate(); err != nil {
		return o, LedgerEntry{}, err
	}

	o.Fulfilled = true
	o.FulfilledOn = on

	entry := LedgerEntry{
		OwnerID:     o.OwnerID,
		Kind:        o.Kind.EntryKind(),
		Description: o.Description,
		Amount:      o.Amount,
		OccurredOn:  on,
		Category:    fulfilledCategory(o.Kind),
		Settled:     true,
		SettledOn:   on,
	}
	return o, entry, nil
}

func fulfilledCategory(k ObligationKind) string {
	if k == Receivable {
		return "Outras"
	}
	return "Outros"
}
