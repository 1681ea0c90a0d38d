// Package subscription derives an account's access state from its trial
// window and stored payment status. Nothing here writes the status back.
package subscription

import (
	"math"
	"strings"
	"time"

	"financemei/internal/core"
)

const (
	Trial     Presentation = "trial"
	Active    Presentation = "active"
	Expired   Presentation = "expired"
	Cancelled Presentation = "cancelled"
)

// PlanPath is the one protected page an expired account may still reach.
const PlanPath = "/api/subscription"

// Presentation is the status shown to the operator.
type Presentation string

type AccessState struct {
	OwnerID         string             `json:"owner_id"`
	Status          core.PaymentStatus `json:"status"`
	Presentation    Presentation       `json:"presentation"`
	DaysRemaining   int                `json:"days_remaining"`
	IsTrialActive   bool               `json:"is_trial_active"`
	IsAccessExpired bool               `json:"is_access_expired"`
	TrialEndsAt     time.Time          `json:"trial_ends_at"`
	NextDueOn       core.Date          `json:"next_due_on"`
}

// Derive computes the access state at now. Days remaining round up, so any
// part of a day left counts as a full day, and never go below zero. An
// active payment status keeps access open regardless of the trial window.
func Derive(sub core.AccountSubscription, now time.Time) AccessState {
	days := DaysRemaining(sub.TrialEndsAt, now)
	st := AccessState{
		OwnerID:         sub.OwnerID,
		Status:          sub.PaymentStatus,
		DaysRemaining:   days,
		IsTrialActive:   sub.PaymentStatus == core.StatusTrial && days > 0,
		IsAccessExpired: days <= 0 && sub.PaymentStatus != core.StatusActive,
		TrialEndsAt:     sub.TrialEndsAt,
		NextDueOn:       sub.NextDueOn,
	}
	st.Presentation = present(sub.PaymentStatus, st.IsTrialActive)
	return st
}

// DaysRemaining is ceil((end - now) / 24h), floored at zero.
func DaysRemaining(end, now time.Time) int {
	days := int(math.Ceil(end.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

func present(status core.PaymentStatus, trialActive bool) Presentation {
	switch status {
	case core.StatusActive:
		return Active
	case core.StatusCancelled:
		return Cancelled
	case core.StatusTrial:
		if trialActive {
			return Trial
		}
	}
	return Expired
}

// Gate reports whether a request for path may proceed. Once access has
// expired every protected path is blocked except the plan page.
func Gate(st AccessState, path string) bool {
	if !st.IsAccessExpired {
		return true
	}
	return path == PlanPath || strings.HasPrefix(path, PlanPath+"/")
}

// Tally counts accounts per presentation bucket at now. Every bucket is
// present in the result, zero when empty.
func Tally(subs []core.AccountSubscription, now time.Time) map[Presentation]int {
	out := map[Presentation]int{Trial: 0, Active: 0, Expired: 0, Cancelled: 0}
	for _, s := range subs {
		out[Derive(s, now).Presentation]++
	}
	return out
}
