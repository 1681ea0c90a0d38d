// Package tax estimates the periodic tax an MEI owes.
//
// Two models are available. The flat model charges a fixed monthly DAS per
// activity and ignores revenue. The progressive model applies Simples
// Nacional brackets to a revenue figure. Models are selected through a
// Registry of Estimator strategies.
package tax

import (
	"fmt"
	"sync"

	"financemei/internal/ceiling"
	"financemei/internal/core"

	"github.com/shopspring/decimal"
)

const (
	Flat        Model = "flat"
	Progressive Model = "progressive"
)

// Model names a tax estimation strategy.
type Model string

// Estimator is the strategy interface for tax models.
type Estimator interface {
	// Estimate returns the liability for an activity. Revenue may be nil
	// when the caller has no figure; models that need one reject that.
	Estimate(category core.Activity, revenue *core.Money) (core.TaxEstimate, error)
}

// Registry maps models to their estimators.
type Registry struct {
	mu         sync.RWMutex
	estimators map[Model]Estimator
}

// NewRegistry returns a registry holding the built-in 2025 tables, both
// classifying revenue against revenueCeiling.
func NewRegistry(revenueCeiling core.Money) *Registry {
	flat := DefaultFlatTable()
	flat.Ceiling = revenueCeiling
	progressive := DefaultProgressiveTable()
	progressive.Ceiling = revenueCeiling
	return &Registry{
		estimators: map[Model]Estimator{
			Flat:        flat,
			Progressive: progressive,
		},
	}
}

// Lookup returns the estimator for the given model.
func (r *Registry) Lookup(model Model) (Estimator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.estimators[model]
	if !ok {
		return nil, fmt.Errorf("%w: unknown tax model %q", core.ErrInvalidInput, string(model))
	}
	return e, nil
}

// Register adds or replaces the estimator for a model.
func (r *Registry) Register(model Model, e Estimator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.estimators[model] = e
}

// Estimate is a shorthand for Lookup followed by Estimate.
func (r *Registry) Estimate(model Model, category core.Activity, revenue *core.Money) (core.TaxEstimate, error) {
	e, err := r.Lookup(model)
	if err != nil {
		return core.TaxEstimate{}, err
	}
	return e.Estimate(category, revenue)
}

var one = decimal.NewFromInt(1)

// effectiveRate is annual / max(base, R$ 1).
func effectiveRate(annual, base core.Money) decimal.Decimal {
	return annual.Decimal().Div(decimal.Max(base.Decimal(), one))
}

func validateRevenue(revenue *core.Money) error {
	if revenue != nil && revenue.IsNegative() {
		return fmt.Errorf("%w: negative revenue %s", core.ErrInvalidInput, *revenue)
	}
	return nil
}

// standingFor attaches the ceiling proximity when a revenue figure exists.
func standingFor(revenue *core.Money, limit core.Money) (*core.RevenueStanding, error) {
	if revenue == nil {
		return nil, nil
	}
	if limit.IsZero() {
		limit = ceiling.DefaultCeiling
	}
	s, err := ceiling.Classify(*revenue, limit)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
