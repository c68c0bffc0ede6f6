// Package validate checks extracted claims against the ground-truth store.
//
// Tolerance policy (explicit, configurable): when |truth| < AbsolutePivot
// the claimed value must be within Absolute units of truth; otherwise the
// relative deviation |claimed-truth|/|truth| must not exceed Relative. A
// claim whose (subject, metric) has no ground-truth entry is a validation
// gap and verifies as unverifiable, not as an error.
package validate

import (
	"math"

	"github.com/ppiankov/biaslens/internal/catalog"
	"github.com/ppiankov/biaslens/internal/model"
)

// Validator checks claims for one ground-truth store.
type Validator struct {
	store *catalog.Store
	tol   model.ToleranceConfig
}

// New creates a validator with an explicit tolerance policy.
func New(store *catalog.Store, tol model.ToleranceConfig) *Validator {
	return &Validator{store: store, tol: tol}
}

// Validate produces one verdict per extracted claim across all signal
// vectors.
func (v *Validator) Validate(signals []model.SignalVector) []model.ValidationVerdict {
	var verdicts []model.ValidationVerdict
	for _, sv := range signals {
		for _, claim := range sv.Claims {
			verdicts = append(verdicts, v.check(sv, claim))
		}
	}
	return verdicts
}

func (v *Validator) check(sv model.SignalVector, claim model.Claim) model.ValidationVerdict {
	verdict := model.ValidationVerdict{
		Schema:     model.SchemaVersion,
		InstanceID: sv.InstanceID,
		Conditions: sv.Conditions,
		Subject:    claim.Subject,
		Metric:     claim.Metric,
		Claimed:    claim.Value,
		Span:       claim.Span,
	}

	truth, ok := v.store.Lookup(claim.Subject, claim.Metric)
	if !ok {
		verdict.Verdict = model.VerdictUnverifiable
		return verdict
	}

	verdict.Truth = &truth
	verdict.Deviation = math.Abs(claim.Value - truth)
	if math.Abs(truth) > 0 {
		verdict.RelDev = verdict.Deviation / math.Abs(truth)
	}

	if v.withinTolerance(claim.Value, truth) {
		verdict.Verdict = model.VerdictConsistent
	} else {
		verdict.Verdict = model.VerdictInconsistent
	}
	return verdict
}

func (v *Validator) withinTolerance(claimed, truth float64) bool {
	dev := math.Abs(claimed - truth)
	if math.Abs(truth) < v.tol.AbsolutePivot {
		return dev <= v.tol.Absolute
	}
	return dev/math.Abs(truth) <= v.tol.Relative
}

// ConditionRate aggregates verdicts for one condition vector.
type ConditionRate struct {
	Conditions    model.ConditionVector `json:"conditions"`
	Total         int                   `json:"total"`
	Consistent    int                   `json:"consistent"`
	Inconsistent  int                   `json:"inconsistent"`
	Unverifiable  int                   `json:"unverifiable"`
	Inconsistency float64               `json:"inconsistency_rate"` // inconsistent / verifiable
}

// InconsistencyRates groups verdicts by condition vector, yielding the
// per-condition factual-drift rate that separates "bias in tone" from
// "bias in accuracy". Unverifiable claims are excluded from the denominator.
func InconsistencyRates(verdicts []model.ValidationVerdict) map[string]ConditionRate {
	rates := make(map[string]ConditionRate)
	for _, v := range verdicts {
		key := v.Conditions.Key()
		r := rates[key]
		r.Conditions = v.Conditions
		r.Total++
		switch v.Verdict {
		case model.VerdictConsistent:
			r.Consistent++
		case model.VerdictInconsistent:
			r.Inconsistent++
		case model.VerdictUnverifiable:
			r.Unverifiable++
		}
		rates[key] = r
	}

	for key, r := range rates {
		verifiable := r.Consistent + r.Inconsistent
		if verifiable > 0 {
			r.Inconsistency = float64(r.Inconsistent) / float64(verifiable)
		}
		rates[key] = r
	}
	return rates
}
