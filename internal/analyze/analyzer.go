// Package analyze aggregates signal vectors by condition and computes, for
// each bias dimension, the marginal effect of changing that dimension's
// level while every other dimension is held fixed. Contrasts are controlled
// pairwise comparisons between matched condition groups, not raw global
// averages, so crossed dimensions do not confound each other.
package analyze

import (
	"math"
	"sort"

	"github.com/ppiankov/biaslens/internal/catalog"
	"github.com/ppiankov/biaslens/internal/model"
)

// Analyzer computes findings from scored responses.
type Analyzer struct {
	cfg model.AnalysisConfig
	cat *catalog.Catalog
}

// New creates an analyzer with explicit thresholds.
func New(cfg model.AnalysisConfig, cat *catalog.Catalog) *Analyzer {
	return &Analyzer{cfg: cfg, cat: cat}
}

// contrast is one controlled level comparison on one dimension.
type contrast struct {
	delta    float64 // mean(to) - mean(from)
	stdErr   float64
	nFrom    int
	nTo      int
	pairs    int // matched condition-group pairs contributing
	hasPairs bool
}

// Analyze emits one finding per (dimension, level pair, entity) whose
// effect magnitude reaches the materiality threshold. The comparison is
// symmetric: effect(X->Y) is the negated effect(Y->X).
func (a *Analyzer) Analyze(signals []model.SignalVector) []model.Finding {
	byTopic := make(map[string][]model.SignalVector)
	for _, sv := range signals {
		byTopic[sv.Topic] = append(byTopic[sv.Topic], sv)
	}

	topics := make([]string, 0, len(byTopic))
	for t := range byTopic {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	var findings []model.Finding
	for _, topic := range topics {
		findings = append(findings, a.analyzeTopic(topic, byTopic[topic])...)
	}
	return findings
}

func (a *Analyzer) analyzeTopic(topic string, signals []model.SignalVector) []model.Finding {
	groups := make(map[string][]model.SignalVector)
	conds := make(map[string]model.ConditionVector)
	for _, sv := range signals {
		key := sv.Conditions.Key()
		groups[key] = append(groups[key], sv)
		conds[key] = sv.Conditions
	}

	var findings []model.Finding
	for _, dim := range a.cat.Dimensions {
		for i := 0; i < len(dim.Levels); i++ {
			for j := i + 1; j < len(dim.Levels); j++ {
				from, to := dim.Levels[i].ID, dim.Levels[j].ID

				// Tone effect for the topic entity.
				c := a.contrastSignal(groups, conds, dim.ID, from, to, func(sv model.SignalVector) float64 {
					return sv.Tone
				})
				if f, ok := a.finding(dim, from, to, topic, model.SignalTone, c); ok {
					findings = append(findings, f)
				}

				// Focus effect per mentioned entity.
				for _, entity := range focusEntities(signals) {
					ec := a.contrastSignal(groups, conds, dim.ID, from, to, func(sv model.SignalVector) float64 {
						return sv.Focus[entity]
					})
					if f, ok := a.finding(dim, from, to, entity, model.SignalFocus, ec); ok {
						findings = append(findings, f)
					}
				}
			}
		}
	}
	return findings
}

// contrastSignal pairs each condition group at level `from` with the group
// identical except dimension dim at level `to`, and pools the matched
// samples on both sides.
func (a *Analyzer) contrastSignal(groups map[string][]model.SignalVector, conds map[string]model.ConditionVector, dim, from, to string, extract func(model.SignalVector) float64) contrast {
	var fromVals, toVals []float64
	pairs := 0

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		cv := conds[key]
		if cv[dim] != from {
			continue
		}
		partnerKey := cv.With(dim, to).Key()
		partner, ok := groups[partnerKey]
		if !ok {
			continue
		}
		pairs++
		for _, sv := range groups[key] {
			fromVals = append(fromVals, extract(sv))
		}
		for _, sv := range partner {
			toVals = append(toVals, extract(sv))
		}
	}

	if pairs == 0 {
		return contrast{}
	}

	meanFrom, varFrom := meanVar(fromVals)
	meanTo, varTo := meanVar(toVals)

	se := 0.0
	if len(fromVals) > 0 && len(toVals) > 0 {
		se = math.Sqrt(varFrom/float64(len(fromVals)) + varTo/float64(len(toVals)))
	}

	return contrast{
		delta:    meanTo - meanFrom,
		stdErr:   se,
		nFrom:    len(fromVals),
		nTo:      len(toVals),
		pairs:    pairs,
		hasPairs: true,
	}
}

func (a *Analyzer) finding(dim catalog.Dimension, from, to, entity string, kind model.SignalKind, c contrast) (model.Finding, bool) {
	if !c.hasPairs || math.Abs(c.delta) < a.cfg.Materiality {
		return model.Finding{}, false
	}

	return model.Finding{
		Schema:     model.SchemaVersion,
		Dimension:  dim.ID,
		Hypothesis: dim.Hypothesis,
		LevelFrom:  from,
		LevelTo:    to,
		Entity:     entity,
		Signal:     kind,
		Magnitude:  c.delta,
		StdError:   c.stdErr,
		Confidence: a.confidence(c),
		SamplesA:   c.nFrom,
		SamplesB:   c.nTo,
		Contrasts:  c.pairs,
	}, true
}

// confidence grades a contrast: low when either side is under the minimum
// sample threshold, high when the effect clears two standard errors,
// medium otherwise.
func (a *Analyzer) confidence(c contrast) model.Confidence {
	if c.nFrom < a.cfg.MinSamples || c.nTo < a.cfg.MinSamples {
		return model.ConfidenceLow
	}
	if c.stdErr == 0 || math.Abs(c.delta) >= 2*c.stdErr {
		return model.ConfidenceHigh
	}
	return model.ConfidenceMedium
}

func focusEntities(signals []model.SignalVector) []string {
	set := make(map[string]bool)
	for _, sv := range signals {
		for id := range sv.Focus {
			set[id] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// meanVar returns the mean and sample variance (0 for fewer than two
// values).
func meanVar(vals []float64) (mean, variance float64) {
	n := float64(len(vals))
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean = sum / n
	if n < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return mean, ss / (n - 1)
}
