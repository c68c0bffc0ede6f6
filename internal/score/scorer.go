// Package score converts raw response text into signal vectors: tone
// polarity, focus distribution over known entities, and extracted numeric
// claims. Scoring is a pure function of the text and the ground-truth
// vocabulary; no external calls.
package score

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/biaslens/internal/catalog"
	"github.com/ppiankov/biaslens/internal/model"
)

// Scorer holds the compiled vocabulary for one ground-truth store.
type Scorer struct {
	store       *catalog.Store
	metricForms []string          // lowercase, longest-first
	canonical   map[string]string // lowercase surface form -> canonical metric
	mentionRE   map[string]*regexp.Regexp
	log         *zap.Logger
}

// NewScorer compiles entity mention patterns and metric surface forms from
// the store.
func NewScorer(store *catalog.Store, log *zap.Logger) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}

	forms, canonical := store.MetricSurfaceForms()

	mentionRE := make(map[string]*regexp.Regexp, len(store.Entities))
	for _, e := range store.Entities {
		alts := make([]string, 0, len(e.Aliases)+1)
		for _, m := range e.Mentions() {
			alts = append(alts, regexp.QuoteMeta(strings.ToLower(m)))
		}
		mentionRE[e.ID] = regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\b`)
	}

	return &Scorer{
		store:       store,
		metricForms: forms,
		canonical:   canonical,
		mentionRE:   mentionRE,
		log:         log,
	}
}

// Score derives the signal vector for one response record. Failed records
// yield a zero-signal vector (kept so per-condition counts stay honest).
func (s *Scorer) Score(rec model.ResponseRecord) model.SignalVector {
	sv := model.SignalVector{
		Schema:     model.SchemaVersion,
		InstanceID: rec.InstanceID,
		Topic:      rec.Topic,
		Conditions: rec.Conditions,
		Focus:      map[string]float64{},
	}
	if !rec.Succeeded() {
		return sv
	}

	sv.Tone = tonePolarity(rec.Response)
	sv.Focus = s.focusDistribution(rec.Response)
	sv.Claims = s.extractClaims(rec.Response, rec.Topic)
	return sv
}

// focusDistribution assigns attention weight proportional to the count of
// distinguishing mentions of each known entity, renormalized to sum to 1
// over the mentioned set. All-zero when no known entity is mentioned.
func (s *Scorer) focusDistribution(text string) map[string]float64 {
	lower := strings.ToLower(text)

	counts := make(map[string]int)
	total := 0
	for _, e := range s.store.Entities {
		n := len(s.mentionRE[e.ID].FindAllString(lower, -1))
		counts[e.ID] = n
		total += n
	}

	focus := make(map[string]float64, len(counts))
	for id, n := range counts {
		if total == 0 {
			focus[id] = 0
			continue
		}
		focus[id] = float64(n) / float64(total)
	}
	return focus
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?\s*%?`)

// extractClaims locates sentences containing a known metric name and a
// parsable numeric value, binding them to (subject, metric, value, span).
// Best-effort: malformed claims are omitted, never fail the record.
func (s *Scorer) extractClaims(text, topic string) []model.Claim {
	var claims []model.Claim

	for i, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)

		metric, start, end := s.findMetric(lower)
		if metric == "" {
			continue
		}

		value, ok := s.findValue(lower, start, end)
		if !ok {
			s.log.Debug("claim sentence without parsable value",
				zap.String("metric", metric),
				zap.String("sentence", sentence))
			continue
		}

		claims = append(claims, model.Claim{
			Subject:  s.findSubject(lower, topic),
			Metric:   metric,
			Value:    value,
			Span:     sentence,
			Sentence: i,
		})
	}
	return claims
}

// findMetric matches the longest metric surface form present, returning the
// canonical metric name and the match bounds.
func (s *Scorer) findMetric(lower string) (metric string, start, end int) {
	for _, form := range s.metricForms {
		idx := indexWord(lower, form)
		if idx >= 0 {
			return s.canonical[form], idx, idx + len(form)
		}
	}
	return "", 0, 0
}

// findValue picks the first number after the metric mention, falling back
// to the first number anywhere outside it. Percent values are scaled to
// fractions so they compare against ground truth stored as ratios.
func (s *Scorer) findValue(lower string, metricStart, metricEnd int) (float64, bool) {
	locs := numberPattern.FindAllStringIndex(lower, -1)

	parse := func(loc []int) (float64, bool) {
		raw := strings.TrimSpace(lower[loc[0]:loc[1]])
		percent := strings.HasSuffix(raw, "%")
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		if percent {
			v /= 100
		}
		return v, true
	}

	for _, loc := range locs {
		if loc[0] >= metricEnd {
			if v, ok := parse(loc); ok {
				return v, true
			}
		}
	}
	for _, loc := range locs {
		if loc[1] <= metricStart || loc[0] >= metricEnd {
			if v, ok := parse(loc); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// findSubject binds the claim to the single entity mentioned in the
// sentence, or to the prompt's topic entity when none or several are.
func (s *Scorer) findSubject(lower, topic string) string {
	matched := ""
	for _, e := range s.store.Entities {
		if s.mentionRE[e.ID].MatchString(lower) {
			if matched != "" {
				return topic
			}
			matched = e.ID
		}
	}
	if matched == "" {
		return topic
	}
	return matched
}

// indexWord finds form in lower at a word boundary.
func indexWord(lower, form string) int {
	from := 0
	for {
		idx := strings.Index(lower[from:], form)
		if idx < 0 {
			return -1
		}
		idx += from
		if boundedAt(lower, idx, idx+len(form)) {
			return idx
		}
		from = idx + 1
	}
}

func boundedAt(s string, start, end int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
