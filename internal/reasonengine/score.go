package reasonengine

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
)

// scored pairs a gated, deduped Candidate with its computed breakdown.
type scored struct {
	Candidate  Candidate
	Breakdown  domain.ScoreBreakdown
}

// SourceReliability looks up c's host in the reputation table
// (spec.md §4.3 signal 1); unknown hosts default to 0.5.
func SourceReliability(c Candidate, reputation map[string]float64) float64 {
	u, err := url.Parse(c.SourceURL)
	if err != nil {
		return 0.5
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if v, ok := reputation[host]; ok {
		return clamp01(v)
	}
	return 0.5
}

// EventMatch scores lexical overlap between a symbol/market-derived
// query and the candidate's summary+raw text (spec.md §4.3 signal 2).
// The score is the fraction of tokens containing the symbol, times 10,
// clamped to [0,1]; no third-party NLP library
// appears anywhere in the retrieved corpus, so this signal is the one
// ambient piece of scoring logic that stays on the standard library
// (see DESIGN.md).
func EventMatch(symbol string, c Candidate) float64 {
	text := strings.ToLower(c.Summary + " " + c.RawText)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	needle := strings.ToLower(symbol)
	hits := 0
	for _, t := range tokens {
		if t == needle || strings.Contains(t, needle) {
			hits++
		}
	}
	score := float64(hits) / float64(len(tokens)) * 10 // scale: a handful of hits saturates
	return clamp01(score)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

// TimeProximity scores how close publishedAt is to detectedAt, decaying
// linearly to 0 at the proximity horizon (spec.md §4.3 signal 3).
func TimeProximity(publishedAt, detectedAt time.Time, horizon time.Duration) float64 {
	if horizon <= 0 {
		return 0
	}
	delta := detectedAt.Sub(publishedAt)
	if delta < 0 {
		delta = -delta
	}
	if delta >= horizon {
		return 0
	}
	return clamp01(1 - float64(delta)/float64(horizon))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Score computes the weighted three-signal breakdown for one candidate
// (spec.md §4.7: weights 0.4/0.3/0.3). The total is computed from the
// unrounded signals; signals and total are then rounded to 2 decimals.
func Score(symbol string, c Candidate, detectedAt time.Time, cfg config.ReasonEngineConfig) domain.ScoreBreakdown {
	s1 := SourceReliability(c, cfg.Reputation)
	s2 := EventMatch(symbol, c)
	s3 := TimeProximity(c.PublishedAtUTC, detectedAt, cfg.ProximityHorizon)
	w := cfg.Weights
	total := w[0]*s1 + w[1]*s2 + w[2]*s3
	round2 := func(v float64) float64 { return math.Round(v*100) / 100 }
	return domain.ScoreBreakdown{
		Weights: w,
		Signals: [3]float64{round2(s1), round2(s2), round2(s3)},
		Total:   round2(total),
	}
}

// RankAndSelect scores every deduped candidate, orders them by the
// spec.md §4.7 tie-break (total desc, source_reliability desc,
// published_at asc, canonical URL lexicographic asc), and returns the
// top 3 in rank order; the caller assigns ranks 1..3 from that order.
func RankAndSelect(symbol string, cands []Candidate, detectedAt time.Time, cfg config.ReasonEngineConfig) []scored {
	out := make([]scored, 0, len(cands))
	for _, c := range cands {
		out = append(out, scored{Candidate: c, Breakdown: Score(symbol, c, detectedAt, cfg)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Breakdown.Total != b.Breakdown.Total {
			return a.Breakdown.Total > b.Breakdown.Total
		}
		if a.Breakdown.Signals[0] != b.Breakdown.Signals[0] {
			return a.Breakdown.Signals[0] > b.Breakdown.Signals[0]
		}
		if !a.Candidate.PublishedAtUTC.Equal(b.Candidate.PublishedAtUTC) {
			return a.Candidate.PublishedAtUTC.Before(b.Candidate.PublishedAtUTC)
		}
		return a.Candidate.SourceURL < b.Candidate.SourceURL
	})
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}
