package reasonengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
)

func TestScoreWeightsAndRounding(t *testing.T) {
	cfg := config.Default().ReasonEngine
	detectedAt := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	c := Candidate{
		ReasonType:     domain.ReasonFiling,
		Summary:        "AAPL reports record quarterly revenue",
		SourceURL:      "https://sec.gov/filing/1",
		PublishedAtUTC: detectedAt.Add(-time.Hour),
	}
	bd := Score("AAPL", c, detectedAt, cfg)
	require.InDelta(t, bd.Weights[0]*bd.Signals[0]+bd.Weights[1]*bd.Signals[1]+bd.Weights[2]*bd.Signals[2], bd.Total, 0.01)
	require.Equal(t, 1.0, bd.Signals[0], "sec.gov is a 1.0-reputation source")
}

func TestRankAndSelectTieBreak(t *testing.T) {
	cfg := config.Default().ReasonEngine
	cfg.Reputation = map[string]float64{"a.com": 0.9, "b.com": 0.9}
	detectedAt := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	cands := []Candidate{
		{SourceURL: "https://b.com/z", Summary: "AAPL news", PublishedAtUTC: detectedAt},
		{SourceURL: "https://a.com/a", Summary: "AAPL news", PublishedAtUTC: detectedAt},
	}
	ranked := RankAndSelect("AAPL", cands, detectedAt, cfg)
	require.Len(t, ranked, 2)
	// identical signals -> lexicographic canonical URL tie-break
	require.Equal(t, "https://a.com/a", ranked[0].Candidate.SourceURL)
}

func TestRankAndSelectCapsAtThree(t *testing.T) {
	cfg := config.Default().ReasonEngine
	detectedAt := time.Now()
	var cands []Candidate
	for i := 0; i < 6; i++ {
		cands = append(cands, Candidate{
			SourceURL:      "https://reuters.com/item-" + string(rune('a'+i)),
			Summary:        "AAPL update",
			PublishedAtUTC: detectedAt,
		})
	}
	ranked := RankAndSelect("AAPL", cands, detectedAt, cfg)
	require.Len(t, ranked, 3)
}

func TestTimeProximityDecaysToZeroAtHorizon(t *testing.T) {
	now := time.Now()
	require.Equal(t, 1.0, TimeProximity(now, now, time.Hour))
	require.Equal(t, 0.0, TimeProximity(now.Add(-2*time.Hour), now, time.Hour))
	require.InDelta(t, 0.5, TimeProximity(now.Add(-30*time.Minute), now, time.Hour), 1e-9)
}
