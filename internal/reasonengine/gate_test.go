package reasonengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kisuya/reasoncard/internal/config"
)

func TestPassesGate(t *testing.T) {
	now := time.Now()
	require.True(t, PassesGate(Candidate{SourceURL: "https://sec.gov/x", PublishedAtUTC: now, Summary: "hello"}))
	require.False(t, PassesGate(Candidate{SourceURL: "ftp://sec.gov/x", PublishedAtUTC: now, Summary: "hello"}), "non-http(s) scheme fails")
	require.False(t, PassesGate(Candidate{SourceURL: "https://sec.gov/x", Summary: "hello"}), "missing published_at fails")
	require.False(t, PassesGate(Candidate{SourceURL: "https://sec.gov/x", PublishedAtUTC: now, Summary: "   "}), "blank summary fails")
}

func TestCanonicalizeURL(t *testing.T) {
	allow := []string{"utm_source", "utm_medium"}

	c1, err := CanonicalizeURL("HTTPS://News.Example.com:443/a/b/?utm_source=x&z=1&a=2", allow)
	require.NoError(t, err)
	c2, err := CanonicalizeURL("https://news.example.com/a/b?a=2&z=1#frag", allow)
	require.NoError(t, err)
	require.Equal(t, c1, c2, "scheme/host case, default port, fragment, and tracking params must not affect identity")
}

func TestDedupeMergePrefersEarlierAndLonger(t *testing.T) {
	cfg := config.Default().ReasonEngine
	t1 := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(-time.Hour)

	cands := []Candidate{
		{SourceURL: "https://sec.gov/x?b=1", Summary: "short", PublishedAtUTC: t1},
		{SourceURL: "https://sec.gov/x?b=1", Summary: "a much longer summary text", PublishedAtUTC: t2},
	}
	out, err := DedupeMerge(cands, cfg)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, t2, out[0].PublishedAtUTC, "earlier published_at wins")
	require.Equal(t, "a much longer summary text", out[0].Summary, "longer non-empty summary wins")
}
