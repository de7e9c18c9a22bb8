package reasonengine

import (
	"net/url"
	"sort"
	"strings"

	"github.com/kisuya/reasoncard/internal/config"
)

// PassesGate implements the quality gate from spec.md §4.3: a candidate
// only advances to scoring if its URL is http(s), it has a published_at,
// and its summary is non-blank once trimmed.
func PassesGate(c Candidate) bool {
	u, err := url.Parse(c.SourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	if c.PublishedAtUTC.IsZero() {
		return false
	}
	return strings.TrimSpace(c.Summary) != ""
}

// CanonicalizeURL normalizes a source URL for dedup (spec.md §4.3):
// lower-case scheme/host, strip the default port, drop the fragment,
// strip tracking params from allowlist, and sort remaining query keys.
func CanonicalizeURL(raw string, trackingAllowlist []string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(host, ":443")) {
		host = host[:strings.LastIndex(host, ":")]
	}
	u.Host = host
	u.Fragment = ""

	drop := make(map[string]bool, len(trackingAllowlist))
	for _, p := range trackingAllowlist {
		drop[p] = true
	}
	q := u.Query()
	for k := range q {
		if drop[k] {
			q.Del(k)
		}
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, k := range keys {
		sort.Strings(q[k])
		for _, v := range q[k] {
			values.Add(k, v)
		}
	}
	u.RawQuery = values.Encode()
	if strings.HasSuffix(u.Path, "/") && u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String(), nil
}

// DedupeMerge collapses candidates sharing the same canonical URL,
// keeping the earlier published_at and the longer non-empty summary
// (spec.md §4.3 merge rule).
func DedupeMerge(cands []Candidate, cfg config.ReasonEngineConfig) ([]Candidate, error) {
	byCanon := map[string]Candidate{}
	order := []string{}
	for _, c := range cands {
		canon, err := CanonicalizeURL(c.SourceURL, cfg.TrackingParamAllow)
		if err != nil {
			continue
		}
		c.SourceURL = canon
		existing, ok := byCanon[canon]
		if !ok {
			byCanon[canon] = c
			order = append(order, canon)
			continue
		}
		merged := existing
		if c.PublishedAtUTC.Before(existing.PublishedAtUTC) {
			merged.PublishedAtUTC = c.PublishedAtUTC
		}
		if len(strings.TrimSpace(c.Summary)) > len(strings.TrimSpace(merged.Summary)) {
			merged.Summary = c.Summary
		}
		if merged.RawText == "" {
			merged.RawText = c.RawText
		}
		byCanon[canon] = merged
	}
	out := make([]Candidate, 0, len(order))
	for _, canon := range order {
		out = append(out, byCanon[canon])
	}
	return out, nil
}
