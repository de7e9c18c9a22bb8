// Package sessioncal is the single module where exchange-session
// timezone math lives (SPEC_FULL.md §9 design note: "Timezone math
// lives in one module; never derive session labels from wall-clock
// strings"). Both the scanner (when it stamps a PriceEvent) and the
// Brief Builder resolve session labels through this package instead of
// re-deriving them.
package sessioncal

import (
	"fmt"
	"time"

	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/domain"
)

// Resolve classifies instantUTC into one of {pre, regular, post, closed}
// for market, per its configured calendar (spec.md §4.2).
func Resolve(cal config.MarketCalendar, instantUTC time.Time) (domain.SessionLabel, error) {
	loc, err := time.LoadLocation(cal.Timezone)
	if err != nil {
		return "", fmt.Errorf("reasoncard: load timezone %s: %w", cal.Timezone, err)
	}
	local := instantUTC.In(loc)
	dateStr := local.Format("2006-01-02")
	for _, h := range cal.Holidays {
		if h == dateStr {
			return domain.SessionClosed, nil
		}
	}
	minutesOfDay := local.Hour()*60 + local.Minute()
	for _, w := range cal.Sessions {
		start, err := parseHHMM(w.Start)
		if err != nil {
			return "", err
		}
		end, err := parseHHMM(w.End)
		if err != nil {
			return "", err
		}
		if minutesOfDay >= start && minutesOfDay < end {
			return domain.SessionLabel(w.Label), nil
		}
	}
	return domain.SessionClosed, nil
}

func parseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("reasoncard: invalid HH:MM %q: %w", s, err)
	}
	return h*60 + m, nil
}
