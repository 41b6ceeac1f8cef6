package api

import (
	"arbscan/internal/config"
	"arbscan/internal/scan"
	"arbscan/internal/stream"
)

// BuildEvent converts an aggregator emission into the wire envelope. The
// opportunity payload reuses the snapshot DTO so clients render live and
// polled data identically.
func BuildEvent(ev stream.Event, cfg config.Config) WireEvent {
	out := WireEvent{
		Type:      string(ev.Type),
		Timestamp: ev.At,
	}

	switch ev.Type {
	case stream.EventOpportunity:
		if ev.Opportunity != nil {
			out.Data = buildOpportunity(scan.Entry{
				Opportunity: *ev.Opportunity,
				Liquidity:   ev.Liquidity,
			}, cfg)
		}
	case stream.EventOpportunityClosed, stream.EventOrderbookUpdate:
		out.Data = map[string]any{
			"id":         ev.PairID,
			"spread":     ev.Spread,
			"event_name": ev.Pair.Pair.Name,
		}
	}

	return out
}
