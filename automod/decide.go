package automod

// ResponseTier is the escalating response a message's total severity maps to.
type ResponseTier int

const (
	TierNone ResponseTier = iota
	// record only, no platform action
	TierLogOnly
	// delete the message and warn the author
	TierDeleteWarn
	// delete plus the shorter timeout
	TierTimeoutMedium
	// delete plus the longer timeout
	TierTimeoutHigh
)

func (t ResponseTier) String() string {
	switch t {
	case TierLogOnly:
		return "log"
	case TierDeleteWarn:
		return "delete_warn"
	case TierTimeoutMedium:
		return "timeout_medium"
	case TierTimeoutHigh:
		return "timeout_high"
	}
	return "none"
}

// DecideTier maps total severity to a response tier. Band edges are
// inclusive on the lower bound: 6 is already the high band, 4 the medium
// band, 2 the delete+warn band.
func DecideTier(totalSeverity int) ResponseTier {
	switch {
	case totalSeverity >= 6:
		return TierTimeoutHigh
	case totalSeverity >= 4:
		return TierTimeoutMedium
	case totalSeverity >= 2:
		return TierDeleteWarn
	case totalSeverity > 0:
		return TierLogOnly
	}
	return TierNone
}
