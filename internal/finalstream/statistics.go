package finalstream

import (
	"context"
	"time"

	"github.com/gabapcia/chainhead/internal/blocks"
	"github.com/gabapcia/chainhead/internal/pkg/logger"
)

const (
	// defaultPollingInterval is the initial finalized-poll cadence.
	defaultPollingInterval = 2 * time.Second

	// minPollingInterval and maxPollingInterval bound the adaptive cadence.
	minPollingInterval = 500 * time.Millisecond
	maxPollingInterval = time.Minute

	// adjustFactor is the step applied to the cadence on each adjustment.
	adjustFactor = 500 * time.Millisecond

	// adjustLimit is the accumulator magnitude that triggers an adjustment.
	adjustLimit = 10

	// maxGapAdjustment caps how much a single gap moves the accumulator,
	// damping the response to large gaps.
	maxGapAdjustment = 10
)

// outcome classifies a polled finalized header against the best known one.
type outcome int

const (
	outcomeFirst outcome = iota
	outcomeNew
	outcomeDuplicate
	outcomeGap
	outcomeRegression
)

// statistics tracks the finalized-block cadence observed from the node and
// adjusts the polling interval so the ratio of duplicates (polling too fast)
// and gaps (polling too slowly) converges. Created once per stream, mutated
// on every polled result, never reset.
type statistics struct {
	best *blocks.SealedHeader // last accepted finalized header

	newBlocks  uint64 // headers accepted as expected progress (first included)
	duplicated uint64 // times the node returned the best block again
	gaps       uint64 // times the node skipped ahead of best+1

	adjustThreshold int           // signed accumulator controlling adjustments
	pollingInterval time.Duration // current cadence, clamped to the bounds
}

func newStatistics(initialInterval time.Duration) *statistics {
	return &statistics{pollingInterval: initialInterval}
}

// observe feeds a newly polled finalized header into the model. It returns
// the classification and whether the header must be yielded downstream;
// duplicates and regressions are filtered so yielded numbers are strictly
// increasing.
func (s *statistics) observe(ctx context.Context, header blocks.SealedHeader) (outcome, bool) {
	if s.best == nil {
		s.best = &header
		s.newBlocks++
		return outcomeFirst, true
	}

	if header.Number() < s.best.Number() {
		logger.Warn(ctx, "non monotonically increasing finalized block, discarding",
			"best.number", s.best.Number(),
			"received.number", header.Number(),
		)
		return outcomeRegression, false
	}

	var (
		expected = s.best.Number() + 1
		result   outcome
		accepted bool
	)
	switch {
	case header.Number() == s.best.Number():
		s.duplicated++
		s.adjustThreshold--
		result, accepted = outcomeDuplicate, false

	case header.Number() == expected:
		s.newBlocks++
		result, accepted = outcomeNew, true

	default:
		gap := min(header.Number()-expected, maxGapAdjustment)
		s.gaps++
		s.adjustThreshold -= int(gap)
		result, accepted = outcomeGap, true
	}

	// One adjustment step per accumulated drift of adjustLimit.
	if s.adjustThreshold >= adjustLimit {
		s.adjustThreshold -= adjustLimit
		s.pollingInterval += adjustFactor
	} else if s.adjustThreshold <= -adjustLimit {
		s.adjustThreshold += adjustLimit
		s.pollingInterval -= adjustFactor
	}
	s.pollingInterval = min(max(s.pollingInterval, minPollingInterval), maxPollingInterval)

	if accepted {
		s.best = &header
	}
	return result, accepted
}
