package participation

import (
	"fmt"

	"github.com/google/uuid"
)

// CountAggregator answers the batch "how many joined" query used by list and
// grid views. It is read-only and holds no locks across events, so results
// for different events may be mutually stale; the engine never uses it for
// decisions.
type CountAggregator struct {
	ledger Ledger
}

// NewCountAggregator creates an aggregator over the given ledger
func NewCountAggregator(ledger Ledger) *CountAggregator {
	return &CountAggregator{ledger: ledger}
}

// BatchJoinedCounts returns the joined count for each requested event id.
// Every id appears in the result; unknown events count zero.
func (a *CountAggregator) BatchJoinedCounts(eventIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts, err := a.ledger.JoinedCounts(eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate joined counts: %w", err)
	}

	for _, id := range eventIDs {
		if _, ok := counts[id]; !ok {
			counts[id] = 0
		}
	}

	return counts, nil
}
