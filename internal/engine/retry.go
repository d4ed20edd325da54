package engine

import (
	"time"

	"github.com/flowstone-io/flowstone/internal/graph"
)

// DefaultBaseDelay is the retry base delay used when a node declares none.
const DefaultBaseDelay = 100 * time.Millisecond

// backoffDelay computes the wait before retry number `retry` (1-based)
// according to the node's policy. The default strategy is linear:
// base × retry, so the first retry waits base, the second 2×base and so on.
func backoffDelay(p graph.RetryPolicy, retry int, defaultBase time.Duration) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBase
	}
	if base <= 0 {
		base = DefaultBaseDelay
	}

	var delay time.Duration
	switch p.Strategy {
	case graph.BackoffFixed:
		delay = base
	case graph.BackoffExponential:
		delay = base
		for i := 1; i < retry; i++ {
			delay *= 2
			if p.MaxDelay > 0 && delay >= p.MaxDelay {
				delay = p.MaxDelay
				break
			}
		}
	default: // graph.BackoffLinear and the zero value
		delay = base * time.Duration(retry)
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
