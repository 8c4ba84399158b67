package loadtest

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xamogh/casbin-test/models"
)

// actions is the small fixed action set random tuples draw from.
var actions = []string{"read", "write", "delete"}

// Stats counts what a harness run did. All counters are safe for concurrent
// update.
type Stats struct {
	Adds     atomic.Uint64
	Enforces atomic.Uint64
	Removes  atomic.Uint64
	Filters  atomic.Uint64
	Failures atomic.Uint64

	Duration time.Duration
}

// Total returns how many operations were attempted.
func (s *Stats) Total() uint64 {
	return s.Adds.Load() + s.Enforces.Load() + s.Removes.Load() + s.Filters.Load()
}

// Runner drives the gateway with Clients concurrent virtual clients, each
// performing Requests sequential operations. It exists to surface
// concurrency defects in the gateway, not to be itself robust: no retries,
// no rate limiting, no cancellation mid-run.
type Runner struct {
	Client   *Client
	Clients  int
	Requests int
}

func randomTuple() models.PolicyTuple {
	return models.PolicyTuple{
		Sub: "user-" + strconv.Itoa(rand.Intn(1000)),
		Obj: "doc-" + strconv.Itoa(rand.Intn(1000)),
		Act: actions[rand.Intn(len(actions))],
	}
}

// Run executes the full harness and blocks until every client has finished
// all its iterations. Per-iteration failures are logged and counted, never
// fatal: one client erroring must not abort its remaining iterations or any
// other client.
func (r *Runner) Run(ctx context.Context) *Stats {
	stats := &Stats{}
	start := time.Now()

	g := new(errgroup.Group)
	for clientID := 0; clientID < r.Clients; clientID++ {
		clientID := clientID
		g.Go(func() error {
			for i := 0; i < r.Requests; i++ {
				if err := r.iterate(ctx, stats); err != nil {
					stats.Failures.Add(1)
					slog.Warn("Harness operation failed",
						"client", clientID,
						"iteration", i,
						"error", err)
				}
			}
			return nil
		})
	}
	// workers never return an error; Wait is pure fan-in
	_ = g.Wait()

	stats.Duration = time.Since(start)
	return stats
}

func (r *Runner) iterate(ctx context.Context, stats *Stats) error {
	tuple := randomTuple()

	switch rand.Intn(4) {
	case 0:
		stats.Adds.Add(1)
		_, err := r.Client.AddPolicy(ctx, tuple)
		return err
	case 1:
		stats.Enforces.Add(1)
		_, err := r.Client.Enforce(ctx, tuple)
		return err
	case 2:
		stats.Removes.Add(1)
		_, err := r.Client.RemovePolicy(ctx, tuple)
		return err
	default:
		stats.Filters.Add(1)
		fieldIndex := rand.Intn(3)
		value := tuple.Rule()[fieldIndex]
		_, err := r.Client.GetFilteredPolicy(ctx, fieldIndex, value)
		return err
	}
}

// LogSummary writes the run outcome to the default logger.
func (s *Stats) LogSummary() {
	slog.Info("Load test finished",
		"total", s.Total(),
		"adds", s.Adds.Load(),
		"enforces", s.Enforces.Load(),
		"removes", s.Removes.Load(),
		"filters", s.Filters.Load(),
		"failures", s.Failures.Load(),
		"duration", s.Duration)
}
