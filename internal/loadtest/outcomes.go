package loadtest

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/formcheck/pkg/logger"
)

// retrieveOutcomes polls GET /attempts/{id} for every accepted attempt
// until it leaves the pending state or cfg.Wait elapses.
func retrieveOutcomes(ctx context.Context, cfg *Config, attempts []Attempt, accepted map[string]bool, stats *Stats) map[string]Outcome {
	log := cfg.Logger
	log.Info(ctx, "waiting for outcomes", logger.Int("accepted", len(accepted)), logger.String("wait", cfg.Wait.String()))

	ctx, cancel := context.WithTimeout(ctx, cfg.Wait)
	defer cancel()

	client := newHTTPClient(cfg.Timeout)

	var (
		mu       sync.Mutex
		outcomes = make(map[string]Outcome, len(accepted))
		pending  atomic.Int64
	)

	idChan := make(chan string, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idChan {
				o, ok := pollOutcome(ctx, client, cfg, id)
				if !ok {
					pending.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "outcome still pending", logger.String("attemptID", id))
					}
					continue
				}
				mu.Lock()
				outcomes[id] = o
				mu.Unlock()
			}
		}()
	}

	for i := range attempts {
		if accepted[attempts[i].AttemptID] {
			idChan <- attempts[i].AttemptID
		}
	}
	close(idChan)
	wg.Wait()

	stats.OutcomesRetrieved = len(outcomes)
	stats.OutcomesPending = int(pending.Load())
	log.Info(ctx, "outcome retrieval completed",
		logger.Int("retrieved", stats.OutcomesRetrieved),
		logger.Int("pending", stats.OutcomesPending),
	)
	return outcomes
}

// pollOutcome returns the outcome once it is no longer pending.
func pollOutcome(ctx context.Context, client *HTTPClient, cfg *Config, id string) (Outcome, bool) {
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		var o Outcome
		status, err := client.getJSON(ctx, cfg.BaseURL+"/attempts/"+id, &o)
		if err == nil && status == http.StatusOK && o.Status != "pending" {
			return o, true
		}
		select {
		case <-ctx.Done():
			return Outcome{}, false
		case <-ticker.C:
		}
	}
}
