package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/formcheck/internal/domain/evaluation"
	"github.com/okian/formcheck/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON fetches url and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) (int, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", url, err)
	}
	return resp.StatusCode, nil
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// fetchThresholds reads the thresholds the service judges with from
// /stats, falling back to the evaluator defaults.
func fetchThresholds(ctx context.Context, client *HTTPClient, baseURL string) evaluation.Thresholds {
	t := evaluation.DefaultThresholds()
	var stats map[string]any
	if status, err := client.getJSON(ctx, baseURL+"/stats", &stats); err != nil || status != http.StatusOK {
		return t
	}
	if v, ok := stats["torsoRangeThreshold"].(float64); ok && v > 0 {
		t.TorsoRange = v
	}
	if v, ok := stats["forearmMinThreshold"].(float64); ok && v > 0 {
		t.ForearmMin = v
	}
	return t
}

type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultRejected
	resultFailed
)

// submitAttempts submits attempts concurrently. Every cfg.Duplicates-th
// attempt is sent twice; the second submission must come back as a
// duplicate. It returns the set of attempt IDs the service accepted.
func submitAttempts(ctx context.Context, cfg *Config, attempts []Attempt, stats *Stats) map[string]bool {
	log := cfg.Logger
	log.Info(ctx, "submitting attempts", logger.Int("attempts", len(attempts)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/attempts"

	var (
		accepted, duplicate, rejected, failed, submitted atomic.Int64
		acceptedMu                                       sync.Mutex
		lastReport                                       atomic.Int64
	)
	acceptedIDs := make(map[string]bool, len(attempts))

	record := func(a *Attempt, result submitResult) {
		submitted.Add(1)
		switch result {
		case resultAccepted:
			accepted.Add(1)
			acceptedMu.Lock()
			acceptedIDs[a.AttemptID] = true
			acceptedMu.Unlock()
		case resultDuplicate:
			duplicate.Add(1)
		case resultRejected:
			rejected.Add(1)
		case resultFailed:
			failed.Add(1)
			if cfg.Verbose {
				log.Warn(ctx, "attempt submission failed", logger.String("attemptID", a.AttemptID))
			}
		}

		now := time.Now().UnixNano()
		last := lastReport.Load()
		if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
			log.Info(ctx, "submission progress",
				logger.Int("submitted", int(submitted.Load())),
				logger.Int("total", len(attempts)),
				logger.Int("accepted", int(accepted.Load())),
				logger.Int("duplicate", int(duplicate.Load())),
				logger.Int("rejected", int(rejected.Load())),
				logger.Int("failed", int(failed.Load())),
			)
		}
	}

	indexChan := make(chan int, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexChan {
				if ctx.Err() != nil {
					return
				}
				a := &attempts[index]
				result := submitSingleAttempt(ctx, client, url, a)
				record(a, result)
				if cfg.Duplicates > 0 && index%cfg.Duplicates == 0 && result == resultAccepted {
					record(a, submitSingleAttempt(ctx, client, url, a))
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range attempts {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.AttemptsSubmitted = int(submitted.Load())
	stats.AttemptsAccepted = int(accepted.Load())
	stats.AttemptsDuplicate = int(duplicate.Load())
	stats.AttemptsRejected = int(rejected.Load())
	stats.AttemptsFailed = int(failed.Load())

	log.Info(ctx, "attempt submission completed",
		logger.Int("accepted", stats.AttemptsAccepted),
		logger.Int("duplicate", stats.AttemptsDuplicate),
		logger.Int("rejected", stats.AttemptsRejected),
		logger.Int("failed", stats.AttemptsFailed),
	)
	return acceptedIDs
}

// submitSingleAttempt submits one attempt and classifies the response.
func submitSingleAttempt(ctx context.Context, client *HTTPClient, url string, a *Attempt) submitResult {
	resp, err := client.Post(ctx, url, a)
	if err != nil {
		return resultFailed
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed
	}

	var ack AckResponse
	switch resp.StatusCode {
	case http.StatusAccepted:
		if err := json.Unmarshal(body, &ack); err == nil && ack.AttemptID != a.AttemptID {
			return resultFailed
		}
		return resultAccepted
	case http.StatusOK:
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return resultDuplicate
		}
		return resultFailed
	case http.StatusTooManyRequests:
		return resultRejected
	default:
		return resultFailed
	}
}
