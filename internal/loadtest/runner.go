package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/okian/formcheck/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes the complete load test and returns its statistics. The
// error is non-nil when the service is unreachable or any verdict is wrong.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg.applyDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := cfg.Logger

	log.Info(ctx, "starting formcheck load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("attempts", cfg.Attempts),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
		logger.Any("seed", cfg.Seed),
		logger.Bool("verbose", cfg.Verbose))

	client := newHTTPClient(cfg.Timeout)
	if err := checkServiceHealth(ctx, client, cfg.BaseURL); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	thresholds := fetchThresholds(ctx, client, cfg.BaseURL)

	attempts, err := generateAttempts(ctx, cfg, thresholds, stats)
	if err != nil {
		return stats, fmt.Errorf("attempt generation failed: %w", err)
	}
	if cfg.OutputFile != "" {
		if err := saveAttemptsToFile(ctx, log, cfg.OutputFile, attempts); err != nil {
			log.Warn(ctx, "failed to save attempts to file", logger.Error(err))
		}
	}

	accepted := submitAttempts(ctx, cfg, attempts, stats)
	outcomes := retrieveOutcomes(ctx, cfg, attempts, accepted, stats)
	verifyErr := verifyResults(ctx, cfg, attempts, outcomes, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verifyErr)
	}
	log.Info(ctx, "test completed successfully")
	return stats, nil
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.Frames <= 0 {
		c.Frames = DefaultFrames
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * WorkerChannelMultiplier
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Wait <= 0 {
		c.Wait = DefaultWait
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	resp, err := client.Get(ctx, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	// The service answers with Prometheus metrics; any 200 is healthy.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// savedAttempt is the on-disk form of a generated attempt.
type savedAttempt struct {
	Attempt
	Expected Expectation `json:"expected"`
}

// saveAttemptsToFile writes the generated attempts and their ground truth
// as a JSON array.
func saveAttemptsToFile(ctx context.Context, log logger.Logger, filename string, attempts []Attempt) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	out := make([]savedAttempt, len(attempts))
	for i := range attempts {
		out[i] = savedAttempt{Attempt: attempts[i], Expected: attempts[i].Expected}
	}
	data, err := json.MarshalIndent(out, "", " ")
	if err != nil {
		return fmt.Errorf("failed to marshal attempts: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	log.Info(ctx, "attempts saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var acceptRate, attemptsPerSecond float64

	if stats.AttemptsSubmitted > 0 {
		acceptRate = float64(stats.AttemptsAccepted) / float64(stats.AttemptsSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		attemptsPerSecond = float64(stats.AttemptsSubmitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("attemptsGenerated", stats.AttemptsGenerated),
		logger.Int("attemptsSubmitted", stats.AttemptsSubmitted),
		logger.Int("attemptsAccepted", stats.AttemptsAccepted),
		logger.Int("attemptsDuplicate", stats.AttemptsDuplicate),
		logger.Int("attemptsRejected", stats.AttemptsRejected),
		logger.Int("attemptsFailed", stats.AttemptsFailed),
		logger.Int("outcomesRetrieved", stats.OutcomesRetrieved),
		logger.Int("outcomesPending", stats.OutcomesPending),
		logger.Int("verdictsMatched", stats.VerdictsMatched),
		logger.Int("verdictsMismatched", stats.VerdictsMismatched),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("attemptsPerSecond", attemptsPerSecond))
}
