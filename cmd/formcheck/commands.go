package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/formcheck/internal/domain/evaluation"
	"github.com/okian/formcheck/internal/domain/pose"
	"github.com/okian/formcheck/internal/loadtest"
	"github.com/okian/formcheck/pkg/logger"
)

// evaluateResult is the --json form of one evaluation.
type evaluateResult struct {
	Exercise   string   `json:"exercise"`
	Correct    bool     `json:"correct"`
	Feedback   string   `json:"feedback"`
	Findings   []string `json:"findings"`
	Side       string   `json:"side"`
	TorsoRange float64  `json:"torso_range"`
	ForearmMin float64  `json:"forearm_min"`
	Frames     int      `json:"frames"`
}

func newEvaluateCmd() *cobra.Command {
	var (
		exercise   string
		asJSON     bool
		thresholds = evaluation.DefaultThresholds()
	)

	cmd := &cobra.Command{
		Use:   "evaluate <pose-file.json>",
		Short: "Evaluate one attempt stored as a JSON pose file",
		Long: `Evaluate reads a pose sequence, judges it as the named exercise and
prints the feedback. The exit status is 0 when the attempt is correct,
1 when it is not and 2 when it cannot be evaluated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			seq, err := pose.Load(args[0])
			if err != nil {
				return &exitCodeError{code: exitError, err: err}
			}

			ev := evaluation.New(
				evaluation.WithLogger(logger.Named("evaluation")),
				evaluation.WithThresholds(thresholds),
			)
			report, err := ev.Assess(ctx, seq, exercise)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), evaluation.Message(err))
				return &exitCodeError{code: exitError}
			}

			if asJSON {
				out := evaluateResult{
					Exercise:   report.Exercise.String(),
					Correct:    report.Correct,
					Feedback:   report.Feedback,
					Findings:   make([]string, len(report.Findings)),
					Side:       report.Side.String(),
					TorsoRange: report.TorsoRange,
					ForearmMin: report.ForearmMin,
					Frames:     report.Frames,
				}
				for i, f := range report.Findings {
					out.Findings[i] = string(f)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return &exitCodeError{code: exitError, err: err}
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), report.Feedback)
			}

			if !report.Correct {
				return &exitCodeError{code: exitIncorrect}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&exercise, "exercise", "e", evaluation.ExerciseBicepCurl.String(), "exercise to judge the attempt as")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().Float64Var(&thresholds.TorsoRange, "torso-range-threshold", thresholds.TorsoRange, "upper-arm/torso spread limit in degrees")
	cmd.Flags().Float64Var(&thresholds.ForearmMin, "forearm-min-threshold", thresholds.ForearmMin, "smallest upper-arm/forearm angle limit in degrees")
	return cmd
}

func newExercisesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exercises",
		Short: "List supported exercises",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, ex := range evaluation.SupportedExercises() {
				fmt.Fprintln(cmd.OutOrStdout(), ex.String())
			}
		},
	}
}

func newLoadtestCmd() *cobra.Command {
	cfg := loadtest.Config{
		BaseURL:      "http://localhost:9080",
		Attempts:     loadtest.DefaultAttempts,
		Frames:       loadtest.DefaultFrames,
		Workers:      runtime.NumCPU() * loadtest.WorkerChannelMultiplier,
		Timeout:      loadtest.DefaultTimeout,
		Wait:         loadtest.DefaultWait,
		PollInterval: loadtest.DefaultPollInterval,
	}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Submit generated attempts to a running service and verify every verdict",
		Long: `Loadtest generates synthetic curls with known verdicts, submits them
concurrently to /attempts, polls their outcomes and fails when any verdict
disagrees with the generated ground truth.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Logger = logger.Named("loadtest")
			stats, err := loadtest.Run(cmd.Context(), &cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "submitted=%d accepted=%d duplicate=%d rejected=%d failed=%d matched=%d mismatched=%d pending=%d duration=%s\n",
					stats.AttemptsSubmitted, stats.AttemptsAccepted, stats.AttemptsDuplicate,
					stats.AttemptsRejected, stats.AttemptsFailed, stats.VerdictsMatched,
					stats.VerdictsMismatched, stats.OutcomesPending, stats.Duration.Round(time.Millisecond))
			}
			if err != nil {
				return &exitCodeError{code: exitIncorrect, err: err}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	f.IntVar(&cfg.Attempts, "attempts", cfg.Attempts, "number of attempts to generate and submit")
	f.IntVar(&cfg.Frames, "frames", cfg.Frames, "frames per generated attempt")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&cfg.Wait, "wait", cfg.Wait, "how long to wait for outcomes")
	f.IntVar(&cfg.Duplicates, "duplicates", 0, "resubmit every Nth attempt to exercise deduplication (0 disables)")
	f.Uint64Var(&cfg.Seed, "seed", 1, "generator seed")
	f.StringVar(&cfg.OutputFile, "output", "", "write generated attempts and their ground truth to this file")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log every failure and mismatch")
	return cmd
}
