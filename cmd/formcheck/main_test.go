package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/formcheck/internal/adapters/http/api"
	service "github.com/okian/formcheck/internal/app"
	"github.com/okian/formcheck/internal/domain/evaluation"
)

func fixture(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = execute(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestEvaluateCommand(t *testing.T) {
	Convey("Given the recorded pose files", t, func() {
		Convey("When a correct curl is evaluated", func() {
			code, out, _ := runCLI("evaluate", "--exercise", "bicep_curl", fixture("bicep_curl_correct.json"))

			Convey("Then it prints the praise and exits 0", func() {
				So(code, ShouldEqual, exitCorrect)
				So(out, ShouldEqual, evaluation.FeedbackBicepCurlCorrect+"\n")
			})
		})

		Convey("When a swinging curl is evaluated", func() {
			code, out, _ := runCLI("evaluate", fixture("bicep_curl_swing.json"))

			Convey("Then it explains the swing and exits 1", func() {
				So(code, ShouldEqual, exitIncorrect)
				So(out, ShouldContainSubstring, evaluation.FeedbackShoulderRotation)
			})
		})

		Convey("When an incomplete curl is evaluated as JSON", func() {
			code, out, _ := runCLI("evaluate", "--json", fixture("bicep_curl_incomplete.json"))

			Convey("Then the report names the finding", func() {
				So(code, ShouldEqual, exitIncorrect)
				var res evaluateResult
				So(json.Unmarshal([]byte(out), &res), ShouldBeNil)
				So(res.Correct, ShouldBeFalse)
				So(res.Exercise, ShouldEqual, "bicep_curl")
				So(res.Findings, ShouldContain, string(evaluation.FindingIncompleteCurl))
				So(res.Frames, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the thresholds are relaxed", func() {
			code, _, _ := runCLI("evaluate", "--torso-range-threshold", "170", "--forearm-min-threshold", "170",
				fixture("bicep_curl_swing.json"))

			Convey("Then the swing passes", func() {
				So(code, ShouldEqual, exitCorrect)
			})
		})

		Convey("When the exercise is unknown", func() {
			code, out, _ := runCLI("evaluate", "--exercise", "squat", fixture("bicep_curl_correct.json"))

			Convey("Then it prints the unrecognized message and exits 2", func() {
				So(code, ShouldEqual, exitError)
				So(out, ShouldEqual, evaluation.MessageUnrecognized+"\n")
			})
		})

		Convey("When the file is missing", func() {
			code, _, errOut := runCLI("evaluate", fixture("nope.json"))

			Convey("Then it reports the error and exits 2", func() {
				So(code, ShouldEqual, exitError)
				So(errOut, ShouldContainSubstring, "error:")
			})
		})

		Convey("When the file holds no frames", func() {
			path := filepath.Join(t.TempDir(), "empty.json")
			So(os.WriteFile(path, []byte(`{"poses": []}`), 0o600), ShouldBeNil)
			code, out, _ := runCLI("evaluate", path)

			Convey("Then it prints the insufficient data message and exits 2", func() {
				So(code, ShouldEqual, exitError)
				So(out, ShouldEqual, evaluation.MessageInsufficient+"\n")
			})
		})

		Convey("When no file is given", func() {
			code, _, _ := runCLI("evaluate")
			So(code, ShouldEqual, exitError)
		})
	})
}

func TestExercisesCommand(t *testing.T) {
	Convey("Given the exercises command", t, func() {
		code, out, _ := runCLI("exercises")

		Convey("Then it lists the bicep curl", func() {
			So(code, ShouldEqual, exitCorrect)
			So(out, ShouldEqual, "bicep_curl\n")
		})
	})
}

func TestLogLevelFlag(t *testing.T) {
	Convey("Given an invalid log level", t, func() {
		code, _, errOut := runCLI("--log-level", "loud", "exercises")

		Convey("Then the command fails before running", func() {
			So(code, ShouldEqual, exitError)
			So(errOut, ShouldContainSubstring, "error:")
		})
	})
}

func TestLoadtestCommand(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		mux := http.NewServeMux()
		api.NewServer(svc, svc, 0).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer func() {
			srv.Close()
			_ = svc.Stop(ctx)
		}()

		Convey("When a small load test runs against it", func() {
			code, out, _ := runCLI("loadtest", "--url", srv.URL, "--attempts", "12", "--frames", "7",
				"--workers", "3", "--duplicates", "4", "--seed", "11")

			Convey("Then every verdict matches", func() {
				So(code, ShouldEqual, exitCorrect)
				So(out, ShouldContainSubstring, "accepted=12")
				So(out, ShouldContainSubstring, "duplicate=3")
				So(out, ShouldContainSubstring, "mismatched=0")
			})
		})
	})

	Convey("Given no service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		Convey("Then the load test exits 1", func() {
			code, _, errOut := runCLI("loadtest", "--url", srv.URL, "--attempts", "1", "--timeout", "1s")
			So(code, ShouldEqual, exitIncorrect)
			So(errOut, ShouldContainSubstring, "health check")
		})
	})
}
