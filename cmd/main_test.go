package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/soe/internal/adapters/repository"
	"github.com/okian/soe/internal/config"
	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithOutput(io.Discard))
	os.Exit(m.Run())
}

type closeRecorder struct {
	*repository.MemoryBlob
	closed atomic.Bool
}

func (c *closeRecorder) Close() error {
	c.closed.Store(true)
	return nil
}

func testConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.AI.APIKey = ""
	cfg.WorkerCount = 1
	return cfg
}

func TestNewApplication(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		app, err := newApplication(ctx, testConfig())
		convey.So(err, convey.ShouldBeNil)
		convey.So(app.svc.Start(ctx), convey.ShouldBeNil)
		defer app.svc.Stop()

		srv := httptest.NewServer(app.handler)
		defer srv.Close()

		convey.Convey("Then every surface is routed", func() {
			for _, path := range []string{"/", "/dashboard", "/healthz", "/stats", "/metrics", "/api/overview", "/api/snapshots", "/api/weights", "/api/alerts", "/api-docs", "/openapi.yaml"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then scores use the configured weights", func() {
			resp, err := http.Post(srv.URL+"/api/score", "application/json", strings.NewReader(
				`{"metrics":{"uptime":99.99,"errorRate":0.01,"cpuUtilization":45,"memoryUtilization":60,"throughput":1200,"responseTime":120}}`))
			convey.So(err, convey.ShouldBeNil)
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(string(body), convey.ShouldContainSubstring, `"overallScore":97`)
		})

		convey.Convey("Then the service has no AI configured", func() {
			convey.So(app.svc.AIConfigured(), convey.ShouldBeFalse)
		})
	})

	convey.Convey("Given a weights file", t, func() {
		path := filepath.Join(t.TempDir(), "weights.yaml")
		convey.So(os.WriteFile(path, []byte("uptime: 1\n"), 0o600), convey.ShouldBeNil)
		cfg := testConfig()
		cfg.WeightsFile = path

		app, err := newApplication(context.Background(), cfg)

		convey.Convey("Then it overrides the configured weights", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(app.svc.Weights(), convey.ShouldResemble, scoring.Weights{Uptime: 1})
		})
	})

	convey.Convey("Given broken settings", t, func() {
		ctx := context.Background()

		convey.Convey("When the weights file is missing", func() {
			cfg := testConfig()
			cfg.WeightsFile = filepath.Join(t.TempDir(), "missing.yaml")
			_, err := newApplication(ctx, cfg)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When an alert rule does not compile", func() {
			cfg := testConfig()
			cfg.Alerts.Rules = []config.Rule{{Name: "bad", Expr: "score.overall <"}}
			_, err := newApplication(ctx, cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a later component fails after the store opened", func() {
			blob := &closeRecorder{MemoryBlob: repository.NewMemoryBlob()}
			restore := openStore
			openStore = func(context.Context, repository.Config, ...repository.Option) (*repository.BlobStore, error) {
				return repository.NewBlobStore(blob), nil
			}
			defer func() { openStore = restore }()

			cfg := testConfig()
			cfg.Alerts.Rules = []config.Rule{{Name: "bad", Expr: "score.overall <"}}
			_, err := newApplication(ctx, cfg)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(blob.closed.Load(), convey.ShouldBeTrue)
		})

		convey.Convey("When the storage driver is unknown", func() {
			cfg := testConfig()
			cfg.Storage.Driver = "tape"
			_, err := newApplication(ctx, cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running process", t, func() {
		cfg := testConfig()
		cfg.Addr = "127.0.0.1:0"
		cfg.WeightsFile = filepath.Join(t.TempDir(), "weights.yaml")
		convey.So(os.WriteFile(cfg.WeightsFile, []byte("uptime: 1\n"), 0o600), convey.ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg) }()

		convey.Convey("When the context is cancelled", func() {
			time.Sleep(100 * time.Millisecond)
			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return")
				}
			})
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a short-lived context", t, func() {
		app, err := newApplication(context.Background(), testConfig())
		convey.So(err, convey.ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		convey.So(func() { startServiceMetricsUpdater(ctx, app.svc) }, convey.ShouldNotPanic)
	})
}
