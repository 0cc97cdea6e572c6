package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/soe/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 256)
				convey.So(cfg.Storage.Driver, convey.ShouldEqual, "memory")
				convey.So(cfg.AI.APIKey, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SOE_ADDR", ":8080")
			_ = os.Setenv("SOE_QUEUE_SIZE", "100")
			_ = os.Setenv("SOE_WORKER_COUNT", "16")
			_ = os.Setenv("SOE_STORAGE__DRIVER", "SQLite")
			_ = os.Setenv("SOE_AI__API_KEY", "env-key")
			_ = os.Setenv("SOE_AI__TIMEOUT_MS", "2500")
			_ = os.Setenv("SOE_WEIGHTS__UPTIME", "0.5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 100)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.Storage.Driver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.AI.APIKey, convey.ShouldEqual, "env-key")
				convey.So(cfg.AI.TimeoutMS, convey.ShouldEqual, 2500)
				convey.So(cfg.Weights.Uptime, convey.ShouldEqual, 0.5)
				convey.So(cfg.Weights.ErrorRate, convey.ShouldEqual, 0.25)
			})
		})

		convey.Convey("When only the fallback API key variables are set", func() {
			_ = os.Setenv("GEMINI_API_KEY", "gemini-key")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the fallback key is used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.AI.APIKey, convey.ShouldEqual, "gemini-key")
			})

			convey.Convey("Then API_KEY takes precedence over GEMINI_API_KEY", func() {
				_ = os.Setenv("API_KEY", "generic-key")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.AI.APIKey, convey.ShouldEqual, "generic-key")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_size: 512
history_points: 20
storage:
  driver: file
  path: /tmp/soe
ai:
  provider: openai
  model: gpt-4o-mini
alerts:
  rules:
    - name: low-score
      expr: score.overall < 50
      severity: critical
      cooldown_seconds: 60
  webhooks:
    - url: http://hooks.local/alerts
      type: http
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SOE_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 512)
				convey.So(cfg.HistoryPoints, convey.ShouldEqual, 20)
				convey.So(cfg.Storage.Driver, convey.ShouldEqual, "file")
				convey.So(cfg.Storage.Path, convey.ShouldEqual, "/tmp/soe")
				convey.So(cfg.AI.Provider, convey.ShouldEqual, "openai")
				convey.So(cfg.AI.Model, convey.ShouldEqual, "gpt-4o-mini")
				convey.So(cfg.Alerts.Rules, convey.ShouldHaveLength, 1)
				convey.So(cfg.Alerts.Rules[0].CooldownSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.Alerts.Webhooks, convey.ShouldHaveLength, 1)
				convey.So(cfg.Alerts.Webhooks[0].URL, convey.ShouldEqual, "http://hooks.local/alerts")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 512
worker_count: 3
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SOE_CONFIG", tmpFile)
			_ = os.Setenv("SOE_ADDR", ":8080")
			_ = os.Setenv("SOE_WORKER_COUNT", "8")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")  // env
				convey.So(cfg.QueueSize, convey.ShouldEqual, 512) // file
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8) // env
			})
		})

		convey.Convey("When the YAML file has an empty addr", func() {
			tmpFile := createTempConfigFile("addr: \"\"\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SOE_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return validation error for empty addr", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("SOE_CONFIG", "/nonexistent/soe.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the config file is not valid YAML", func() {
			tmpFile := createTempConfigFile("addr: [unclosed\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SOE_CONFIG", tmpFile)

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an env var cannot be converted", func() {
			_ = os.Setenv("SOE_QUEUE_SIZE", "lots")

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the storage driver is unknown", func() {
			_ = os.Setenv("SOE_STORAGE__DRIVER", "cassandra")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "cassandra")
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SOE_CONFIG",
		"SOE_ADDR",
		"SOE_QUEUE_SIZE",
		"SOE_WORKER_COUNT",
		"SOE_STORAGE__DRIVER",
		"SOE_AI__API_KEY",
		"SOE_AI__TIMEOUT_MS",
		"SOE_WEIGHTS__UPTIME",
		"API_KEY",
		"GEMINI_API_KEY",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "soe-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
