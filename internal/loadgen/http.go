package loadgen

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

	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/pkg/logger"
)

// HTTPClient wraps http.Client with a base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// getJSON fetches path and decodes a 200 response into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// postJSON posts body to path and decodes the response into out.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// snapshotBody is the stored snapshot as returned by the API.
type snapshotBody struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Score scoring.Result `json:"score"`
}

// submitSamples posts every sample as a new snapshot with a worker pool and
// records the service's answer on the sample.
func submitSamples(ctx context.Context, cfg *Config, samples []Sample, stats *Stats) {
	log := logger.Get().Named("loadgen")
	log.Info(ctx, "submitting samples", logger.Int("count", len(samples)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	var submitted, saved, failed int64
	jobs := make(chan int, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				s := &samples[i]
				var snap snapshotBody
				status, err := client.postJSON(ctx, "/api/snapshots", map[string]any{
					"name":    s.Name,
					"metrics": s.Metrics,
				}, &snap)
				s.Status = status

				n := atomic.AddInt64(&submitted, 1)
				if err != nil || status != http.StatusCreated {
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "submit failed", logger.String("name", s.Name), logger.Int("status", status), logger.Error(err))
					}
					continue
				}
				atomic.AddInt64(&saved, 1)
				s.ID = snap.ID
				s.Overall = snap.Score.Overall
				s.Scores = snap.Score.Categories

				if cfg.Verbose && n%ProgressEvery == 0 {
					log.Info(ctx, "progress", logger.Int("submitted", int(n)), logger.Int("total", len(samples)))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range samples {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()

	stats.SamplesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.SamplesSaved = int(atomic.LoadInt64(&saved))
	stats.SamplesFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "submission completed",
		logger.Int("saved", stats.SamplesSaved),
		logger.Int("failed", stats.SamplesFailed))
}
