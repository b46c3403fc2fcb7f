package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/okian/rota/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a YAML body.
func (c *HTTPClient) Post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/yaml")
	return c.client.Do(req)
}

// readRun decodes a run body and closes it.
func readRun(resp *http.Response) (runResponse, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return runResponse{}, err
	}
	var run runResponse
	if err := json.Unmarshal(raw, &run); err != nil {
		return runResponse{}, fmt.Errorf("decode run: %w", err)
	}
	return run, nil
}

// submitPlans posts every document with cfg.Workers submitters. Rejected and
// failed submissions are counted, not returned as errors.
func submitPlans(ctx context.Context, cfg *Config, docs [][]byte, stats *Stats) ([]runResponse, error) {
	log := logger.Get()
	log.Info(ctx, "submitting documents", logger.Int("documents", len(docs)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/plans"

	var succeeded, rejected, failed int64
	runs := make([]runResponse, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, doc := range docs {
		g.Go(func() error {
			resp, err := client.Post(gctx, url, doc)
			if err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
			switch resp.StatusCode {
			case http.StatusCreated:
				run, err := readRun(resp)
				if err != nil {
					return fmt.Errorf("document %d: %w", i, err)
				}
				runs[i] = run
				atomic.AddInt64(&succeeded, 1)
			case http.StatusTooManyRequests:
				_ = resp.Body.Close()
				atomic.AddInt64(&rejected, 1)
			default:
				_ = resp.Body.Close()
				atomic.AddInt64(&failed, 1)
			}
			if cfg.Verbose {
				log.Info(gctx, "document submitted", logger.Int("index", i), logger.Int("status", resp.StatusCode))
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Submitted = len(docs)
	stats.Succeeded = int(succeeded)
	stats.Rejected = int(rejected)
	stats.Failed = int(failed)
	if err != nil {
		return nil, err
	}

	out := runs[:0]
	for _, r := range runs {
		if r.ID != "" {
			out = append(out, r)
		}
	}
	return out, nil
}
