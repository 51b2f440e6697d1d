/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events and crash reports.
// Nothing is sent unless the user opted in and an endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/version"
)

// Config is read from the environment by FromEnv:
//   - CALCANVAS_TELEMETRY_OPT_IN: enable events and crash uploads
//   - CALCANVAS_TELEMETRY_URL: endpoint receiving JSON events
//   - CALCANVAS_CRASH_UPLOAD_URL: endpoint receiving crash reports
//   - CALCANVAS_TELEMETRY_TIMEOUT_MS: request timeout, default 1500
//   - CALCANVAS_TELEMETRY_DEBUG: log send attempts
type Config struct {
	OptIn        bool   `env:"TELEMETRY_OPT_IN"`
	EventsURL    string `env:"TELEMETRY_URL"`
	CrashURL     string `env:"CRASH_UPLOAD_URL"`
	TimeoutMs    int    `env:"TELEMETRY_TIMEOUT_MS" envDefault:"1500"`
	DebugLogging bool   `env:"TELEMETRY_DEBUG"`
}

// ErrDisabled is returned by UploadCrash when uploads are not configured.
var ErrDisabled = errors.New("telemetry disabled")

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CALCANVAS_"}); err != nil {
		return Config{}, fmt.Errorf("telemetry config: %w", err)
	}
	return cfg, nil
}

func (c Config) timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Client queues events on a bounded channel and sends them from one
// goroutine. Events are dropped when the queue is full or a send fails.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	session string
	q       chan map[string]any
	pending sync.WaitGroup
	once    sync.Once
	closed  chan struct{}
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		log:     applog.WithComponent("telemetry"),
		cli:     &http.Client{Timeout: cfg.timeout()},
		session: uuid.NewString(),
		q:       make(chan map[string]any, 64),
		closed:  make(chan struct{}),
	}
	go c.loop()
	return c
}

// Session is the random id attached to every event of this process.
func (c *Client) Session() string { return c.session }

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a small JSON event. props must not carry document content.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"session": c.session,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}
	c.pending.Add(1)
	select {
	case c.q <- payload:
	default:
		c.pending.Done()
	}
}

// Flush waits until queued events are sent or ctx is done.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Close stops the sender. Queued events are discarded.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.send(item)
			c.pending.Done()
		}
	}
}

func (c *Client) send(item map[string]any) {
	buf, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := c.post(context.Background(), c.cfg.EventsURL, "application/json", buf); err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
		return
	}
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry event sent", slog.Any("name", item["name"]))
	}
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Calcanvas-Session", c.session)
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: %s", url, resp.Status)
	}
	return nil
}

// UploadCrash posts a crash report and waits for the response. It returns
// ErrDisabled when the user has not opted in or no URL is set.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return ErrDisabled
	}
	if err := c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		return fmt.Errorf("crash upload: %w", err)
	}
	if c.cfg.DebugLogging {
		c.log.Debug("crash report uploaded", slog.Int("bytes", len(report)))
	}
	return nil
}
