package ollama

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/exec"
	"time"
)

const (
	pingTimeout       = 2 * time.Second
	startPollInterval = 500 * time.Millisecond
	startPollAttempts = 10
)

// IsRunning reports whether the backend daemon answers on its base URL.
func (c *Client) IsRunning(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Start launches the backend daemon in the background and polls its base
// URL until it answers. Best effort: the spawned process is not supervised.
func (c *Client) Start(ctx context.Context) error {
	if c.IsRunning(ctx) {
		return nil
	}

	slog.Info("starting ollama daemon")
	cmd := exec.Command("ollama", "serve")
	if err := cmd.Start(); err != nil {
		return errors.Join(errors.New("spawn ollama serve"), err)
	}
	go func() {
		// Reap the child when it exits so it never lingers as a zombie.
		_ = cmd.Wait()
	}()

	for i := 0; i < startPollAttempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(startPollInterval):
		}
		if c.IsRunning(ctx) {
			slog.Info("ollama daemon is up")
			return nil
		}
	}

	return errors.New("ollama did not become ready in time")
}
