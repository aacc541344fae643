package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/tablemap-go/internal/metrics"
	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// ErrStreamUnsupported is returned by JobEvents when the backend does not
// expose the websocket progress stream; callers fall back to polling.
var ErrStreamUnsupported = &Error{
	Kind:    KindNotFound,
	Message: "job event stream not available",
}

// JobEvents streams live job snapshots over a websocket until the job
// reaches a terminal state. The onUpdate callback is invoked for every
// snapshot, terminal one included. Return an error from onUpdate to abort.
func (c *Client) JobEvents(ctx context.Context, jobID string, onUpdate func(job *models.ImportJob) error) (err error) {
	start := time.Now()
	defer func() { c.record(metrics.OpStream, start, err != nil) }()

	wsEndpoint := c.endpoint
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint + "/import-jobs/" + url.PathEscape(jobID) + "/events")
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	headers := map[string][]string{}
	if c.token != "" {
		headers["Authorization"] = []string{"Bearer " + c.token}
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil && (resp.StatusCode == 404 || resp.StatusCode == 426) {
			return ErrStreamUnsupported
		}
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	// Track connection state for proper cleanup
	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	// Handle context cancellation in a separate goroutine
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var job models.ImportJob
		if err := conn.ReadJSON(&job); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}

		if err := onUpdate(&job); err != nil {
			return err
		}

		if job.Status.Terminal() {
			return nil
		}
	}
}
