// Package notify posts plain-text alerts to an ntfy-style endpoint when a
// chart cycle fails.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/salesboard/internal/controller"
)

// Notifier sends one message per failed cycle.
type Notifier struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	// send is swapped in tests to observe async delivery.
	send func(ctx context.Context, msg string)
}

func NewNotifier(endpoint string, client *http.Client) *Notifier {
	n := &Notifier{endpoint: endpoint, client: client, timeout: 10 * time.Second}
	n.send = n.deliver
	return n
}

// PublishJSON inspects cycle events and alerts on failed results. Other
// payloads are ignored.
func (n *Notifier) PublishJSON(chart string, v any) {
	res, ok := v.(controller.CycleResult)
	if !ok || res.State != controller.StateFailed {
		return
	}
	go n.send(context.Background(), Message(res))
}

// Message formats a failed cycle for humans.
func Message(res controller.CycleResult) string {
	return fmt.Sprintf("chart %s cycle %d failed: %s %s", res.Chart, res.Cycle, res.ErrorCode, res.Error)
}

func (n *Notifier) deliver(ctx context.Context, msg string) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := Send(ctx, n.client, n.endpoint, msg); err != nil {
		slog.Warn("notify send failed", "endpoint", n.endpoint, "error", err)
	}
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", "salesboard")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
