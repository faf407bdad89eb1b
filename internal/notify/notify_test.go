package notify

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/salesboard/internal/chart"
	"github.com/dgnsrekt/salesboard/internal/controller"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     make(http.Header),
	}
}

func TestSendPostsMessage(t *testing.T) {
	var receivedMethod, receivedPath, receivedBody, receivedContentType string
	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			receivedMethod = r.Method
			receivedPath = r.URL.Path
			receivedContentType = r.Header.Get("Content-Type")
			rawBody, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			receivedBody = string(rawBody)
			return okResponse(), nil
		}),
	}

	if err := Send(context.Background(), client, "http://example.com/salesboard", "chart down"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got, want := receivedMethod, http.MethodPost; got != want {
		t.Fatalf("method = %q; want %q", got, want)
	}
	if got, want := receivedPath, "/salesboard"; got != want {
		t.Fatalf("path = %q; want %q", got, want)
	}
	if got, want := receivedContentType, "text/plain"; got != want {
		t.Fatalf("content-type = %q; want %q", got, want)
	}
	if got, want := receivedBody, "chart down"; got != want {
		t.Fatalf("body = %q; want %q", got, want)
	}
}

func TestSendReturnsErrorForServerError(t *testing.T) {
	client := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("server failure")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	err := Send(context.Background(), client, "http://example.com/salesboard", "x")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "status=500") {
		t.Fatalf("error = %q; want to contain status=500", err)
	}
}

func TestSendDisallowsMissingEndpoint(t *testing.T) {
	if err := Send(context.Background(), http.DefaultClient, "", "x"); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestNotifierAlertsOnlyOnFailedResults(t *testing.T) {
	n := NewNotifier("http://example.com/salesboard", nil)
	sent := make(chan string, 4)
	n.send = func(_ context.Context, msg string) { sent <- msg }

	n.PublishJSON("scatter", map[string]any{"state": "fetching"})
	n.PublishJSON("scatter", controller.CycleResult{Chart: "scatter", Cycle: 1, State: controller.StateRendered})
	n.PublishJSON("history", controller.CycleResult{
		Chart:     "history",
		Cycle:     4,
		State:     controller.StateFailed,
		ErrorCode: chart.CodeUnreachable,
		Error:     "status=500",
	})

	select {
	case msg := <-sent:
		if !strings.Contains(msg, "chart history cycle 4 failed") || !strings.Contains(msg, chart.CodeUnreachable) {
			t.Fatalf("message = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification sent for failed cycle")
	}
	select {
	case msg := <-sent:
		t.Fatalf("unexpected extra notification %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
