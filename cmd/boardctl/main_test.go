package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

func newBackend(t *testing.T, routes map[string]func(w http.ResponseWriter)) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{method: r.Method, path: r.URL.RequestURI(), body: string(b)})
		mu.Unlock()
		h, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":404,"title":"Not Found","detail":"unknown chart pie"}`))
			return
		}
		h(w)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRefreshPostsToChart(t *testing.T) {
	srv, reqs := newBackend(t, map[string]func(http.ResponseWriter){
		"POST /api/v1/charts/scatter/refresh": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"chart":"scatter","state":"rendered","cycle":2}`))
		},
	})
	out, err := run(t, "--addr", srv.URL+"/", "refresh", "scatter")
	if err != nil {
		t.Fatalf("refresh error = %v", err)
	}
	if len(reqs()) != 1 || reqs()[0].method != http.MethodPost {
		t.Fatalf("requests = %+v", reqs())
	}
	if !strings.Contains(out, `"state": "rendered"`) {
		t.Fatalf("output = %q", out)
	}
}

func TestErrorDetailIsReturned(t *testing.T) {
	srv, _ := newBackend(t, nil)
	_, err := run(t, "--addr", srv.URL, "refresh", "pie")
	if err == nil || !strings.Contains(err.Error(), "404 unknown chart pie") {
		t.Fatalf("error = %v; want problem detail", err)
	}
}

func TestInputsSetSendsValues(t *testing.T) {
	srv, reqs := newBackend(t, map[string]func(http.ResponseWriter){
		"PUT /api/v1/inputs": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"values":{"company_dropdown":"Acme"}}`))
		},
	})
	if _, err := run(t, "--addr", srv.URL, "inputs", "set", "company_dropdown=Acme", "start_year="); err != nil {
		t.Fatalf("inputs set error = %v", err)
	}
	var body struct {
		Values map[string]string `json:"values"`
	}
	if err := json.Unmarshal([]byte(reqs()[0].body), &body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if body.Values["company_dropdown"] != "Acme" {
		t.Fatalf("values = %v", body.Values)
	}
	if v, ok := body.Values["start_year"]; !ok || v != "" {
		t.Fatalf("start_year = %q/%v; want explicit empty value", v, ok)
	}
}

func TestSnapshotDownloadsImage(t *testing.T) {
	srv, reqs := newBackend(t, map[string]func(http.ResponseWriter){
		"POST /api/v1/charts/history/snapshots": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"snapshot":{"id":"abc"},"url":"/api/v1/snapshots/abc/image"}`))
		},
		"GET /api/v1/snapshots/abc/image": func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG"))
		},
	})
	dest := filepath.Join(t.TempDir(), "history.png")
	if _, err := run(t, "--addr", srv.URL, "snapshot", "history", "--notes", "q3", "-o", dest); err != nil {
		t.Fatalf("snapshot error = %v", err)
	}
	if !strings.Contains(reqs()[0].body, `"notes":"q3"`) {
		t.Fatalf("snapshot body = %q", reqs()[0].body)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "\x89PNG" {
		t.Fatalf("downloaded = %q, %v", data, err)
	}
}

func TestSnapshotListFilter(t *testing.T) {
	srv, reqs := newBackend(t, map[string]func(http.ResponseWriter){
		"GET /api/v1/snapshots": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"snapshots":[]}`))
		},
	})
	if _, err := run(t, "--addr", srv.URL, "snapshot", "list", "--chart", "scatter"); err != nil {
		t.Fatalf("snapshot list error = %v", err)
	}
	if reqs()[0].path != "/api/v1/snapshots?chart=scatter" {
		t.Fatalf("path = %q", reqs()[0].path)
	}
}

func TestParseAssignmentsRejectsMissingID(t *testing.T) {
	for _, arg := range []string{"novalue", "=x"} {
		if _, err := parseAssignments([]string{arg}); err == nil {
			t.Fatalf("parseAssignments(%q) succeeded; want error", arg)
		}
	}
}
