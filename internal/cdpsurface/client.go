// Package cdpsurface drives the dashboard page in a browser tab over the
// Chrome DevTools Protocol. The page is both the plotting surface (Plotly)
// and the source of the filter inputs.
package cdpsurface

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/salesboard/internal/chart"
)

// Client owns one tab showing the dashboard page.
type Client struct {
	cdpURL      string
	pageURL     string
	evalTimeout time.Duration

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// Probe describes the plotting engine state of the page.
type Probe struct {
	Plotly  bool   `json:"plotly"`
	Version string `json:"version"`
	Ready   string `json:"ready"`
}

func NewClient(cdpURL, pageURL string, evalTimeout time.Duration) *Client {
	if evalTimeout <= 0 {
		evalTimeout = 10 * time.Second
	}
	return &Client{
		cdpURL:      strings.TrimRight(cdpURL, "/"),
		pageURL:     pageURL,
		evalTimeout: evalTimeout,
	}
}

// Connect opens a tab on the remote browser and loads the dashboard page.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cdpURL == "" {
		return chart.NewError(chart.CodeSurfaceUnavailable, "missing CDP URL", nil)
	}
	slog.Info("cdpsurface connect start", "cdp_url", c.cdpURL, "page_url", c.pageURL)
	c.cleanupLocked()

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), c.cdpURL)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// The first Run allocates the tab and binds its lifetime to tabCtx.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return chart.NewError(chart.CodeSurfaceUnavailable, "open tab failed", err)
	}
	c.allocCancel, c.tabCtx, c.tabCancel = allocCancel, tabCtx, tabCancel

	runCtx, cancel := c.runContextLocked(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(c.pageURL), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		c.cleanupLocked()
		return chart.NewError(chart.CodeSurfaceUnavailable, "load dashboard page failed", err)
	}

	slog.Info("cdpsurface connect ok", "page_url", c.pageURL)
	return nil
}

// Close closes the tab and detaches from the browser.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
	return nil
}

func (c *Client) cleanupLocked() {
	if c.tabCancel != nil {
		c.tabCancel()
		c.tabCancel = nil
	}
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
	}
	c.tabCtx = nil
}

// Draw replaces the chart shown in target with fig.
func (c *Client) Draw(ctx context.Context, target chart.Target, fig chart.Figure) error {
	var out struct {
		Target string `json:"target"`
		Traces int    `json:"traces"`
	}
	if err := c.eval(ctx, jsDraw(target, fig), true, &out); err != nil {
		return err
	}
	slog.Debug("cdpsurface draw", "target", out.Target, "traces", out.Traces)
	return nil
}

// Selection reads the current values of the given page inputs.
func (c *Client) Selection(ctx context.Context, ids chart.InputIDs) (chart.FilterSelection, error) {
	var sel chart.FilterSelection
	if ids.Empty() {
		return sel, nil
	}
	if err := c.eval(ctx, jsReadInputs(ids), false, &sel); err != nil {
		return chart.FilterSelection{}, err
	}
	return sel, nil
}

// Capture returns a PNG screenshot of the target region.
func (c *Client) Capture(ctx context.Context, target chart.Target) ([]byte, error) {
	runCtx, cancel, err := c.runContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.Screenshot("#"+string(target), &buf, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return nil, c.wrapRunErr(runCtx, "capture "+string(target), err)
	}
	return buf, nil
}

// Probe reports whether Plotly is loaded on the page.
func (c *Client) Probe(ctx context.Context) (Probe, error) {
	var out Probe
	if err := c.eval(ctx, jsProbe(), false, &out); err != nil {
		return Probe{}, err
	}
	return out, nil
}

func (c *Client) eval(ctx context.Context, js string, await bool, out any) error {
	runCtx, cancel, err := c.runContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	var raw string
	action := chromedp.Evaluate(js, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(await).WithReturnByValue(true)
	})
	if err := chromedp.Run(runCtx, action); err != nil {
		slog.Warn("cdpsurface eval failed", "page_url", c.pageURL, "error", err)
		return c.wrapRunErr(runCtx, "evaluation failed", err)
	}
	return decodeEnvelope(raw, out)
}

func (c *Client) runContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tabCtx == nil {
		return nil, nil, chart.NewError(chart.CodeSurfaceUnavailable, "browser tab not connected", nil)
	}
	runCtx, cancel := c.runContextLocked(ctx)
	return runCtx, cancel, nil
}

// runContextLocked derives a per-call context from the tab that also ends
// when the caller's context does.
func (c *Client) runContextLocked(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(c.tabCtx, c.evalTimeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (c *Client) wrapRunErr(runCtx context.Context, msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return chart.NewError(chart.CodeSurfaceUnavailable, msg+": timed out", err)
	}
	return chart.NewError(chart.CodeSurfaceUnavailable, msg, err)
}
