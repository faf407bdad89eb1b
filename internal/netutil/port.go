// Package netutil picks the listen address for the control API.
package netutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
)

// Candidates turns a fallback list into listen addresses. Bare ports take
// the host of preferred; host:port entries are kept; anything else is skipped.
func Candidates(preferred string, items []string) []string {
	host, _, err := net.SplitHostPort(preferred)
	if err != nil {
		host = "127.0.0.1"
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if port, err := strconv.Atoi(item); err == nil {
			if port <= 0 || port > 65535 {
				slog.Warn("netutil skipping port candidate", "candidate", item)
				continue
			}
			out = append(out, net.JoinHostPort(host, item))
			continue
		}
		if _, _, err := net.SplitHostPort(item); err != nil {
			slog.Warn("netutil skipping port candidate", "candidate", item, "error", err)
			continue
		}
		out = append(out, item)
	}
	return out
}

// SelectBindAddr picks an available bind address: preferred first, then the
// candidates in order when autoFallback is set.
func SelectBindAddr(preferred string, candidates []string, autoFallback bool) (string, error) {
	if preferred != "" {
		if IsAddrAvailable(preferred) {
			return preferred, nil
		}
		if !autoFallback {
			return "", fmt.Errorf("preferred bind address in use: %s", preferred)
		}
		slog.Warn("netutil preferred address busy", "addr", preferred)
	}

	for _, addr := range candidates {
		if IsAddrAvailable(addr) {
			return addr, nil
		}
	}
	return "", errors.New("no available bind address for the dashboard")
}

// IsAddrAvailable reports whether addr can be listened on right now.
func IsAddrAvailable(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
