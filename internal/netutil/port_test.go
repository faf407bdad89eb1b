package netutil

import (
	"net"
	"reflect"
	"testing"
)

func TestCandidatesExpandsBarePorts(t *testing.T) {
	got := Candidates("0.0.0.0:8190", []string{"8191", "localhost:9000", "99999", "nope"})
	want := []string{"0.0.0.0:8191", "localhost:9000"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Candidates() = %v, want %v", got, want)
	}
	if got := Candidates("bad", []string{"8191"}); !reflect.DeepEqual(got, []string{"127.0.0.1:8191"}) {
		t.Fatalf("Candidates(bad preferred) = %v", got)
	}
}

func TestSelectBindAddrPreferredFree(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	got, err := SelectBindAddr(addr, nil, false)
	if err != nil {
		t.Fatalf("SelectBindAddr() error = %v", err)
	}
	if got != addr {
		t.Fatalf("SelectBindAddr() = %q, want %q", got, addr)
	}
}

func TestSelectBindAddrFallback(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen busy: %v", err)
	}
	defer func() { _ = busy.Close() }()

	free, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen free: %v", err)
	}
	freeAddr := free.Addr().String()
	_ = free.Close()

	if _, err := SelectBindAddr(busy.Addr().String(), []string{freeAddr}, false); err == nil {
		t.Fatalf("SelectBindAddr(no fallback) = nil error; want busy error")
	}

	got, err := SelectBindAddr(busy.Addr().String(), []string{busy.Addr().String(), freeAddr}, true)
	if err != nil {
		t.Fatalf("SelectBindAddr() error = %v", err)
	}
	if got != freeAddr {
		t.Fatalf("SelectBindAddr() = %q, want %q", got, freeAddr)
	}
}
