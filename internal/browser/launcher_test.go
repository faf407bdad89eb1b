package browser

import (
	"context"
	"net"
	"slices"
	"testing"
)

func TestArgsOpenDashboardWithRemoteDebugging(t *testing.T) {
	l := NewLauncher(Config{
		CDPAddress: "127.0.0.1",
		CDPPort:    9220,
		StartURL:   "http://127.0.0.1:8190/",
		ProfileDir: "/tmp/profile",
		Headless:   true,
	})
	args := l.args()
	for _, want := range []string{"--remote-debugging-port=9220", "--user-data-dir=/tmp/profile", "--headless=new", "--window-size=1600,1000"} {
		if !slices.Contains(args, want) {
			t.Fatalf("args() = %v; missing %s", args, want)
		}
	}
	if args[len(args)-1] != "http://127.0.0.1:8190/" {
		t.Fatalf("args() last = %q; want start URL", args[len(args)-1])
	}

	windowed := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: 9220})
	if slices.Contains(windowed.args(), "--headless=new") {
		t.Fatalf("windowed launcher passes --headless")
	}
}

func TestLaunchSkipsWhenCDPPortBusy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: port, ProfileDir: t.TempDir()})
	if err := l.Launch(context.Background()); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if l.Running() {
		t.Fatalf("Running() = true; want false when a browser already listens")
	}
	l.Stop()
}
