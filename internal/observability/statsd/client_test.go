package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestQualify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"nmma", "analysis.jobs", "nmma.analysis.jobs"},
		{"", " fit/duration ", "fit_duration"},
		{"nmma", "foo..bar.", "nmma.foo.bar"},
		{"nmma", "  ", ""},
		{"", "multi  space", "multi__space"},
	}
	for _, tt := range tests {
		if got := qualify(tt.prefix, tt.name); got != tt.want {
			t.Fatalf("qualify(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestEncodeTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " nmma "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	if got, want := encodeTags(global, local), "|#env:stage,result:success,service:nmma"; got != want {
		t.Fatalf("encodeTags mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := encodeTags(nil, nil); got != "" {
		t.Fatalf("encodeTags(nil, nil) = %q, want empty", got)
	}
}

func TestClientWritesLines(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{prefix: "nmma", conn: clientConn, globalTags: map[string]string{"env": "test"}}
	if !client.Enabled() {
		t.Fatal("expected client to be enabled with a connection")
	}

	lines := make(chan string, 3)
	go func() {
		buf := make([]byte, 512)
		for range 3 {
			n, err := peerConn.Read(buf)
			if err != nil {
				return
			}
			lines <- string(buf[:n])
		}
	}()

	client.Count("analysis.jobs", 2, map[string]string{"state": "delivered"})
	client.Gauge("analysis.in_flight", 1.5, nil)
	client.Timing("fit.duration", 1500*time.Microsecond, nil)

	want := []string{
		"nmma.analysis.jobs:2|c|#env:test,state:delivered",
		"nmma.analysis.in_flight:1.5|g|#env:test",
		"nmma.fit.duration:1.5|ms|#env:test",
	}
	for _, w := range want {
		select {
		case got := <-lines:
			if got != w {
				t.Fatalf("got %q, want %q", got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client disabled after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}

func TestNilAndDisabledClient(t *testing.T) {
	t.Parallel()

	var nilClient *Client
	nilClient.Count("x", 1, nil)
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is blank")
	}
	client.Gauge("ignored", 1, nil)
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil || !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("expected dial error, got %v", err)
	}
}
