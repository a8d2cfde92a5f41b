package security

import (
	"net/http/httptest"
	"testing"
)

func TestExtractClientIPDirect(t *testing.T) {
	d := NewDetector()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.7:51234"
	// Forwarded headers from an untrusted peer are ignored.
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	if got := d.ExtractClientIP(r); got != "203.0.113.7" {
		t.Errorf("ExtractClientIP() = %q, want 203.0.113.7", got)
	}
}

func TestExtractClientIPBehindTrustedProxy(t *testing.T) {
	d := NewDetector()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "127.0.0.1:40000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.2")

	if got := d.ExtractClientIP(r); got != "198.51.100.1" {
		t.Errorf("ExtractClientIP() = %q, want first forwarded IP", got)
	}

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-IP", "198.51.100.9")
	if got := d.ExtractClientIP(r); got != "198.51.100.9" {
		t.Errorf("ExtractClientIP() = %q, want X-Real-IP value", got)
	}
}

func TestExtractClientIPRejectsGarbageHeader(t *testing.T) {
	d := NewDetector()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "127.0.0.1:40000"
	r.Header.Set("X-Forwarded-For", "not-an-ip")

	if got := d.ExtractClientIP(r); got != "127.0.0.1" {
		t.Errorf("ExtractClientIP() = %q, want direct IP", got)
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	cases := []struct {
		name   string
		target string
		agent  string
		want   bool
	}{
		{"normal api call", "/api/transactions", "finbook-app/1.0", false},
		{"curl is fine", "/api/posts", "curl/8.0", false},
		{"path traversal", "/uploads/../../etc/passwd", "", true},
		{"wordpress probe", "/wp-admin/setup.php", "", true},
		{"injection in query", "/api/posts?next=javascript:alert(1)", "", true},
		{"scanner agent", "/api/posts", "sqlmap/1.7", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tc.target, nil)
			if tc.agent != "" {
				r.Header.Set("User-Agent", tc.agent)
			}
			if got := d.DetectSuspiciousRequest(r); got != tc.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tc.want)
			}
		})
	}

	if d.SuspiciousCount() == 0 {
		t.Error("suspicious counter never incremented")
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}
	if err := d.AddTrustedProxy("bogus"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}
