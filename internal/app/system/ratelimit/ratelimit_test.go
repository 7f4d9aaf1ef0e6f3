package ratelimit_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
)

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	l := ratelimit.New(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("4th request should be rejected")
	}
	if l.Remaining("k") != 0 {
		t.Errorf("Remaining: got %d, want 0", l.Remaining("k"))
	}
	if !l.Allow("other") {
		t.Error("a different key should have its own window")
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := ratelimit.New(1, 20*time.Millisecond)
	defer l.Stop()

	if !l.Allow("k") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("k") {
		t.Fatal("second request should be rejected")
	}
	time.Sleep(40 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("request after window should be allowed")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	defer l.Stop()

	l.Allow("k")
	l.Reset("k")
	if !l.Allow("k") {
		t.Error("expected allow after Reset")
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	l.Stop()
	l.Stop()
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{name: "forwarded for", xff: "203.0.113.5, 10.0.0.1", remote: "10.0.0.1:1234", want: "203.0.113.5"},
		{name: "real ip", xri: " 198.51.100.7 ", remote: "10.0.0.1:1234", want: "198.51.100.7"},
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.1", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ratelimit.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthLimiter_PerEmail(t *testing.T) {
	al := ratelimit.NewAuthLimiterWithConfig(100, time.Minute, 2, time.Minute, 1, time.Minute)
	defer al.Stop()

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	for i := 0; i < 2; i++ {
		if ok, _ := al.CheckLogin(r, "A@Example.com"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, msg := al.CheckLogin(r, "a@example.com ")
	if ok {
		t.Fatal("third attempt for the same email should be blocked")
	}
	if msg == "" {
		t.Error("expected a reason when blocked")
	}

	al.ResetLogin("a@example.com")
	if ok, _ := al.CheckLogin(r, "a@example.com"); !ok {
		t.Error("expected allow after ResetLogin")
	}
}

func TestAuthLimiter_OTP(t *testing.T) {
	al := ratelimit.NewAuthLimiterWithConfig(10, time.Minute, 10, time.Minute, 1, time.Minute)
	defer al.Stop()

	if !al.AllowOTP("v@example.com") {
		t.Fatal("first code should be allowed")
	}
	if al.AllowOTP("V@example.com") {
		t.Error("second code within the window should be blocked")
	}
}
