// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts requests per key in fixed windows.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	cleanup  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per key per duration.
// The limiter runs a cleanup goroutine until Stop is called.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		cleanup:  duration * 2,
		stopCh:   make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow records a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]

	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{
			count:     1,
			expiresAt: now.Add(l.duration),
		}
		return true
	}

	if w.count >= l.limit {
		return false
	}

	w.count++
	return true
}

// Remaining returns how many requests are left for this key in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || time.Now().After(w.expiresAt) {
		return l.limit
	}

	remaining := l.limit - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the window for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for key, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP first, then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthLimiter guards credential endpoints. Login attempts are limited per IP
// and per email; password-reset codes are limited per email.
type AuthLimiter struct {
	ipLimiter    *Limiter
	emailLimiter *Limiter
	otpLimiter   *Limiter
}

// NewAuthLimiter creates a limiter with the default policy:
// 10 logins per IP per minute, 5 logins per email per 5 minutes,
// 3 reset codes per email per 15 minutes.
func NewAuthLimiter() *AuthLimiter {
	return NewAuthLimiterWithConfig(10, time.Minute, 5, 5*time.Minute, 3, 15*time.Minute)
}

// NewAuthLimiterWithConfig creates an AuthLimiter with custom limits.
func NewAuthLimiterWithConfig(ipLimit int, ipDuration time.Duration, emailLimit int, emailDuration time.Duration, otpLimit int, otpDuration time.Duration) *AuthLimiter {
	return &AuthLimiter{
		ipLimiter:    New(ipLimit, ipDuration),
		emailLimiter: New(emailLimit, emailDuration),
		otpLimiter:   New(otpLimit, otpDuration),
	}
}

// CheckLogin reports whether a login attempt should be allowed, and if not,
// a message suitable for the client.
func (al *AuthLimiter) CheckLogin(r *http.Request, email string) (bool, string) {
	if !al.ipLimiter.Allow(ClientIP(r)) {
		return false, "too many login attempts, please wait a minute before trying again"
	}
	if email != "" && !al.emailLimiter.Allow(emailKey(email)) {
		return false, "too many login attempts for this account, please wait a few minutes"
	}
	return true, ""
}

// ResetLogin clears the per-email login window after a successful login.
func (al *AuthLimiter) ResetLogin(email string) {
	if email != "" {
		al.emailLimiter.Reset(emailKey(email))
	}
}

// AllowOTP reports whether another reset code may be issued for email.
func (al *AuthLimiter) AllowOTP(email string) bool {
	return al.otpLimiter.Allow(emailKey(email))
}

// Stop ends all cleanup goroutines.
func (al *AuthLimiter) Stop() {
	al.ipLimiter.Stop()
	al.emailLimiter.Stop()
	al.otpLimiter.Stop()
}
