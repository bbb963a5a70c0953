package auth

import (
	"strings"
	"sync"
	"time"
)

// failureWindow tracks the failed logins of one email inside the lockout
// window. The window opens with the first failure.
type failureWindow struct {
	count     int
	firstSeen time.Time
}

// LockoutTracker counts failed logins per email and locks an email once it
// reaches the attempt limit within the window.
type LockoutTracker struct {
	mu          sync.RWMutex
	failures    map[string]*failureWindow
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewLockoutTracker creates a tracker. Non-positive arguments fall back to
// 5 attempts in 15 minutes.
func NewLockoutTracker(maxAttempts int, window time.Duration) *LockoutTracker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LockoutTracker{
		failures:    make(map[string]*failureWindow),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Locked reports whether email has used up its attempts.
func (t *LockoutTracker) Locked(email string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fw, ok := t.failures[lockoutKey(email)]
	if !ok || t.expired(fw) {
		return false
	}
	return fw.count >= t.maxAttempts
}

// RecordFailure counts one failed login and returns the failures inside the
// current window.
func (t *LockoutTracker) RecordFailure(email string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := lockoutKey(email)
	fw, ok := t.failures[key]
	if !ok || t.expired(fw) {
		fw = &failureWindow{firstSeen: t.now()}
		t.failures[key] = fw
	}
	fw.count++
	return fw.count
}

// Clear forgets the failures of email, after a successful login.
func (t *LockoutTracker) Clear(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, lockoutKey(email))
}

// Cleanup removes expired windows.
func (t *LockoutTracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, fw := range t.failures {
		if t.expired(fw) {
			delete(t.failures, k)
		}
	}
}

func (t *LockoutTracker) expired(fw *failureWindow) bool {
	return t.now().After(fw.firstSeen.Add(t.window))
}

func lockoutKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
