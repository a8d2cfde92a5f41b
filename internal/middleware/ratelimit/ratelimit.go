// Package ratelimit tracks request counts per client IP over a fixed
// one-minute window.
package ratelimit

import (
	"sync"
	"time"
)

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// Limiter counts requests per client and forgets clients that have gone
// quiet.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window

	perMinute       int
	cleanupInterval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	lastSeen time.Time
	count    int
}

func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	l := &Limiter{
		clients:         make(map[string]*window),
		perMinute:       config.RequestsPerMinute,
		cleanupInterval: config.CleanupInterval,
		stop:            make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether another request from clientIP fits in the current
// window. The window resets one minute after the client's last request.
func (l *Limiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.clients[clientIP]
	if !ok || now.Sub(w.lastSeen) > time.Minute {
		l.clients[clientIP] = &window{lastSeen: now, count: 1}
		return true
	}

	w.count++
	w.lastSeen = now
	return w.count <= l.perMinute
}

// ActiveClients returns how many clients are currently tracked.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop ends the background cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.dropStale()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) dropStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-2 * l.cleanupInterval)
	for ip, w := range l.clients {
		if w.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}
