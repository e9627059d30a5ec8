package middleware

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tubebot/core/logger"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the time needed to earn one more event; 0 disables limiting.
	Interval time.Duration
	// Burst is how many events a user may send back to back.
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// Limiter hands out one token bucket per user.
type Limiter struct {
	every rate.Limit
	burst int
	mu    sync.Mutex
	users map[int64]*rate.Limiter
}

// NewLimiter returns a per-user limiter refilling one token each interval.
func NewLimiter(interval time.Duration, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		every: rate.Every(interval),
		burst: burst,
		users: make(map[int64]*rate.Limiter),
	}
}

// Allow consumes a token for userID at now.
func (l *Limiter) Allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.users[userID] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

// Forget drops buckets that are full again at now, so idle users do not pile up.
func (l *Limiter) Forget(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, lim := range l.users {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.users, id)
			n++
		}
	}
	return n
}

func rateLimitKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware returns a middleware that throttles updates per user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	limiter := NewLimiter(opts.Interval, opts.Burst)
	var seen atomic.Uint64
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[rateLimitKind(c.Update())]; skip {
				return next(c)
			}

			now := time.Now()
			if seen.Add(1)%1024 == 0 {
				limiter.Forget(now)
			}

			if !limiter.Allow(user.ID, now) {
				attrs := []any{
					slog.String("event", "tg.rate_limit"),
					slog.String("outcome", "rate_limited"),
					slog.Int64("user_id", user.ID),
				}
				if chat := c.Chat(); chat != nil {
					attrs = append(attrs, slog.Int64("chat_id", chat.ID))
				}
				logger.TG.Warn("rate limit", attrs...)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
