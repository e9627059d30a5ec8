// Package gate decides whether a user may use the bot, based on membership of one channel.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/tubebot/core/logger"
)

// Status is the membership state reported for a user in a channel.
type Status string

const (
	StatusCreator       Status = "creator"
	StatusAdministrator Status = "administrator"
	StatusMember        Status = "member"
	StatusRestricted    Status = "restricted"
	StatusLeft          Status = "left"
	StatusKicked        Status = "kicked"
	StatusUnknown       Status = "unknown"
)

// Allowed reports whether s satisfies the access policy.
func (s Status) Allowed() bool {
	switch s {
	case StatusMember, StatusAdministrator, StatusCreator:
		return true
	default:
		return false
	}
}

// Lookup reports a user's status in a channel.
type Lookup interface {
	MemberStatus(ctx context.Context, channel string, userID int64) (Status, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, channel string, userID int64) (Status, error)

// MemberStatus calls f.
func (f LookupFunc) MemberStatus(ctx context.Context, channel string, userID int64) (Status, error) {
	return f(ctx, channel, userID)
}

var errLookupPanic = errors.New("membership lookup panicked")

// DefaultTimeout bounds a single membership lookup.
const DefaultTimeout = 3 * time.Second

// Gate checks membership of a single configured channel. It keeps no verdicts between calls.
type Gate struct {
	lookup  Lookup
	channel string
	timeout time.Duration
}

// New constructs a Gate for channel. A non-positive timeout selects DefaultTimeout.
func New(lookup Lookup, channel string, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{lookup: lookup, channel: channel, timeout: timeout}
}

// Channel returns the channel username the gate checks against.
func (g *Gate) Channel() string {
	return g.channel
}

// Check returns true iff the user is a member, administrator or creator of the channel.
// Lookup errors, panics and timeouts all deny access.
func (g *Gate) Check(ctx context.Context, userID int64) bool {
	if g == nil || g.lookup == nil || g.channel == "" {
		return false
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type answer struct {
		status Status
		err    error
	}
	ch := make(chan answer, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- answer{status: StatusUnknown, err: errLookupPanic}
			}
		}()
		st, err := g.lookup.MemberStatus(ctx, g.channel, userID)
		ch <- answer{status: st, err: err}
	}()

	var res answer
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = answer{status: StatusUnknown, err: ctx.Err()}
	}

	allowed := res.err == nil && res.status.Allowed()
	attrs := []slog.Attr{
		slog.String("channel", g.channel),
		slog.String("member_status", string(res.status)),
		slog.Duration("duration", logger.Took(start)),
	}
	if res.err != nil {
		attrs = append(attrs, slog.String("err", res.err.Error()))
		logger.Warn(ctx, "gate", "gate.lookup_failed", append(attrs, slog.String("outcome", "denied"))...)
		return false
	}
	outcome := "ok"
	if !allowed {
		outcome = "denied"
	}
	logger.Debug(ctx, "gate", "gate.checked", append(attrs, slog.String("outcome", outcome))...)
	return allowed
}
