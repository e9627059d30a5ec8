package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(status Status, err error) LookupFunc {
	return func(context.Context, string, int64) (Status, error) {
		return status, err
	}
}

func TestCheckAllowsMembers(t *testing.T) {
	for _, st := range []Status{StatusMember, StatusAdministrator, StatusCreator} {
		g := New(fixed(st, nil), "tubechannel", time.Second)
		assert.True(t, g.Check(context.Background(), 1), st)
	}
}

func TestCheckDeniesNonMembers(t *testing.T) {
	for _, st := range []Status{StatusLeft, StatusKicked, StatusRestricted, StatusUnknown, Status("")} {
		g := New(fixed(st, nil), "tubechannel", time.Second)
		assert.False(t, g.Check(context.Background(), 1), st)
	}
}

func TestCheckFailsClosedOnError(t *testing.T) {
	errs := []error{
		errors.New("network unreachable"),
		errors.New("telegram: user not found (400)"),
		context.Canceled,
	}
	for _, err := range errs {
		g := New(fixed(StatusMember, err), "tubechannel", time.Second)
		assert.False(t, g.Check(context.Background(), 1), err.Error())
	}
}

func TestCheckFailsClosedOnPanic(t *testing.T) {
	g := New(LookupFunc(func(context.Context, string, int64) (Status, error) {
		panic("malformed response")
	}), "tubechannel", time.Second)
	assert.False(t, g.Check(context.Background(), 1))
}

func TestCheckFailsClosedOnTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	g := New(LookupFunc(func(context.Context, string, int64) (Status, error) {
		<-release
		return StatusMember, nil
	}), "tubechannel", 20*time.Millisecond)

	start := time.Now()
	assert.False(t, g.Check(context.Background(), 1))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCheckAsksEveryTime(t *testing.T) {
	calls := 0
	status := StatusMember
	g := New(LookupFunc(func(_ context.Context, channel string, userID int64) (Status, error) {
		calls++
		assert.Equal(t, "tubechannel", channel)
		assert.Equal(t, int64(42), userID)
		return status, nil
	}), "tubechannel", 0)

	require.True(t, g.Check(context.Background(), 42))
	status = StatusLeft
	assert.False(t, g.Check(context.Background(), 42))
	assert.Equal(t, 2, calls)
}

func TestCheckWithoutLookupDenies(t *testing.T) {
	var g *Gate
	assert.False(t, g.Check(context.Background(), 1))
	assert.False(t, New(nil, "tubechannel", 0).Check(context.Background(), 1))
}
