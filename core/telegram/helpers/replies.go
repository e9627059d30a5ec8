package helpers

import (
	tele "gopkg.in/telebot.v4"
)

const (
	repliesKey  = "replies"
	keyboardKey = "kb"
)

// ResetReplies zeroes the reply counters of the current update.
func ResetReplies(c tele.Context) {
	c.Set(repliesKey, 0)
	c.Set(keyboardKey, false)
}

// countReply records one queued reply. Replies are counted when handed to the
// sender, not when Telegram accepts them.
func countReply(c tele.Context, markup *tele.ReplyMarkup) {
	n, _ := c.Get(repliesKey).(int)
	c.Set(repliesKey, n+1)
	if markup != nil {
		c.Set(keyboardKey, true)
	}
}

// Replies reports how many replies the current update produced and whether any carried a keyboard.
func Replies(c tele.Context) (int, bool) {
	n, _ := c.Get(repliesKey).(int)
	kb, _ := c.Get(keyboardKey).(bool)
	return n, kb
}

const outcomeKey = "outcome"

// SetOutcome records a handler outcome for the summary line, overriding the default ok/fail.
func SetOutcome(c tele.Context, outcome string) {
	c.Set(outcomeKey, outcome)
}

// Outcome returns the outcome recorded with SetOutcome, if any.
func Outcome(c tele.Context) string {
	o, _ := c.Get(outcomeKey).(string)
	return o
}
