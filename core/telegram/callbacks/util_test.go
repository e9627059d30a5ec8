package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		cb           *tele.Callback
		key, payload string
	}{
		{nil, "", ""},
		{&tele.Callback{Data: "\fact|tags"}, "act", "tags"},
		{&tele.Callback{Data: "menu"}, "menu", ""},
		{&tele.Callback{Data: "recheck"}, "recheck", ""},
		{&tele.Callback{Unique: "act", Data: "hashtags"}, "act", "hashtags"},
	}
	for _, tc := range cases {
		key, payload := Parse(tc.cb)
		assert.Equal(t, tc.key, key)
		assert.Equal(t, tc.payload, payload)
	}
}

func TestParseKeepsDispatchDataRoundTrip(t *testing.T) {
	cb := &tele.Callback{Data: "\fact|tags"}
	key, payload := Parse(cb)
	assert.Equal(t, "act|tags", key+"|"+payload)
}
