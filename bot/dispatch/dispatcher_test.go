package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tubebot/bot/extract"
	"github.com/m3rciful/tubebot/bot/history"
	"github.com/m3rciful/tubebot/bot/session"
	"github.com/m3rciful/tubebot/bot/topics"
	"github.com/m3rciful/tubebot/bot/urlnorm"
)

const joinURL = "https://t.me/tubechannel"

type fakeGate struct {
	mu      sync.Mutex
	members map[int64]bool
	calls   int
}

func (g *fakeGate) Check(_ context.Context, userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.members[userID]
}

func (g *fakeGate) set(userID int64, member bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[userID] = member
}

type fakeExtractor struct {
	mu    sync.Mutex
	calls []urlnorm.Address
	fn    func(addr urlnorm.Address, action session.Action) extract.Result
}

func (e *fakeExtractor) Extract(_ context.Context, addr urlnorm.Address, action session.Action) extract.Result {
	e.mu.Lock()
	e.calls = append(e.calls, addr)
	e.mu.Unlock()
	return e.fn(addr, action)
}

type harness struct {
	d        *Dispatcher
	gate     *fakeGate
	sessions *session.Store
	ext      *fakeExtractor
	hist     *history.Memory
}

func newHarness(t *testing.T, ideas topics.CompleterFunc) *harness {
	t.Helper()
	h := &harness{
		gate:     &fakeGate{members: map[int64]bool{1: true, 2: true}},
		sessions: session.NewStore(),
		ext: &fakeExtractor{fn: func(urlnorm.Address, session.Action) extract.Result {
			return extract.Success{Value: "unused"}
		}},
		hist: history.NewMemory(50),
	}
	if ideas == nil {
		ideas = func(context.Context, string, int) (string, error) {
			return "1. A\n2. B\n3. C\n4. D\n5. E", nil
		}
	}
	d, err := New(Options{
		Gate:      h.gate,
		Sessions:  h.sessions,
		Extractor: h.ext,
		Ideas:     topics.NewService(ideas, 0, time.Second),
		History:   h.hist,
		JoinURL:   joinURL,
	})
	require.NoError(t, err)
	h.d = d
	return h
}

func (h *harness) press(userID int64, data string) []Reply {
	return h.d.Handle(context.Background(), Event{Kind: KindButton, UserID: userID, Data: data})
}

func (h *harness) send(userID int64, text string) []Reply {
	return h.d.Handle(context.Background(), Event{Kind: KindText, UserID: userID, Text: text})
}

func (h *harness) start(userID int64) []Reply {
	return h.d.Handle(context.Background(), Event{Kind: KindCommand, UserID: userID, Name: CommandStart})
}

func TestStartNonMemberGetsJoinPrompt(t *testing.T) {
	h := newHarness(t, nil)
	replies := h.start(99)

	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, joinURL)
	require.Len(t, replies[0].Buttons, 2)
	assert.Equal(t, joinURL, replies[0].Buttons[0][0].URL)
	assert.Equal(t, DataRecheck, replies[0].Buttons[1][0].Data)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestStartMemberGetsMenu(t *testing.T) {
	h := newHarness(t, nil)
	replies := h.start(1)

	require.Len(t, replies, 1)
	assert.Equal(t, textMenu, replies[0].Text)
	assert.True(t, replies[0].Markdown)
	assert.False(t, replies[0].Edit)
	assert.Len(t, replies[0].Buttons, 4)
}

func TestTagsScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.ext.fn = func(addr urlnorm.Address, action session.Action) extract.Result {
		assert.Equal(t, session.ActionTags, action)
		return extract.Success{Value: "funny, cats"}
	}

	prompt := h.press(1, ActionData("tags"))
	require.Len(t, prompt, 1)
	assert.True(t, prompt[0].Edit)
	assert.Contains(t, prompt[0].Text, textAskLink)

	replies := h.send(1, "https://youtu.be/abc123?t=10")
	require.Len(t, replies, 2)
	assert.Equal(t, "funny, cats", replies[0].Text)
	assert.Equal(t, textMenuAgain, replies[1].Text)
	assert.Equal(t, []urlnorm.Address{"https://www.youtube.com/watch?v=abc123"}, h.ext.calls)

	_, pending := h.sessions.Pending(1)
	assert.False(t, pending)
}

func TestHashtagsEmptyScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.ext.fn = func(urlnorm.Address, session.Action) extract.Result {
		return extract.Empty{Message: extract.NoHashtagsMessage}
	}

	h.press(1, ActionData("hashtags"))
	replies := h.send(1, "https://www.youtube.com/watch?v=abc123")
	require.NotEmpty(t, replies)
	assert.Equal(t, "No hashtags found.", replies[0].Text)
}

func TestTextWithoutPendingAction(t *testing.T) {
	h := newHarness(t, nil)
	replies := h.send(1, "hello there")

	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "/start")
	assert.Equal(t, 0, h.sessions.Len())
	assert.Empty(t, h.ext.calls)
}

func TestExtractionFailureClearsPending(t *testing.T) {
	h := newHarness(t, nil)
	h.ext.fn = func(urlnorm.Address, session.Action) extract.Result {
		return extract.Failure{Reason: "Video unavailable"}
	}

	h.press(1, ActionData("title"))
	replies := h.send(1, "https://youtu.be/gone123")
	require.NotEmpty(t, replies)
	assert.Contains(t, replies[0].Text, "Video unavailable")

	_, pending := h.sessions.Pending(1)
	assert.False(t, pending)

	again := h.send(1, "https://youtu.be/gone123")
	assert.Equal(t, textNoAction, again[0].Text)
	assert.Len(t, h.ext.calls, 1)

	recent := h.hist.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, history.OutcomeFailure, recent[0].Outcome)
	assert.Equal(t, "Video unavailable", recent[0].Reason)
}

func TestInvalidLinkConsumesPendingWithoutExtraction(t *testing.T) {
	h := newHarness(t, nil)
	h.press(1, ActionData("tags"))

	replies := h.send(1, "https://vimeo.com/123")
	require.NotEmpty(t, replies)
	assert.Equal(t, textInvalidLink, replies[0].Text)
	assert.Empty(t, h.ext.calls)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestTopicIdeas(t *testing.T) {
	var prompt string
	h := newHarness(t, func(_ context.Context, p string, _ int) (string, error) {
		prompt = p
		return "1. Bread\n2. Dough\n3. Crust\n4. Starter\n5. Oven", nil
	})

	h.press(1, ActionData("topics"))
	replies := h.send(1, "sourdough")
	require.Len(t, replies, 2)
	assert.True(t, strings.HasPrefix(replies[0].Text, textIdeasHeader+"sourdough"))
	assert.Contains(t, replies[0].Text, "5. Oven")
	assert.Contains(t, prompt, "sourdough")
	assert.Empty(t, h.ext.calls, "topic ideas never reach the extractor")
}

func TestTopicIdeasEchoesPromptKeyword(t *testing.T) {
	var prompt string
	h := newHarness(t, func(_ context.Context, p string, _ int) (string, error) {
		prompt = p
		return "1. A\n2. B\n3. C\n4. D\n5. E", nil
	})

	keyword := strings.Repeat("k", 250)
	seen := topics.PromptKeyword(keyword)
	require.Len(t, seen, 200)

	h.press(1, ActionData("topics"))
	replies := h.send(1, keyword)
	require.NotEmpty(t, replies)
	assert.Equal(t, textIdeasHeader+seen+"\n\n1. A\n2. B\n3. C\n4. D\n5. E", replies[0].Text)
	assert.Contains(t, prompt, seen)
	assert.NotContains(t, replies[0].Text, keyword)
}

func TestTopicIdeasFailureAlwaysReplies(t *testing.T) {
	h := newHarness(t, func(context.Context, string, int) (string, error) {
		return "", errors.New("quota exceeded")
	})

	h.press(1, ActionData("topics"))
	replies := h.send(1, "sourdough")
	require.NotEmpty(t, replies)
	assert.True(t, strings.HasPrefix(replies[0].Text, textGenFailed))
	assert.Contains(t, replies[0].Text, "quota exceeded")
	assert.Equal(t, 0, h.sessions.Len())
}

func TestGateFailureKeepsPendingAction(t *testing.T) {
	h := newHarness(t, nil)
	h.press(1, ActionData("tags"))
	h.gate.set(1, false)

	replies := h.send(1, "https://youtu.be/abc123")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, joinURL)
	assert.Empty(t, h.ext.calls)

	got, pending := h.sessions.Pending(1)
	require.True(t, pending)
	assert.Equal(t, session.ActionTags, got)
}

func TestGateIsCheckedOnEveryEvent(t *testing.T) {
	h := newHarness(t, nil)
	h.start(1)
	h.press(1, ActionData("title"))
	h.send(1, "not a link")
	assert.Equal(t, 3, h.gate.calls)
}

func TestButtonSelectionRequiresGate(t *testing.T) {
	h := newHarness(t, nil)
	replies := h.press(99, ActionData("tags"))

	require.Len(t, replies, 1)
	assert.True(t, replies[0].Edit)
	assert.Contains(t, replies[0].Text, joinURL)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestMenuButtonClearsPending(t *testing.T) {
	h := newHarness(t, nil)
	h.press(1, ActionData("hashtags"))
	replies := h.press(1, DataMenu)

	require.Len(t, replies, 1)
	assert.Equal(t, textMenu, replies[0].Text)
	assert.True(t, replies[0].Edit)
	assert.Equal(t, 0, h.sessions.Len())

	h.press(2, ActionData("tags"))
	h.gate.set(2, false)
	h.press(2, DataMenu)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestRecheckAfterJoining(t *testing.T) {
	h := newHarness(t, nil)
	first := h.start(5)
	assert.Contains(t, first[0].Text, joinURL)

	h.gate.set(5, true)
	replies := h.press(5, DataRecheck)
	require.Len(t, replies, 1)
	assert.Equal(t, textMenu, replies[0].Text)
}

func TestNewSelectionReplacesPrevious(t *testing.T) {
	h := newHarness(t, nil)
	var got session.Action
	h.ext.fn = func(_ urlnorm.Address, action session.Action) extract.Result {
		got = action
		return extract.Success{Value: "x"}
	}
	h.press(1, ActionData("title"))
	h.press(1, ActionData("tags"))
	h.send(1, "youtu.be/abc123")
	assert.Equal(t, session.ActionTags, got)
}

func TestDownloadStub(t *testing.T) {
	h := newHarness(t, nil)
	replies := h.press(1, DataDownload)
	require.Len(t, replies, 2)
	assert.Equal(t, textDownloadStub, replies[0].Text)
	assert.Equal(t, textMenuAgain, replies[1].Text)
}

func TestUnknownButtonShowsMenu(t *testing.T) {
	h := newHarness(t, nil)
	replies := h.press(1, ActionData("transcode"))
	require.Len(t, replies, 1)
	assert.Equal(t, textMenu, replies[0].Text)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestInterleavedUsersDoNotBleed(t *testing.T) {
	h := newHarness(t, nil)
	h.ext.fn = func(addr urlnorm.Address, action session.Action) extract.Result {
		time.Sleep(time.Millisecond)
		return extract.Success{Value: fmt.Sprintf("%s|%s", action, addr.VideoID())}
	}
	seq := session.NewSequencer()

	type result struct {
		mu   sync.Mutex
		text []string
	}
	results := map[int64]*result{1: {}, 2: {}}
	plan := map[int64]struct {
		action string
		link   string
	}{
		1: {"tags", "https://youtu.be/aaa111"},
		2: {"title", "https://www.youtube.com/watch?v=bbb222&list=PL9"},
	}

	for round := 0; round < 20; round++ {
		for _, uid := range []int64{1, 2} {
			p := plan[uid]
			seq.Submit(uid, func() { h.press(uid, ActionData(p.action)) })
			seq.Submit(uid, func() {
				replies := h.send(uid, p.link)
				r := results[uid]
				r.mu.Lock()
				r.text = append(r.text, replies[0].Text)
				r.mu.Unlock()
			})
		}
	}
	seq.Wait()

	for _, txt := range results[1].text {
		assert.Equal(t, "tags|aaa111", txt)
	}
	for _, txt := range results[2].text {
		assert.Equal(t, "title|bbb222", txt)
	}
	assert.Len(t, results[1].text, 20)
	assert.Len(t, results[2].text, 20)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
