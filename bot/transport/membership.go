package transport

import (
	"context"
	"fmt"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tubebot/bot/gate"
)

// chatAPI is the part of the Bot API membership checks need.
type chatAPI interface {
	ChatByUsername(name string) (*tele.Chat, error)
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// MembershipLookup asks Telegram for a user's status in a public channel.
// Resolved channels are cached; member statuses never are.
type MembershipLookup struct {
	api   chatAPI
	mu    sync.Mutex
	chats map[string]*tele.Chat
}

// NewMembershipLookup wraps a bot, or anything exposing the same chat calls.
func NewMembershipLookup(api chatAPI) *MembershipLookup {
	return &MembershipLookup{api: api, chats: make(map[string]*tele.Chat)}
}

// MemberStatus implements gate.Lookup. The Bot API calls do not take a context;
// the gate bounds them with its own timeout.
func (l *MembershipLookup) MemberStatus(_ context.Context, channel string, userID int64) (gate.Status, error) {
	chat, err := l.chat(channel)
	if err != nil {
		return gate.StatusUnknown, err
	}
	member, err := l.api.ChatMemberOf(chat, &tele.User{ID: userID})
	if err != nil {
		return gate.StatusUnknown, fmt.Errorf("get chat member: %w", err)
	}
	if member == nil {
		return gate.StatusUnknown, fmt.Errorf("get chat member: empty response")
	}
	return statusFromRole(member.Role), nil
}

func (l *MembershipLookup) chat(channel string) (*tele.Chat, error) {
	l.mu.Lock()
	chat, ok := l.chats[channel]
	l.mu.Unlock()
	if ok {
		return chat, nil
	}
	chat, err := l.api.ChatByUsername("@" + channel)
	if err != nil {
		return nil, fmt.Errorf("resolve channel @%s: %w", channel, err)
	}
	l.mu.Lock()
	l.chats[channel] = chat
	l.mu.Unlock()
	return chat, nil
}

func statusFromRole(role tele.MemberStatus) gate.Status {
	switch role {
	case tele.Creator:
		return gate.StatusCreator
	case tele.Administrator:
		return gate.StatusAdministrator
	case tele.Member:
		return gate.StatusMember
	case tele.Restricted:
		return gate.StatusRestricted
	case tele.Left:
		return gate.StatusLeft
	case tele.Kicked:
		return gate.StatusKicked
	}
	return gate.StatusUnknown
}
