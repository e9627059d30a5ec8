// Package session keeps the per-user pending action and serializes each user's events.
// State is in-memory only and is lost on restart.
package session

import (
	"sync"
	"time"
)

// Action is the operation a user picked from the menu and still owes input for.
type Action string

const (
	// ActionTitle fetches the video's display title.
	ActionTitle Action = "title"
	// ActionTags fetches the video's keyword list.
	ActionTags Action = "tags"
	// ActionHashtags renders the keyword list as hashtags.
	ActionHashtags Action = "hashtags"
	// ActionTopicIdeas asks for five title ideas for a keyword.
	ActionTopicIdeas Action = "topics"
)

// Actions lists every selectable action in menu order.
var Actions = []Action{ActionTitle, ActionTags, ActionHashtags, ActionTopicIdeas}

// ParseAction maps a button payload to an Action.
func ParseAction(s string) (Action, bool) {
	for _, a := range Actions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// NeedsLink reports whether the action expects a video link as input.
func (a Action) NeedsLink() bool {
	return a == ActionTitle || a == ActionTags || a == ActionHashtags
}

// Record is the session of one user.
type Record struct {
	UserID    int64
	Pending   Action
	UpdatedAt time.Time
}

// Store holds at most one Record per user.
type Store struct {
	mu      sync.Mutex
	records map[int64]Record
	now     func() time.Time
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		records: make(map[int64]Record),
		now:     time.Now,
	}
}

// Select records action as the user's pending action, replacing any previous one.
func (s *Store) Select(userID int64, action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = Record{UserID: userID, Pending: action, UpdatedAt: s.now()}
}

// Pending returns the user's pending action without consuming it.
func (s *Store) Pending(userID int64) (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	return rec.Pending, ok
}

// Take returns the user's pending action and clears it. A second call returns false.
func (s *Store) Take(userID int64) (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if ok {
		delete(s.records, userID)
	}
	return rec.Pending, ok
}

// Clear drops the user's pending action, if any.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
}

// Len reports the number of users with a pending action.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Expire clears records not updated since cutoff and returns how many were dropped.
func (s *Store) Expire(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n
}
