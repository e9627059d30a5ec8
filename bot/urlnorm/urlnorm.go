// Package urlnorm turns the many shapes of a YouTube link into one canonical watch URL.
package urlnorm

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidAddress is returned for any input that does not identify a YouTube video.
var ErrInvalidAddress = errors.New("not a valid video link")

// CanonicalPrefix is the fixed shape every accepted link is rendered into.
const CanonicalPrefix = "https://www.youtube.com/watch?v="

const shortHost = "youtu.be"

var longHosts = map[string]struct{}{
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
}

// pathForms carry the identifier as the segment after the prefix.
var pathForms = []string{"shorts", "embed", "live", "v"}

// Address is a canonical watch URL.
type Address string

// String returns the canonical URL.
func (a Address) String() string {
	return string(a)
}

// VideoID returns the identifier carried by the canonical URL.
func (a Address) VideoID() string {
	return strings.TrimPrefix(string(a), CanonicalPrefix)
}

// Normalize maps raw user text to its canonical Address.
// Query parameters other than the identifier are discarded, playlist context included.
func Normalize(raw string) (Address, error) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.ContainsAny(text, " \t\r\n") {
		return "", ErrInvalidAddress
	}
	if !strings.Contains(text, "://") {
		text = "https://" + text
	}

	u, err := url.Parse(text)
	if err != nil {
		return "", ErrInvalidAddress
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", ErrInvalidAddress
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")

	var id string
	switch {
	case host == shortHost:
		id = firstSegment(u.Path)
	case isLongHost(host):
		id = longFormID(u)
	default:
		return "", ErrInvalidAddress
	}

	if !validID(id) {
		return "", ErrInvalidAddress
	}
	return Address(CanonicalPrefix + id), nil
}

func isLongHost(host string) bool {
	_, ok := longHosts[host]
	return ok
}

func longFormID(u *url.URL) string {
	path := strings.TrimSuffix(u.Path, "/")
	if path == "/watch" {
		return u.Query().Get("v")
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) != 2 {
		return ""
	}
	for _, form := range pathForms {
		if segments[0] == form {
			return segments[1]
		}
	}
	return ""
}

func firstSegment(path string) string {
	path = strings.Trim(path, "/")
	if path == "" || strings.Contains(path, "/") {
		return ""
	}
	return path
}

func validID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
