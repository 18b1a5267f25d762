package utils

import (
	"strings"
	"unicode"
)

const (
	// MaxChannelNameLength is the longest slug Slugify returns.
	MaxChannelNameLength = 90
	// MaxNicknameLength is the platform limit for member nicknames.
	MaxNicknameLength = 32

	fallbackChannelName = "personal"
	fallbackNickname    = " "
)

func isHangul(r rune) bool {
	return (r >= 0xAC00 && r <= 0xD7A3) || (r >= 0x3131 && r <= 0x318E)
}

func isSlugRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || isHangul(r)
}

// Slugify turns free text into a channel name: lower-cased, whitespace runs
// become a single hyphen, anything outside [a-z0-9_-] and Hangul is dropped,
// repeated hyphens are collapsed and the result is capped at
// MaxChannelNameLength runes. Empty results fall back to "personal".
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := false
	pendingSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if !isSlugRune(r) {
			continue
		}
		if pendingSpace {
			pendingSpace = false
			if !lastHyphen && b.Len() > 0 {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
		if r == '-' {
			if lastHyphen {
				continue
			}
			lastHyphen = true
		} else {
			lastHyphen = false
		}
		b.WriteRune(r)
	}

	slug := strings.Trim(b.String(), "-")
	if runes := []rune(slug); len(runes) > MaxChannelNameLength {
		slug = strings.TrimRight(string(runes[:MaxChannelNameLength]), "-")
	}
	if slug == "" {
		return fallbackChannelName
	}
	return slug
}

var broadcastMentions = strings.NewReplacer("@everyone", "everyone", "@here", "here")

// SanitizeNick prepares free text for use as a member nickname. Broadcast
// mentions are defused, surrounding whitespace is trimmed and the result is
// capped at MaxNicknameLength runes. An empty result becomes a single space,
// which is applied as-is since the platform rejects an empty nickname.
func SanitizeNick(s string) string {
	nick := strings.TrimSpace(s)
	for strings.Contains(nick, "@everyone") || strings.Contains(nick, "@here") {
		nick = broadcastMentions.Replace(nick)
	}
	if runes := []rune(nick); len(runes) > MaxNicknameLength {
		nick = string(runes[:MaxNicknameLength])
	}
	nick = strings.TrimSpace(nick)
	if nick == "" {
		return fallbackNickname
	}
	return nick
}
