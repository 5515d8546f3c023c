package utils

import (
	"regexp"
	"strings"
)

// Control characters other than tab, newline and carriage return
var controlCharPattern = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeSlackText makes member-supplied text safe to embed in a Slack
// message. Control characters are dropped and the three characters Slack
// treats as markup (& < >) are entity-encoded, so the text cannot inject
// mentions such as <!channel> or links.
func EscapeSlackText(text string) string {
	text = controlCharPattern.ReplaceAllString(text, "")
	return mrkdwnEscaper.Replace(text)
}

var channelMentionPattern = regexp.MustCompile(`^<#([CG][A-Z0-9]+)(?:\|([^>]*))?>$`)

// ParseChannelMention extracts the channel id and optional name from a
// Slack channel mention such as <#C0123ABCD|alerts>.
func ParseChannelMention(s string) (id, name string, ok bool) {
	m := channelMentionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
