package domain

import (
	"regexp"
	"strings"
	"time"
)

// RoomID identifies a Chatwork room
type RoomID int64

// AccountID identifies a Chatwork account
type AccountID int64

// MessageID identifies a message within a room. Ids grow monotonically per room.
type MessageID int64

// Message represents a chat message entity
type Message struct {
	ID              MessageID
	RoomID          RoomID
	SenderAccountID AccountID
	SenderName      string
	Body            string
	SendTime        time.Time
}

// Command is an in-chat admin command
type Command string

const (
	CommandNone    Command = ""
	CommandEnable  Command = "/command OK"
	CommandDisable Command = "/command NO"
)

// BroadcastTag is the literal tag that addresses every room member
const BroadcastTag = "[toall]"

var (
	stampPattern   = regexp.MustCompile(`\[STAMP:\d+\]`)
	mentionPattern = regexp.MustCompile(`\[To:\d+\]`)
)

// DefaultEmoticons is the Chatwork emoticon list matched as plain substrings
var DefaultEmoticons = []string{
	":)", ":(", ":D", "8-)", ":o", ";)", ";(", "(sweat)", ":|", ":*", ":p",
	"(blush)", ":^)", "|-)", "(inlove)", "]:)", "(talk)", "(yawn)", "(puke)",
	"8-|", "(emo)", ":#)", "(nod)", "(shake)", "(^^;)", "(whew)", "(clap)",
	"(bow)", "(roger)", "(flex)", "(dance)", ":/", "(gogo)", "(think)",
	"(please)", "(quick)", "(anger)", "(devil)", "(lightbulb)", "(*)", "(h)",
	"(F)", "(cracker)", "(eat)", "(^)", "(coffee)", "(beer)", "(handshake)", "(y)",
}

// ParseCommand returns the command carried by the message body, or CommandNone
func (m *Message) ParseCommand() Command {
	switch strings.TrimSpace(m.Body) {
	case string(CommandEnable):
		return CommandEnable
	case string(CommandDisable):
		return CommandDisable
	}
	return CommandNone
}

// HasBroadcast checks if the message mentions the whole room
func (m *Message) HasBroadcast() bool {
	return strings.Contains(m.Body, BroadcastTag)
}

// CountStamps counts emoticon tokens and [STAMP:n] tags in body.
// Every token is counted independently, so ":)" inside "]:)" counts for both.
func CountStamps(body string, emoticons []string) int {
	count := 0
	for _, e := range emoticons {
		if e == "" {
			continue
		}
		count += strings.Count(body, e)
	}
	return count + len(stampPattern.FindAllStringIndex(body, -1))
}

// CountMentions counts personal [To:id] mentions in body
func CountMentions(body string) int {
	return len(mentionPattern.FindAllStringIndex(body, -1))
}
