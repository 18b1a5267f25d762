package utils

import (
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
)

type LogLevel string

const (
	Info  LogLevel = "INFO"
	Warn  LogLevel = "WARN"
	Error LogLevel = "ERROR"
)

// EmbedSender posts an embed to a channel. *discordgo.Session satisfies it.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func getColor(level LogLevel) int {
	switch level {
	case Info:
		return 3066993 // Green
	case Warn:
		return 15105570 // Orange
	case Error:
		return 15158332 // Red
	default:
		return 3447003 // Blue
	}
}

// LogSink mirrors important events to a Discord log channel. A zero channel
// disables it; every entry is also written to the local log.
type LogSink struct {
	sender    EmbedSender
	channelID string
}

// NewLogSink returns a sink posting to channelID. channelID may be empty.
func NewLogSink(sender EmbedSender, channelID string) *LogSink {
	return &LogSink{sender: sender, channelID: channelID}
}

func (l *LogSink) send(level LogLevel, module, operation, extraInfo string) {
	log.Printf("%s: %s %s %s", module, level, operation, extraInfo)
	if l == nil || l.sender == nil || l.channelID == "" {
		return
	}
	if extraInfo == "" {
		extraInfo = "-"
	}
	embed := &discordgo.MessageEmbed{
		Title: string(level) + " Log",
		Color: getColor(level),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Module", Value: module, Inline: true},
			{Name: "Operation", Value: operation, Inline: true},
			{Name: "Details", Value: extraInfo},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if _, err := l.sender.ChannelMessageSendEmbed(l.channelID, embed); err != nil {
		log.Printf("log-sink: failed to post log entry channel=%s err=%v", l.channelID, err)
	}
}

func (l *LogSink) LogInfo(module, operation, extraInfo string) {
	l.send(Info, module, operation, extraInfo)
}

func (l *LogSink) LogWarn(module, operation, extraInfo string) {
	l.send(Warn, module, operation, extraInfo)
}

func (l *LogSink) LogError(module, operation, extraInfo string) {
	l.send(Error, module, operation, extraInfo)
}
