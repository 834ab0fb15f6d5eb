package platform

import (
	"context"

	"brevitybot/internal/domain"
	"go.uber.org/zap"
)

// LogMessenger writes outbound messages to the log instead of a chat
// platform. Development fallback when no webhook is configured.
type LogMessenger struct {
	log *zap.Logger
}

func NewLogMessenger(log *zap.Logger) *LogMessenger {
	return &LogMessenger{log: log}
}

func (m *LogMessenger) SendMessage(_ context.Context, channelID, text string) error {
	m.log.Info("send message", zap.String("channel", channelID), zap.String("text", text))
	return nil
}

func (m *LogMessenger) SendEmbed(_ context.Context, channelID string, embed domain.Embed) error {
	m.log.Info("send embed",
		zap.String("channel", channelID),
		zap.String("title", embed.Title),
		zap.String("body", embed.Body))
	return nil
}

func (m *LogMessenger) PresentChoice(_ context.Context, channelID, prompt string, options []string) (string, error) {
	m.log.Info("present choice",
		zap.String("channel", channelID),
		zap.String("prompt", prompt),
		zap.Strings("options", options))
	return "", nil
}
