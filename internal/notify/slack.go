package notify

import (
	"context"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackAdapter posts announcements to one Slack channel.
type SlackAdapter struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlackAdapter creates a Slack notify adapter.
// botToken is the Bot User OAuth Token (xoxb-...), channel the target
// channel ID or name.
func NewSlackAdapter(botToken, channel string, logger *zap.Logger) *SlackAdapter {
	return &SlackAdapter{
		client:  slack.New(botToken),
		channel: channel,
		logger:  logger,
	}
}

func (a *SlackAdapter) Platform() string { return "slack" }

// Announce posts the text to the configured channel.
func (a *SlackAdapter) Announce(ctx context.Context, text string) error {
	_, ts, err := a.client.PostMessageContext(ctx, a.channel,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return err
	}
	a.logger.Debug("slack announcement posted",
		zap.String("channel", a.channel), zap.String("ts", ts))
	return nil
}

func (a *SlackAdapter) Close() error { return nil }
