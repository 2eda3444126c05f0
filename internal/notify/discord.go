package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordAdapter posts announcements to one Discord channel.
type DiscordAdapter struct {
	session   *discordgo.Session
	channelID string
	logger    *zap.Logger
}

// NewDiscordAdapter creates a Discord notify adapter and opens the session.
func NewDiscordAdapter(botToken, channelID string, logger *zap.Logger) (*DiscordAdapter, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord open: %w", err)
	}
	logger.Info("discord adapter connected")
	return &DiscordAdapter{session: session, channelID: channelID, logger: logger}, nil
}

func (a *DiscordAdapter) Platform() string { return "discord" }

// Announce posts the text to the configured channel. Slack-style bold
// markers are converted to Discord's.
func (a *DiscordAdapter) Announce(ctx context.Context, text string) error {
	text = strings.ReplaceAll(text, "*", "**")
	_, err := a.session.ChannelMessageSend(a.channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func (a *DiscordAdapter) Close() error {
	return a.session.Close()
}
