package notify

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier sends reminder notifications to a Discord channel.
type DiscordNotifier struct {
	session   discordSession
	channelID string
}

// NewDiscordNotifier creates a DiscordNotifier with a bot token. Sending
// plain channel messages needs no gateway connection, so the session is
// used purely as a REST client.
func NewDiscordNotifier(botToken, channelID string) (*DiscordNotifier, error) {
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &DiscordNotifier{session: s, channelID: channelID}, nil
}

// newDiscordNotifierWithSession injects a mock session for tests.
func newDiscordNotifierWithSession(s discordSession, channelID string) *DiscordNotifier {
	return &DiscordNotifier{session: s, channelID: channelID}
}

// Notify sends the notification as a single channel message.
func (n *DiscordNotifier) Notify(subject, body string) error {
	content := fmt.Sprintf("**%s**\n%s", subject, body)
	if _, err := n.session.ChannelMessageSend(n.channelID, content); err != nil {
		return fmt.Errorf("notify: discord send to %s: %w", n.channelID, err)
	}
	return nil
}
