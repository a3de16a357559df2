package notify

import (
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackNotifier posts reminder notifications to a Slack channel.
type SlackNotifier struct {
	client    slackClient
	channelID string
}

// NewSlackNotifier creates a SlackNotifier with a bot token.
func NewSlackNotifier(botToken, channelID string) *SlackNotifier {
	return &SlackNotifier{
		client:    slackapi.New(botToken),
		channelID: channelID,
	}
}

// newSlackNotifierWithClient injects a mock client for tests.
func newSlackNotifierWithClient(client slackClient, channelID string) *SlackNotifier {
	return &SlackNotifier{client: client, channelID: channelID}
}

// Notify posts the notification as a single channel message.
func (n *SlackNotifier) Notify(subject, body string) error {
	text := fmt.Sprintf("*%s*\n%s", subject, body)
	_, _, err := n.client.PostMessage(n.channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify: slack post to %s: %w", n.channelID, err)
	}
	return nil
}
