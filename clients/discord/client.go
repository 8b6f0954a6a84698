package discord

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bwmarrin/discordgo"

	"rostersync/clients"
	"rostersync/core"
)

// DiscordClient implements the clients.FollowupSender interface using discordgo
type DiscordClient struct {
	session *discordgo.Session
}

// NewDiscordClient creates a followup client. Interaction webhooks are addressed
// by application ID and interaction token, so no bot token is needed. When apiBase
// is set, requests are sent to that scheme and host instead of discord.com.
func NewDiscordClient(httpClient *http.Client, apiBase string) (clients.FollowupSender, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	client := *httpClient
	if apiBase != "" {
		target, err := url.Parse(apiBase)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("invalid Discord API base %q: %w", apiBase, core.ErrConfiguration)
		}
		client.Transport = &rewriteHostTransport{target: target, next: transportOrDefault(httpClient.Transport)}
	}

	session.Client = &client
	// Redelivery is owned by the task queue, so discordgo must not retry on its own
	session.MaxRestRetries = 0
	session.ShouldRetryOnRateLimit = false

	return &DiscordClient{session: session}, nil
}

// SendFollowup posts content as a followup message to a deferred interaction
func (c *DiscordClient) SendFollowup(ctx context.Context, applicationID, interactionToken, content string) error {
	interaction := &discordgo.Interaction{
		AppID: applicationID,
		Token: interactionToken,
	}

	_, err := c.session.FollowupMessageCreate(interaction, false, &discordgo.WebhookParams{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send followup for application %s: %w: %w", applicationID, core.ErrUpstream, err)
	}
	return nil
}

type rewriteHostTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (t *rewriteHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rewritten := req.Clone(req.Context())
	rewritten.URL.Scheme = t.target.Scheme
	rewritten.URL.Host = t.target.Host
	rewritten.Host = t.target.Host
	return t.next.RoundTrip(rewritten)
}

func transportOrDefault(transport http.RoundTripper) http.RoundTripper {
	if transport == nil {
		return http.DefaultTransport
	}
	return transport
}
