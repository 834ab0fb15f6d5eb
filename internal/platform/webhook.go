package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"brevitybot/internal/domain"
)

// WebhookMessenger implements app.Messenger over a chat platform's incoming
// webhook. The channel id is appended to the base URL, so one messenger can
// serve every community.
type WebhookMessenger struct {
	client  *http.Client
	baseURL string
}

func NewWebhookMessenger(baseURL string) *WebhookMessenger {
	return &WebhookMessenger{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type webhookEmbed struct {
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Image       *struct {
		URL string `json:"url"`
	} `json:"image,omitempty"`
	Footer *struct {
		Text string `json:"text"`
	} `json:"footer,omitempty"`
}

type webhookMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []webhookEmbed `json:"embeds,omitempty"`
}

type webhookReply struct {
	ID string `json:"id"`
}

func (m *WebhookMessenger) SendMessage(ctx context.Context, channelID, text string) error {
	_, err := m.post(ctx, channelID, webhookMessage{Content: text})
	return err
}

func (m *WebhookMessenger) SendEmbed(ctx context.Context, channelID string, embed domain.Embed) error {
	we := webhookEmbed{
		Title:       embed.Title,
		URL:         embed.URL,
		Description: embed.Body,
	}
	if embed.ImageURL != "" {
		we.Image = &struct {
			URL string `json:"url"`
		}{URL: embed.ImageURL}
	}
	if embed.Footer != "" {
		we.Footer = &struct {
			Text string `json:"text"`
		}{Text: embed.Footer}
	}
	_, err := m.post(ctx, channelID, webhookMessage{Embeds: []webhookEmbed{we}})
	return err
}

func (m *WebhookMessenger) PresentChoice(ctx context.Context, channelID, prompt string, options []string) (string, error) {
	var b strings.Builder
	b.WriteString(prompt)
	for i, option := range options {
		fmt.Fprintf(&b, "\n%c. %s", 'A'+i, option)
	}
	return m.post(ctx, channelID, webhookMessage{Content: b.String()})
}

func (m *WebhookMessenger) post(ctx context.Context, channelID string, msg webhookMessage) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	url := m.baseURL + "/" + channelID + "?wait=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("webhook post: unexpected status %d", resp.StatusCode)
	}

	var reply webhookReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		// Some platforms answer 204 with no body; the handle is optional.
		return "", nil
	}
	return reply.ID, nil
}
