package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"brandhub/internal/utils/logger"
)

// PostmarkClient delivers templated email through a Postmark-compatible
// HTTP API.
type PostmarkClient struct {
	apiURL string
	token  string
	from   string
	stream string
	client *http.Client
	logger *logger.Logger
}

func NewPostmarkClient(apiURL, token, from string) *PostmarkClient {
	return &PostmarkClient{
		apiURL: apiURL,
		token:  token,
		from:   from,
		stream: "outbound",
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger.New("Email"),
	}
}

type postmarkRequest struct {
	From          string                 `json:"From"`
	To            string                 `json:"To"`
	TemplateAlias string                 `json:"TemplateAlias"`
	TemplateModel map[string]interface{} `json:"TemplateModel"`
	Tag           string                 `json:"Tag,omitempty"`
	MessageStream string                 `json:"MessageStream"`
}

type postmarkResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

// Deliver sends email synchronously.
func (p *PostmarkClient) Deliver(ctx context.Context, email Email) error {
	if p.token == "" {
		p.logger.Warn("Email API token not configured, dropping %s to %s", email.TemplateAlias, email.To)
		return nil
	}

	body, err := json.Marshal(postmarkRequest{
		From:          p.from,
		To:            email.To,
		TemplateAlias: email.TemplateAlias,
		TemplateModel: email.Model,
		Tag:           email.Tag,
		MessageStream: p.stream,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return p.logger.Error("Email API request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var result postmarkResponse
	_ = json.Unmarshal(raw, &result)

	if resp.StatusCode >= 300 || result.ErrorCode != 0 {
		return fmt.Errorf("email API returned %d (code %d): %s", resp.StatusCode, result.ErrorCode, result.Message)
	}

	p.logger.Success("Sent %s to %s (%s)", email.TemplateAlias, email.To, result.MessageID)
	return nil
}
