package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Resend sends mail through the Resend HTTP API.
type Resend struct {
	client *resty.Client
	from   string
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// NewResend creates a client for the Resend API at baseURL.
func NewResend(baseURL, apiKey, from string, timeout time.Duration) *Resend {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Resend{client: client, from: from}
}

// Send delivers msg with a single request. Failed sends are not retried.
func (r *Resend) Send(ctx context.Context, msg Message) error {
	var result resendResponse
	var apiErr resendError

	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(resendRequest{
			From:    r.from,
			To:      []string{msg.To},
			Subject: msg.Subject,
			HTML:    msg.HTML,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}

	if resp.IsError() {
		if apiErr.Message != "" {
			return fmt.Errorf("mail provider rejected message to %s: %s (status %d)", msg.To, apiErr.Message, resp.StatusCode())
		}
		return fmt.Errorf("mail provider rejected message to %s: status %d", msg.To, resp.StatusCode())
	}
	return nil
}
