// Package assist talks to an external drafting service that proposes
// question content for an authoring draft.
package assist

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"assessment-service/internal/domain"
	"github.com/go-resty/resty/v2"
)

// Client implements app.Assistant over HTTP.
type Client struct {
	http *resty.Client
}

// Options configure the remote endpoint.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewClient(opts Options) *Client {
	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		c.SetAuthToken(opts.APIKey)
	}
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	return &Client{http: c}
}

type assistRequest struct {
	Kind     domain.QuestionKind `json:"kind"`
	Prompt   string              `json:"prompt"`
	Feedback string              `json:"feedback,omitempty"`
}

// Assist posts the draft and decodes the suggestion. Any transport error or
// non-2xx status is returned as an error; the caller keeps its draft.
func (c *Client) Assist(ctx context.Context, draft domain.Question) (domain.PartialQuestion, error) {
	var out domain.PartialQuestion
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(assistRequest{Kind: draft.Kind, Prompt: draft.Prompt, Feedback: draft.Feedback}).
		SetResult(&out).
		Post("/v1/questions/assist")
	if err != nil {
		return domain.PartialQuestion{}, fmt.Errorf("assist request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return domain.PartialQuestion{}, fmt.Errorf("assist returned %d: %s", resp.StatusCode(), resp.String())
	}
	return out, nil
}
