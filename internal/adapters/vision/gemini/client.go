// Package gemini provides a resilient client for the Gemini generateContent
// REST endpoint, used to read a meter value off a submitted image
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	perr "meterbox/internal/platform/errors"
	"meterbox/internal/platform/logger"
)

const (
	baseURLDefault   = "https://generativelanguage.googleapis.com"
	modelDefault     = "gemini-1.5-flash"
	defaultTimeout   = 15 * time.Second
	defaultMaxRetry  = 3
	defaultRetryBase = 500 * time.Millisecond
)

// promptTemplate asks for bare digits or the sentinel, nothing else,
// so the extractor has a fighting chance
const promptTemplate = "Read the utility meter shown in this image and answer with the displayed " +
	"value as an integer, digits only, no units and no other words. " +
	"If the image does not show a utility meter, answer exactly %s."

// Options configures the Client
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	// Sentinel the model is told to answer with for non-meter images
	Sentinel string

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration
}

// Client is a minimal Gemini REST client with bounded timeout and retries
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.Model == "" {
		o.Model = modelDefault
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("gemini"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// request/response wire shapes, trimmed to the fields we use

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Recognize sends the base64 image to the model and returns its text answer.
// All failure modes surface as upstream errors; nothing is retried beyond
// transient statuses and nothing is swallowed
func (c *Client) Recognize(ctx context.Context, imageB64, mimeType string) (string, error) {
	if strings.TrimSpace(imageB64) == "" {
		return "", perr.InvalidArgf("empty image payload")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{MimeType: mimeType, Data: imageB64}},
				{Text: fmt.Sprintf(promptTemplate, c.opts.Sentinel)},
			},
		}},
	})
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "gemini request marshal failed")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.opts.BaseURL, c.opts.Model)

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return "", perr.Wrap(ctx.Err(), perr.ErrorCodeUpstream, "gemini call canceled")
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "gemini new request failed")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.opts.APIKey)

		start := c.now()
		resp, err := c.http.Do(req)
		if err != nil {
			attempts++
			if attempts > c.opts.MaxRetries {
				return "", perr.Wrapf(err, perr.ErrorCodeUpstream, "gemini unreachable after %d attempts", attempts)
			}
			c.backoff(attempts)
			continue
		}

		text, retryable, err := c.consume(resp)
		c.log.Debug().
			Int("status", resp.StatusCode).
			Dur("elapsed", c.now().Sub(start)).
			Msg("gemini call")

		if err == nil {
			return text, nil
		}
		if !retryable {
			return "", err
		}
		attempts++
		if attempts > c.opts.MaxRetries {
			return "", err
		}
		c.backoff(attempts)
	}
}

// consume drains the response and classifies the outcome
func (c *Client) consume(resp *http.Response) (text string, retryable bool, err error) {
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out generateResponse
		if derr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); derr != nil {
			return "", false, perr.Wrapf(derr, perr.ErrorCodeUpstream, "gemini response decode failed")
		}
		if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
			return "", false, perr.Upstreamf("gemini returned no candidates")
		}
		return out.Candidates[0].Content.Parts[0].Text, false, nil

	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		return "", true, perr.Upstreamf("gemini responded %d", resp.StatusCode)

	default:
		return "", false, perr.Upstreamf("gemini responded %d", resp.StatusCode)
	}
}

func (c *Client) backoff(attempt int) {
	d := c.opts.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	c.sleep(d)
}
