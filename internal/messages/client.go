// Package messages submits shared echoes to the external messages API.
package messages

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

const submitTimeout = 15 * time.Second

var ErrNotConfigured = errors.New("messages: base URL not configured")

// Message is the form posted to POST /api/messages.
type Message struct {
	Emotion         string
	Content         string
	Audio           []byte
	AudioMime       string
	AudioDurationMs int64
}

// Created is the representation returned by the API.
type Created struct {
	ID              string    `json:"id"`
	Emotion         string    `json:"emotion"`
	Content         string    `json:"content,omitempty"`
	AudioURL        string    `json:"audioUrl,omitempty"`
	AudioDurationMs int64     `json:"audioDurationMs,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: submitTimeout},
		log:        logger,
	}
}

// Enabled reports whether a base URL is set.
func (c *Client) Enabled() bool { return c != nil && c.BaseURL != "" }

func encodeForm(msg Message) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("emotion", msg.Emotion); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("content", msg.Content); err != nil {
		return nil, "", err
	}
	if len(msg.Audio) > 0 {
		mime := msg.AudioMime
		if mime == "" {
			mime = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="audio"; filename="echo"`)
		h.Set("Content-Type", mime)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(msg.Audio); err != nil {
			return nil, "", err
		}
		if err := w.WriteField("audioDurationMs", strconv.FormatInt(msg.AudioDurationMs, 10)); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

// Submit posts msg and decodes the created message.
func (c *Client) Submit(ctx context.Context, msg Message) (*Created, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	body, contentType, err := encodeForm(msg)
	if err != nil {
		return nil, fmt.Errorf("messages: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/messages", body)
	if err != nil {
		return nil, fmt.Errorf("messages: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("messages: submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("messages: submit failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var created Created
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("messages: decode response: %w", err)
	}
	return &created, nil
}

// SubmitAsync sends msg in the background. Failures are only logged.
func (c *Client) SubmitAsync(msg Message) {
	if !c.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		created, err := c.Submit(ctx, msg)
		if err != nil {
			c.log.Warn("messages: shared echo not delivered", "error", err)
			return
		}
		c.log.Info("messages: shared echo delivered", "id", created.ID)
	}()
}
