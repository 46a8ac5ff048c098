package telegram

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultBotAPIBase = "https://api.telegram.org"

// Relay sends images to Telegram chats through the Bot API.
type Relay struct {
	botToken string
	baseURL  string
	client   *http.Client
}

// NewRelay constructs a Relay for the given bot token.
func NewRelay(botToken string) *Relay {
	return &Relay{
		botToken: strings.TrimSpace(botToken),
		baseURL:  defaultBotAPIBase,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the Bot API base URL. Intended for tests.
func (r *Relay) WithBaseURL(baseURL string) *Relay {
	r.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return r
}

// SendPhoto uploads a base64-encoded image to a chat with an optional caption.
func (r *Relay) SendPhoto(ctx context.Context, chatID int64, imageBase64, caption string) error {
	if r == nil || r.botToken == "" {
		return fmt.Errorf("telegram: relay not configured")
	}
	if chatID == 0 {
		return fmt.Errorf("telegram: missing chat id")
	}

	raw, errDecode := base64.StdEncoding.DecodeString(stripDataURLPrefix(imageBase64))
	if errDecode != nil {
		return fmt.Errorf("telegram: decode image: %w", errDecode)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if errField := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); errField != nil {
		return fmt.Errorf("telegram: build form: %w", errField)
	}
	if caption != "" {
		if errField := writer.WriteField("caption", caption); errField != nil {
			return fmt.Errorf("telegram: build form: %w", errField)
		}
	}
	part, errPart := writer.CreateFormFile("photo", "result.png")
	if errPart != nil {
		return fmt.Errorf("telegram: build form: %w", errPart)
	}
	if _, errWrite := part.Write(raw); errWrite != nil {
		return fmt.Errorf("telegram: build form: %w", errWrite)
	}
	if errClose := writer.Close(); errClose != nil {
		return fmt.Errorf("telegram: build form: %w", errClose)
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", r.baseURL, r.botToken)
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if errReq != nil {
		return fmt.Errorf("telegram: build request: %w", errReq)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, errDo := r.client.Do(req)
	if errDo != nil {
		return fmt.Errorf("telegram: send photo: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: send photo: status %d", resp.StatusCode)
	}

	// apiResponse maps the Bot API response envelope.
	type apiResponse struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	var parsed apiResponse
	if errUnmarshal := json.Unmarshal(payload, &parsed); errUnmarshal != nil {
		return fmt.Errorf("telegram: parse response: %w", errUnmarshal)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram: send photo rejected: %s", parsed.Description)
	}
	return nil
}

// stripDataURLPrefix drops a leading data URL header from base64 image content.
func stripDataURLPrefix(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, ";base64,"); idx >= 0 && strings.HasPrefix(s, "data:") {
		return s[idx+len(";base64,"):]
	}
	return s
}
