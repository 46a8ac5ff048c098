package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stylisthq/stylist-server/internal/config"
)

// Client calls the generateContent endpoints of the model API.
type Client struct {
	cfg     config.GenAIConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient constructs a Client from config.
func NewClient(cfg config.GenAIConfig) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "genai",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// request shapes for the generateContent API.
type (
	inlineData struct {
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	}
	contentPart struct {
		Text       string      `json:"text,omitempty"`
		InlineData *inlineData `json:"inline_data,omitempty"`
	}
	content struct {
		Parts []contentPart `json:"parts"`
	}
	generateRequest struct {
		Contents         []content       `json:"contents"`
		GenerationConfig *generationConf `json:"generationConfig,omitempty"`
	}
	generationConf struct {
		ResponseMIMEType   string   `json:"responseMimeType,omitempty"`
		ResponseModalities []string `json:"responseModalities,omitempty"`
	}
)

// Analyze runs the vision analysis call over the uploaded photo.
func (c *Client) Analyze(ctx context.Context, imageBase64 string, mode Mode, prefs Preferences) (Analysis, error) {
	prompt := analysisPrompt(mode, prefs)
	body := generateRequest{
		Contents: []content{{Parts: []contentPart{
			{Text: prompt},
			{InlineData: &inlineData{MimeType: "image/jpeg", Data: imageBase64}},
		}}},
		GenerationConfig: &generationConf{ResponseMIMEType: "application/json"},
	}

	envelope, errCall := c.generate(ctx, c.cfg.AnalysisModel, body)
	if errCall != nil {
		return Analysis{}, errCall
	}
	text, ok := extractText(envelope)
	if !ok {
		return Analysis{}, &ParseError{Reason: "no text part in model response"}
	}
	return decodeAnalysis(text)
}

// Recommend runs the recommendation call using a completed analysis.
func (c *Client) Recommend(ctx context.Context, analysis Analysis, mode Mode, prefs Preferences) ([]Recommendation, error) {
	prompt := recommendationPrompt(analysis, mode, prefs)
	body := generateRequest{
		Contents:         []content{{Parts: []contentPart{{Text: prompt}}}},
		GenerationConfig: &generationConf{ResponseMIMEType: "application/json"},
	}

	envelope, errCall := c.generate(ctx, c.cfg.AnalysisModel, body)
	if errCall != nil {
		return nil, errCall
	}
	text, ok := extractText(envelope)
	if !ok {
		return nil, &ParseError{Reason: "no text part in model response"}
	}
	return decodeRecommendations(text)
}

// EditImage applies an edit prompt to the photo and returns the result image.
func (c *Client) EditImage(ctx context.Context, imageBase64, prompt string) (string, error) {
	body := generateRequest{
		Contents: []content{{Parts: []contentPart{
			{Text: prompt},
			{InlineData: &inlineData{MimeType: "image/jpeg", Data: imageBase64}},
		}}},
		GenerationConfig: &generationConf{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	envelope, errCall := c.generate(ctx, c.cfg.ImageModel, body)
	if errCall != nil {
		return "", errCall
	}
	image, ok := extractInlineImage(envelope)
	if !ok {
		return "", &ParseError{Reason: "no image part in model response"}
	}
	return image, nil
}

// generate posts a generateContent request through the circuit breaker.
func (c *Client) generate(ctx context.Context, model string, body generateRequest) ([]byte, error) {
	if c == nil || c.cfg.APIKey == "" {
		return nil, fmt.Errorf("genai: api key not configured")
	}

	payload, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		return nil, fmt.Errorf("genai: marshal request: %w", errMarshal)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, model)

	envelope, errExec := c.breaker.Execute(func() ([]byte, error) {
		req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if errReq != nil {
			return nil, errReq
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)

		resp, errDo := c.http.Do(req)
		if errDo != nil {
			return nil, errDo
		}
		defer func() { _ = resp.Body.Close() }()

		raw, errRead := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if errRead != nil {
			return nil, errRead
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(raw))
		}
		return raw, nil
	})
	if errExec != nil {
		return nil, fmt.Errorf("genai: call %s: %w", model, errExec)
	}
	return envelope, nil
}

// truncateBody bounds an error body excerpt for logging.
func truncateBody(raw []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

// analysisPrompt builds the vision analysis instruction.
func analysisPrompt(mode Mode, prefs Preferences) string {
	var sb strings.Builder
	sb.WriteString("You are a professional fashion stylist. Analyze the person in the photo and return JSON with keys ")
	sb.WriteString(`"style_type" (string), "color_palette" (array of strings), "strengths" (array of strings), "summary" (string).`)
	if prefs.Season != "" {
		fmt.Fprintf(&sb, " Target season: %s.", prefs.Season)
	}
	if prefs.Occasion != "" {
		fmt.Fprintf(&sb, " Target occasion: %s.", prefs.Occasion)
	}
	if mode == ModeOwnWardrobe {
		sb.WriteString(" The user wants to restyle clothes they already own.")
	}
	sb.WriteString(" Return only JSON.")
	return sb.String()
}

// recommendationPrompt builds the outfit recommendation instruction.
func recommendationPrompt(analysis Analysis, mode Mode, prefs Preferences) string {
	var sb strings.Builder
	sb.WriteString("Based on this style analysis, suggest 3 complete outfits. Return JSON with key ")
	sb.WriteString(`"recommendations": array of {"title", "description", "items" (array of strings), "occasion"}.`)
	fmt.Fprintf(&sb, " Style type: %s. Summary: %s.", analysis.StyleType, analysis.Summary)
	if len(analysis.ColorPalette) > 0 {
		fmt.Fprintf(&sb, " Palette: %s.", strings.Join(analysis.ColorPalette, ", "))
	}
	if prefs.Season != "" {
		fmt.Fprintf(&sb, " Season: %s.", prefs.Season)
	}
	if prefs.Occasion != "" {
		fmt.Fprintf(&sb, " Occasion: %s.", prefs.Occasion)
	}
	if mode == ModeOwnWardrobe {
		sb.WriteString(" Use only garments visible in the analyzed wardrobe.")
	} else if prefs.StoreScope != "" {
		fmt.Fprintf(&sb, " Prefer items available at: %s.", prefs.StoreScope)
	}
	sb.WriteString(" Return only JSON.")
	return sb.String()
}
