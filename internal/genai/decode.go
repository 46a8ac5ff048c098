package genai

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// extractText pulls the first text part out of a generateContent envelope.
func extractText(envelope []byte) (string, bool) {
	text := gjson.GetBytes(envelope, "candidates.0.content.parts.0.text")
	if !text.Exists() {
		return "", false
	}
	return text.String(), true
}

// extractInlineImage pulls the first inline image payload out of an envelope.
func extractInlineImage(envelope []byte) (string, bool) {
	parts := gjson.GetBytes(envelope, "candidates.0.content.parts")
	if !parts.IsArray() {
		return "", false
	}
	var data string
	parts.ForEach(func(_, part gjson.Result) bool {
		if inline := part.Get("inlineData.data"); inline.Exists() {
			data = inline.String()
			return false
		}
		if inline := part.Get("inline_data.data"); inline.Exists() {
			data = inline.String()
			return false
		}
		return true
	})
	return data, data != ""
}

// stripCodeFence removes a surrounding markdown code fence from model text.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// decodeAnalysis strictly decodes the analysis JSON, failing closed.
func decodeAnalysis(text string) (Analysis, error) {
	var analysis Analysis
	decoder := json.NewDecoder(strings.NewReader(stripCodeFence(text)))
	decoder.DisallowUnknownFields()
	if errDecode := decoder.Decode(&analysis); errDecode != nil {
		return Analysis{}, &ParseError{Reason: errDecode.Error()}
	}
	if strings.TrimSpace(analysis.StyleType) == "" {
		return Analysis{}, &ParseError{Field: "style_type", Reason: "missing"}
	}
	if strings.TrimSpace(analysis.Summary) == "" {
		return Analysis{}, &ParseError{Field: "summary", Reason: "missing"}
	}
	return analysis, nil
}

// decodeRecommendations strictly decodes the recommendation JSON, failing closed.
func decodeRecommendations(text string) ([]Recommendation, error) {
	// wrapper maps the recommendation payload shape.
	type wrapper struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	var payload wrapper
	decoder := json.NewDecoder(strings.NewReader(stripCodeFence(text)))
	decoder.DisallowUnknownFields()
	if errDecode := decoder.Decode(&payload); errDecode != nil {
		return nil, &ParseError{Reason: errDecode.Error()}
	}
	if len(payload.Recommendations) == 0 {
		return nil, &ParseError{Field: "recommendations", Reason: "empty"}
	}
	for i, rec := range payload.Recommendations {
		if strings.TrimSpace(rec.Title) == "" {
			return nil, &ParseError{Field: "recommendations.title", Reason: "missing"}
		}
		payload.Recommendations[i].Title = strings.TrimSpace(rec.Title)
	}
	return payload.Recommendations, nil
}
