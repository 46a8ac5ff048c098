// Package genai calls the hosted vision and image-generation model API.
package genai

import "fmt"

// Mode selects which wardrobe scope the analysis targets.
type Mode string

// Analysis modes supported by the stylist.
const (
	// ModeNewLook asks for styles built from store catalog items.
	ModeNewLook Mode = "new_look"
	// ModeOwnWardrobe asks for styles restyled from the user's own clothes.
	ModeOwnWardrobe Mode = "own_wardrobe"
)

// Preferences carries the wizard-collected styling constraints.
type Preferences struct {
	Season     string `json:"season"`
	Occasion   string `json:"occasion"`
	StoreScope string `json:"store_scope"`
}

// Analysis is the structured result of the vision call.
type Analysis struct {
	StyleType    string   `json:"style_type"`
	ColorPalette []string `json:"color_palette"`
	Strengths    []string `json:"strengths"`
	Summary      string   `json:"summary"`
}

// Recommendation is one outfit suggestion from the recommendation call.
type Recommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Items       []string `json:"items"`
	Occasion    string   `json:"occasion"`
}

// ParseError reports model output that failed strict schema decoding.
//
// The upstream model occasionally returns truncated or fenced JSON; decoding
// fails closed instead of attempting character-level repair, so a ParseError
// means the generation must be retried by the user.
type ParseError struct {
	Field  string // Missing or malformed field, empty for syntax errors.
	Reason string // Human-readable failure description.
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("genai: parse model output: field %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("genai: parse model output: %s", e.Reason)
}
