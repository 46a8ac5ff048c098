// Package stylist orchestrates model calls, rate limiting and history
// persistence for the analysis and try-on flows.
package stylist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/stylisthq/stylist-server/internal/genai"
	"github.com/stylisthq/stylist-server/internal/history"
	"github.com/stylisthq/stylist-server/internal/metrics"
	"github.com/stylisthq/stylist-server/internal/models"
	"github.com/stylisthq/stylist-server/internal/ratelimit"
)

const persistTimeout = 10 * time.Second

// ModelAPI is the slice of the model client the orchestrator needs.
type ModelAPI interface {
	Analyze(ctx context.Context, imageBase64 string, mode genai.Mode, prefs genai.Preferences) (genai.Analysis, error)
	Recommend(ctx context.Context, analysis genai.Analysis, mode genai.Mode, prefs genai.Preferences) ([]genai.Recommendation, error)
	EditImage(ctx context.Context, imageBase64, prompt string) (string, error)
}

// GenerationGate admits or denies a generation attempt for a user.
type GenerationGate interface {
	Allow(ctx context.Context, user *models.User) (ratelimit.Result, error)
	Record(ctx context.Context, userID uint64)
}

// Orchestrator drives the stylist flows end to end.
type Orchestrator struct {
	model   ModelAPI
	limiter GenerationGate
	store   *history.Chain

	persistWG sync.WaitGroup
}

// NewOrchestrator wires the model client, limiter and history chain together.
func NewOrchestrator(model ModelAPI, limiter GenerationGate, store *history.Chain) *Orchestrator {
	return &Orchestrator{model: model, limiter: limiter, store: store}
}

// RunAnalysis performs the vision analysis and the dependent recommendation
// call. Either failure aborts the whole run with a single wrapped error.
func (o *Orchestrator) RunAnalysis(ctx context.Context, imageBase64 string, mode genai.Mode, prefs genai.Preferences) (genai.Analysis, []genai.Recommendation, error) {
	analysis, errAnalyze := o.model.Analyze(ctx, imageBase64, mode, prefs)
	if errAnalyze != nil {
		metrics.GenerationsTotal.WithLabelValues(metrics.KindAnalysis, metrics.OutcomeError).Inc()
		return genai.Analysis{}, nil, fmt.Errorf("stylist: analysis: %w", errAnalyze)
	}

	recs, errRecommend := o.model.Recommend(ctx, analysis, mode, prefs)
	if errRecommend != nil {
		metrics.GenerationsTotal.WithLabelValues(metrics.KindAnalysis, metrics.OutcomeError).Inc()
		return genai.Analysis{}, nil, fmt.Errorf("stylist: recommendations: %w", errRecommend)
	}

	metrics.GenerationsTotal.WithLabelValues(metrics.KindAnalysis, metrics.OutcomeOK).Inc()
	return analysis, recs, nil
}

// ApplyStyle renders the chosen recommendation onto the user's photo.
//
// The rate limit gate runs first; a denial surfaces ratelimit.ErrLimitReached
// together with the Result so handlers can shape the upsell response.
func (o *Orchestrator) ApplyStyle(ctx context.Context, user *models.User, imageBase64 string, rec genai.Recommendation, analysis *genai.Analysis) (string, ratelimit.Result, error) {
	return o.generate(ctx, user, metrics.KindStyle, imageBase64, stylePrompt(rec), rec.Title, analysis)
}

// ApplyFreeformEdit applies a user-written edit instruction to the photo.
func (o *Orchestrator) ApplyFreeformEdit(ctx context.Context, user *models.User, imageBase64, instruction string) (string, ratelimit.Result, error) {
	return o.generate(ctx, user, metrics.KindEdit, imageBase64, editPrompt(instruction), historyTitle(instruction), nil)
}

// Wait blocks until all detached history writes have finished.
func (o *Orchestrator) Wait() {
	o.persistWG.Wait()
}

func (o *Orchestrator) generate(ctx context.Context, user *models.User, kind, imageBase64, prompt, title string, analysis *genai.Analysis) (string, ratelimit.Result, error) {
	result, errAllow := o.limiter.Allow(ctx, user)
	if errAllow != nil {
		metrics.GenerationsTotal.WithLabelValues(kind, metrics.OutcomeError).Inc()
		return "", result, fmt.Errorf("stylist: rate limit check: %w", errAllow)
	}
	if !result.Allowed {
		metrics.GenerationsTotal.WithLabelValues(kind, metrics.OutcomeRateLimited).Inc()
		return "", result, fmt.Errorf("stylist: %w", ratelimit.ErrLimitReached)
	}

	edited, errEdit := o.model.EditImage(ctx, imageBase64, prompt)
	if errEdit != nil {
		metrics.GenerationsTotal.WithLabelValues(kind, metrics.OutcomeError).Inc()
		return "", result, fmt.Errorf("stylist: image edit: %w", errEdit)
	}

	metrics.GenerationsTotal.WithLabelValues(kind, metrics.OutcomeOK).Inc()
	o.limiter.Record(ctx, user.ID)
	o.persistResult(user.ID, title, imageBase64, edited, analysis)
	return edited, result, nil
}

// persistResult writes the history item in the background. Failures are
// logged and counted but never surfaced to the caller.
func (o *Orchestrator) persistResult(userID uint64, title, original, result string, analysis *genai.Analysis) {
	if o.store == nil {
		return
	}

	item := models.HistoryItem{
		ID:            uuid.NewString(),
		UserID:        userID,
		StyleTitle:    title,
		OriginalImage: original,
		ResultImage:   result,
		CreatedAt:     time.Now().UTC(),
	}
	if analysis != nil {
		if raw, errMarshal := json.Marshal(analysis); errMarshal == nil {
			item.Analysis = datatypes.JSON(raw)
		}
	}

	o.persistWG.Add(1)
	go func() {
		defer o.persistWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if _, errSave := o.store.Save(ctx, item); errSave != nil {
			log.WithError(errSave).WithField("user_id", userID).Error("stylist: history persist failed on all backends")
		}
	}()
}

func stylePrompt(rec genai.Recommendation) string {
	var b strings.Builder
	b.WriteString("Edit the photo so the person wears the following outfit, keeping face, pose and background unchanged. ")
	b.WriteString("Outfit: ")
	b.WriteString(rec.Title)
	if rec.Description != "" {
		b.WriteString(". ")
		b.WriteString(rec.Description)
	}
	if len(rec.Items) > 0 {
		b.WriteString(" Items: ")
		b.WriteString(strings.Join(rec.Items, ", "))
		b.WriteString(".")
	}
	return b.String()
}

func editPrompt(instruction string) string {
	return "Edit the photo as instructed, keeping face, pose and background unchanged. Instruction: " + instruction
}

// historyTitle derives a short history label from a freeform instruction.
func historyTitle(instruction string) string {
	const max = 64
	title := strings.TrimSpace(instruction)
	if title == "" {
		return "Custom edit"
	}
	if runes := []rune(title); len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return title
}
