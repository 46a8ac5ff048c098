package stylist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stylisthq/stylist-server/internal/genai"
	"github.com/stylisthq/stylist-server/internal/history"
	"github.com/stylisthq/stylist-server/internal/models"
	"github.com/stylisthq/stylist-server/internal/ratelimit"
)

type fakeModel struct {
	analysis     genai.Analysis
	analyzeErr   error
	recs         []genai.Recommendation
	recommendErr error
	edited       string
	editErr      error

	editPrompts []string
}

func (m *fakeModel) Analyze(context.Context, string, genai.Mode, genai.Preferences) (genai.Analysis, error) {
	return m.analysis, m.analyzeErr
}

func (m *fakeModel) Recommend(context.Context, genai.Analysis, genai.Mode, genai.Preferences) ([]genai.Recommendation, error) {
	return m.recs, m.recommendErr
}

func (m *fakeModel) EditImage(_ context.Context, _ string, prompt string) (string, error) {
	m.editPrompts = append(m.editPrompts, prompt)
	return m.edited, m.editErr
}

type fakeGate struct {
	result   ratelimit.Result
	err      error
	recorded []uint64
}

func (g *fakeGate) Allow(context.Context, *models.User) (ratelimit.Result, error) {
	return g.result, g.err
}

func (g *fakeGate) Record(_ context.Context, userID uint64) {
	g.recorded = append(g.recorded, userID)
}

func TestRunAnalysis_Sequential(t *testing.T) {
	model := &fakeModel{
		analysis: genai.Analysis{StyleType: "classic", Summary: "clean lines"},
		recs:     []genai.Recommendation{{Title: "Look 1"}, {Title: "Look 2"}},
	}
	orch := NewOrchestrator(model, &fakeGate{result: ratelimit.Result{Allowed: true}}, nil)

	analysis, recs, err := orch.RunAnalysis(context.Background(), "photo", genai.ModeNewLook, genai.Preferences{})
	if err != nil {
		t.Fatalf("run analysis: %v", err)
	}
	if analysis.StyleType != "classic" {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
	if len(recs) != 2 {
		t.Fatalf("unexpected recommendations %+v", recs)
	}
}

func TestRunAnalysis_RecommendationFailureAborts(t *testing.T) {
	model := &fakeModel{
		analysis:     genai.Analysis{StyleType: "classic", Summary: "ok"},
		recommendErr: errors.New("model refused"),
	}
	orch := NewOrchestrator(model, &fakeGate{}, nil)

	_, _, err := orch.RunAnalysis(context.Background(), "photo", genai.ModeNewLook, genai.Preferences{})
	if err == nil {
		t.Fatal("expected error when recommendations fail")
	}
}

func TestApplyStyle_PersistsHistory(t *testing.T) {
	model := &fakeModel{edited: "result-image"}
	gate := &fakeGate{result: ratelimit.Result{Allowed: true, Remaining: 1}}
	memory := history.NewMemoryStore()
	orch := NewOrchestrator(model, gate, history.NewChain(memory))
	user := &models.User{ID: 42}

	rec := genai.Recommendation{Title: "Smart Casual", Items: []string{"blazer", "chinos"}}
	edited, result, err := orch.ApplyStyle(context.Background(), user, "photo", rec, &genai.Analysis{StyleType: "smart"})
	if err != nil {
		t.Fatalf("apply style: %v", err)
	}
	if edited != "result-image" {
		t.Fatalf("unexpected edited image %q", edited)
	}
	if !result.Allowed {
		t.Fatal("expected allowed result")
	}
	if len(gate.recorded) != 1 || gate.recorded[0] != 42 {
		t.Fatalf("expected one recorded generation for user 42, got %v", gate.recorded)
	}

	orch.Wait()
	items, errList := memory.List(context.Background(), 42)
	if errList != nil {
		t.Fatalf("list history: %v", errList)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 history item, got %d", len(items))
	}
	if items[0].StyleTitle != "Smart Casual" || items[0].ResultImage != "result-image" {
		t.Fatalf("unexpected history item %+v", items[0])
	}
	if len(items[0].Analysis) == 0 {
		t.Fatal("expected analysis snapshot on the history item")
	}
}

func TestApplyStyle_RateLimited(t *testing.T) {
	model := &fakeModel{edited: "result-image"}
	gate := &fakeGate{result: ratelimit.Result{Allowed: false}}
	memory := history.NewMemoryStore()
	orch := NewOrchestrator(model, gate, history.NewChain(memory))

	_, _, err := orch.ApplyStyle(context.Background(), &models.User{ID: 7}, "photo", genai.Recommendation{Title: "x"}, nil)
	if !errors.Is(err, ratelimit.ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
	if len(model.editPrompts) != 0 {
		t.Fatal("expected no model call on denial")
	}

	orch.Wait()
	items, _ := memory.List(context.Background(), 7)
	if len(items) != 0 {
		t.Fatalf("expected no history on denial, got %d items", len(items))
	}
}

func TestApplyStyle_EditFailureLeavesNoHistory(t *testing.T) {
	model := &fakeModel{editErr: errors.New("model down")}
	gate := &fakeGate{result: ratelimit.Result{Allowed: true}}
	memory := history.NewMemoryStore()
	orch := NewOrchestrator(model, gate, history.NewChain(memory))

	_, _, err := orch.ApplyStyle(context.Background(), &models.User{ID: 7}, "photo", genai.Recommendation{Title: "x"}, nil)
	if err == nil {
		t.Fatal("expected error when image edit fails")
	}
	if len(gate.recorded) != 0 {
		t.Fatal("expected no recorded generation on failure")
	}

	orch.Wait()
	items, _ := memory.List(context.Background(), 7)
	if len(items) != 0 {
		t.Fatalf("expected no history on failure, got %d items", len(items))
	}
}

func TestApplyFreeformEdit_TitleFromInstruction(t *testing.T) {
	model := &fakeModel{edited: "result"}
	gate := &fakeGate{result: ratelimit.Result{Allowed: true}}
	memory := history.NewMemoryStore()
	orch := NewOrchestrator(model, gate, history.NewChain(memory))

	_, _, err := orch.ApplyFreeformEdit(context.Background(), &models.User{ID: 3}, "photo", "add a red scarf")
	if err != nil {
		t.Fatalf("apply edit: %v", err)
	}

	orch.Wait()
	items, _ := memory.List(context.Background(), 3)
	if len(items) != 1 || items[0].StyleTitle != "add a red scarf" {
		t.Fatalf("unexpected history %+v", items)
	}
}

func TestHistoryTitle(t *testing.T) {
	if got := historyTitle("  "); got != "Custom edit" {
		t.Fatalf("unexpected title %q", got)
	}
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	if got := historyTitle(string(long)); len(got) != 67 {
		t.Fatalf("expected truncated title, got %d chars", len(got))
	}
	wide := strings.Repeat("ё", 100)
	got := historyTitle(wide)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated title is not valid utf-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 67 {
		t.Fatalf("expected 67 runes after truncation, got %d", n)
	}
}
