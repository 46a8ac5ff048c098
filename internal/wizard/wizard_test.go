package wizard

import (
	"errors"
	"testing"
	"time"

	"github.com/stylisthq/stylist-server/internal/genai"
)

func walkToAnalyzing(t *testing.T, store *Store) Session {
	t.Helper()
	session := store.Begin(7)
	if _, err := store.AttachImage(session.ID, "photo", genai.ModeNewLook); err != nil {
		t.Fatalf("attach image: %v", err)
	}
	if _, err := store.SetPreferences(session.ID, "summer", "office"); err != nil {
		t.Fatalf("set preferences: %v", err)
	}
	current, err := store.SetScope(session.ID, "any")
	if err != nil {
		t.Fatalf("set scope: %v", err)
	}
	return current
}

func TestStore_FullWalk(t *testing.T) {
	store := NewStore(0, nil)
	session := walkToAnalyzing(t, store)
	if session.State != StateAnalyzing {
		t.Fatalf("expected analyzing, got %q", session.State)
	}
	if session.Preferences.Season != "summer" || session.Preferences.Occasion != "office" || session.Preferences.StoreScope != "any" {
		t.Fatalf("unexpected preferences %+v", session.Preferences)
	}

	done, err := store.Complete(session.ID, &genai.Analysis{StyleType: "classic", Summary: "ok"}, []genai.Recommendation{{Title: "Look 1"}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.State != StateResults {
		t.Fatalf("expected results, got %q", done.State)
	}
	if done.Analysis == nil || done.Analysis.StyleType != "classic" {
		t.Fatalf("unexpected analysis %+v", done.Analysis)
	}
	if len(done.Recommendations) != 1 {
		t.Fatalf("unexpected recommendations %+v", done.Recommendations)
	}
}

func TestStore_OutOfOrderTransitionRejected(t *testing.T) {
	store := NewStore(0, nil)
	session := store.Begin(1)

	// Preferences before an image is attached.
	if _, err := store.SetPreferences(session.ID, "winter", "party"); err == nil {
		t.Fatal("expected error for skipped step")
	}
	// Completing from upload.
	if _, err := store.Complete(session.ID, nil, nil); err == nil {
		t.Fatal("expected error for completing from upload")
	}
}

func TestStore_ResetDiscardsCollectedState(t *testing.T) {
	store := NewStore(0, nil)
	session := walkToAnalyzing(t, store)

	reset, err := store.Reset(session.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset.State != StateUpload {
		t.Fatalf("expected upload after reset, got %q", reset.State)
	}
	if reset.Image != "" || reset.Preferences != (genai.Preferences{}) {
		t.Fatalf("expected discarded state, got %+v", reset)
	}

	// The walk restarts from the beginning.
	if _, err := store.AttachImage(session.ID, "photo-2", genai.ModeOwnWardrobe); err != nil {
		t.Fatalf("attach after reset: %v", err)
	}
}

func TestStore_TTLEviction(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(10*time.Minute, func() time.Time { return now })
	session := store.Begin(1)

	now = now.Add(11 * time.Minute)
	if _, err := store.Get(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_BeginReturnsSnapshot(t *testing.T) {
	store := NewStore(0, nil)
	session := store.Begin(1)

	// Mutating the snapshot must not leak into the store.
	session.State = StateResults
	session.Image = "stray"

	current, err := store.Get(session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.State != StateUpload || current.Image != "" {
		t.Fatalf("stored session changed through snapshot: %+v", current)
	}
}

func TestStore_UnknownSession(t *testing.T) {
	store := NewStore(0, nil)
	if _, err := store.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
