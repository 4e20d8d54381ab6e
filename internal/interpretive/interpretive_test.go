package interpretive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Frankh1982/projectos/internal/adapters"
	"github.com/Frankh1982/projectos/internal/project"
)

type fakeModel struct {
	reply string
	err   error
}

func (f fakeModel) Chat(ctx context.Context, messages []adapters.Message) (string, error) {
	return f.reply, f.err
}

type fakeBackend struct {
	doc *project.Understanding
}

func (b *fakeBackend) LoadUnderstanding(user, proj string) (*project.Understanding, error) {
	if b.doc == nil {
		return &project.Understanding{}, nil
	}
	return b.doc, nil
}

func (b *fakeBackend) SaveUnderstanding(user, proj string, u *project.Understanding) error {
	b.doc = u
	return nil
}

func TestBuildWindow_BoundsToMaxWindowTurns(t *testing.T) {
	var turns []adapters.Message
	for i := 0; i < MaxWindowTurns+5; i++ {
		turns = append(turns, adapters.Message{Role: adapters.RoleUser, Content: "turn"})
	}
	window := BuildWindow(turns, "final reply")
	if window == "" {
		t.Fatal("expected non-empty window")
	}
	if got := strings.Count(window, "user: turn"); got != MaxWindowTurns {
		t.Errorf("window kept %d user turns, want %d", got, MaxWindowTurns)
	}
}

func TestValidate_DropsUnverifiableEvidence(t *testing.T) {
	window := "user: I moved to Austin last year\nassistant: got it\n"
	u := project.Understanding{
		Entities: []project.InterpretiveItem{
			{Text: "lives in Austin", Evidence: "I moved to Austin last year"},
			{Text: "fabricated claim", Evidence: "this text never appeared anywhere"},
			{Text: "no evidence at all", Evidence: ""},
		},
	}
	out := Validate(u, window)
	if len(out.Entities) != 1 {
		t.Fatalf("expected exactly one surviving entity, got %d: %+v", len(out.Entities), out.Entities)
	}
	if out.Entities[0].Text != "lives in Austin" {
		t.Errorf("unexpected surviving entity: %+v", out.Entities[0])
	}
}

func TestMerge_CapsListSize(t *testing.T) {
	existing := &project.Understanding{}
	for i := 0; i < project.MaxInterpretiveItemsPerList; i++ {
		existing.Themes = append(existing.Themes, project.InterpretiveItem{Text: "theme"})
	}
	fresh := project.Understanding{Themes: []project.InterpretiveItem{{Text: "new theme"}}}
	merged := Merge(existing, fresh, 42)
	if len(merged.Themes) != project.MaxInterpretiveItemsPerList {
		t.Fatalf("len = %d, want %d", len(merged.Themes), project.MaxInterpretiveItemsPerList)
	}
	if merged.LastUpdatedTurn != 42 {
		t.Errorf("expected last_updated_turn=42, got %d", merged.LastUpdatedTurn)
	}
}

func TestRun_SentinelOnExtractionFailure(t *testing.T) {
	backend := &fakeBackend{}
	model := fakeModel{err: errors.New("model unavailable")}
	err := Run(context.Background(), model, backend, "alex", "proj", nil, "reply", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.doc == nil || len(backend.doc.OpenAmbiguities) == 0 {
		t.Fatal("expected a sentinel write on extraction failure")
	}
	if backend.doc.OpenAmbiguities[0].Text != "extraction_failed" {
		t.Errorf("unexpected sentinel content: %+v", backend.doc.OpenAmbiguities[0])
	}
}

func TestRun_MergesValidatedExtraction(t *testing.T) {
	backend := &fakeBackend{}
	reply := `{"entities":[{"text":"enjoys hiking","evidence":"I love hiking on weekends","uncertainty":"low"}]}`
	model := fakeModel{reply: reply}
	turns := []adapters.Message{{Role: adapters.RoleUser, Content: "I love hiking on weekends"}}
	err := Run(context.Background(), model, backend, "alex", "proj", turns, "noted", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backend.doc.Entities) != 1 || backend.doc.Entities[0].Text != "enjoys hiking" {
		t.Fatalf("unexpected entities: %+v", backend.doc.Entities)
	}
}
