package retrieval

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Frankh1982/projectos/internal/adapters"
	"github.com/Frankh1982/projectos/internal/project"
)

type fakeReader struct {
	byFile map[string]map[adapters.ArtifactType]*adapters.Artifact
	texts  map[string]string
}

func newFakeReader() *fakeReader {
	return &fakeReader{byFile: make(map[string]map[adapters.ArtifactType]*adapters.Artifact), texts: make(map[string]string)}
}

func (f *fakeReader) put(rel string, t adapters.ArtifactType, text string) {
	if f.byFile[rel] == nil {
		f.byFile[rel] = make(map[adapters.ArtifactType]*adapters.Artifact)
	}
	id := rel + "#" + string(t)
	f.byFile[rel][t] = &adapters.Artifact{ID: id, RelPath: rel, Type: t}
	f.texts[id] = text
}

func (f *fakeReader) LatestByType(ctx context.Context, projectKey string, t adapters.ArtifactType) (*adapters.Artifact, error) {
	return nil, nil
}

func (f *fakeReader) ReadText(ctx context.Context, artifactID string) (string, error) {
	return f.texts[artifactID], nil
}

func (f *fakeReader) FindLatestForFile(ctx context.Context, projectKey, relPath string, t adapters.ArtifactType) (*adapters.Artifact, error) {
	m := f.byFile[relPath]
	if m == nil {
		return nil, nil
	}
	return m[t], nil
}

func (f *fakeReader) RequestImageSemantics(ctx context.Context, projectKey, relPath, reason string) error {
	return nil
}

func TestBuild_HardOrdering(t *testing.T) {
	reader := newFakeReader()
	reader.put("plan.pdf", adapters.ArtifactPDFText, "pdf contents")

	in := Input{
		State: &project.State{Goal: "ship v1", Mode: project.ModeOpenWorld},
		Facts: []project.CompactFact{
			{Slot: project.SlotPreference, EntityKey: "coffee", Claim: "likes coffee", UpdatedAt: time.Now()},
			{Slot: project.SlotIdentity, EntityKey: "user", Claim: "name is Frank", UpdatedAt: time.Now()},
		},
		Profile: &project.UserProfile{Identity: project.IdentityKernel{PreferredName: "Frank"}},
		AOF:     &project.ActiveObject{RelPath: "plan.pdf", MIME: "application/pdf"},
		SearchEvidence: &adapters.SearchEvidence{
			Results: []adapters.SearchResult{{Rank: 1, Title: "t", Snippet: "s", URL: "u"}},
		},
		AssumptionNotes: []string{"assuming metric units"},
	}

	snippets, err := Build(context.Background(), reader, "frank/proj", in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var labels []string
	for _, s := range snippets {
		labels = append(labels, s.Label)
	}
	want := []string{"PROJECT_STATE_JSON", "FACTS_MAP_COMPACT", "GLOBAL_MEMORY", "FILE_EVIDENCE_PDF_TEXT", "SEARCH_EVIDENCE_EPHEMERAL", "ASSUMPTIONS"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i, w := range want {
		if labels[i] != w {
			t.Errorf("position %d: label = %q, want %q", i, labels[i], w)
		}
	}
}

func TestFactsMapCompact_IdentityPinnedFirst(t *testing.T) {
	facts := []project.CompactFact{
		{Slot: project.SlotPreference, Claim: "likes coffee", UpdatedAt: time.Now()},
		{Slot: project.SlotIdentity, Claim: "name is Frank", UpdatedAt: time.Now().Add(-time.Hour)},
	}
	out := factsMapCompact(facts)
	if strings.Index(out, "name is Frank") > strings.Index(out, "likes coffee") {
		t.Errorf("expected identity fact first even though older, got:\n%s", out)
	}
}

func TestFileEvidenceBridge_ImageSemanticsPreferredOverOCR(t *testing.T) {
	reader := newFakeReader()
	reader.put("photo.png", adapters.ArtifactOCRText, "ocr text")
	reader.put("photo.png", adapters.ArtifactImageSemantics, "semantics text")

	snip, err := fileEvidenceBridge(context.Background(), reader, "frank/proj",
		&project.ActiveObject{RelPath: "photo.png", MIME: "image/png"}, true)
	if err != nil {
		t.Fatalf("fileEvidenceBridge: %v", err)
	}
	if snip == nil || snip.Label != "FILE_EVIDENCE_IMAGE_SEMANTICS" {
		t.Fatalf("expected image semantics to win, got %+v", snip)
	}
}
