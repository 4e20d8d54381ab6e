// Package adapters defines the narrow interface bundle the core pipeline
// depends on for everything outside itself: model calls, search evidence,
// upload-pipeline artifacts, and deliverable registration (spec.md §6).
// The core never imports an HTTP, WebSocket, Docker, or Kubernetes
// package; it only ever sees these four interfaces.
package adapters

import "context"

// Role enumerates chat message roles.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the ordered list sent to the model.
type Message struct {
	Role    Role
	Content string
}

// ModelCaller accepts an ordered list of messages and returns the model's
// reply text. Must be safe to invoke from a worker goroutine.
type ModelCaller interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// AuthorityLevel enumerates how confirmed a piece of search evidence is.
type AuthorityLevel string

const (
	AuthorityNone             AuthorityLevel = ""
	AuthorityPrimaryConfirmed AuthorityLevel = "primary_confirmed"
)

// SearchResult is one ranked result within search evidence.
type SearchResult struct {
	Rank        int
	Title       string
	Snippet     string
	Description string
	URL         string
}

// SearchEvidence is the opaque evidence object a search provider returns
// (spec.md §6, schema "search_evidence_v1").
type SearchEvidence struct {
	Schema        string
	Authority     AuthorityLevel
	Insufficient  bool
	Results       []SearchResult
}

const SearchEvidenceSchema = "search_evidence_v1"

// SearchProvider is the opaque evidence producer collaborator.
type SearchProvider interface {
	Evidence(ctx context.Context, query string) (*SearchEvidence, error)
}

// ArtifactType enumerates the upload-pipeline's artifact kinds the core reads.
type ArtifactType string

const (
	ArtifactPDFText             ArtifactType = "pdf_text"
	ArtifactOCRText             ArtifactType = "ocr_text"
	ArtifactPlanOCR             ArtifactType = "plan_ocr"
	ArtifactImageCaption        ArtifactType = "image_caption"
	ArtifactImageClassification ArtifactType = "image_classification"
	ArtifactImageSemantics      ArtifactType = "image_semantics"
	ArtifactExcelBlueprint      ArtifactType = "excel_blueprint"
	ArtifactFileOverview        ArtifactType = "file_overview"
	ArtifactCodeIndex           ArtifactType = "code_index"
	ArtifactCodeChunk           ArtifactType = "code_chunk"
)

// Artifact is one produced/derived artifact reference.
type Artifact struct {
	ID       string
	RelPath  string
	Type     ArtifactType
	TextHint string
}

// ArtifactReader is the upload/ingest pipeline collaborator (spec.md §6).
// The core mostly only reads through the first three methods;
// RequestImageSemantics is the one bounded on-demand write: it asks the
// upload pipeline to generate and cache an image_semantics artifact for
// relPath, for a short reason string, without blocking the turn. The
// result surfaces on a later turn via FindLatestForFile.
type ArtifactReader interface {
	LatestByType(ctx context.Context, projectKey string, artifactType ArtifactType) (*Artifact, error)
	ReadText(ctx context.Context, artifactID string) (string, error)
	FindLatestForFile(ctx context.Context, projectKey, relPath string, artifactType ArtifactType) (*Artifact, error)
	RequestImageSemantics(ctx context.Context, projectKey, relPath, reason string) error
}

// DeliverableRegistry registers a generated byte-producer output (Excel,
// HTML, ...) the core never produces bytes for itself.
type DeliverableRegistry interface {
	Register(ctx context.Context, kind, title, path, source string) error
}
