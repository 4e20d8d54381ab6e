// Package project holds the shared domain types the core pipeline reads
// and writes: Project, Manifest, ActiveObject, fact tiers, policy rules,
// decisions, bring-up requests, and audit events. These are plain data
// types; behavior lives in the packages that own each tier.
package project

import "time"

// ProjectMode controls whether the grounded generator is allowed to
// answer from general knowledge alongside project memory.
type ProjectMode string

const (
	ModeOpenWorld   ProjectMode = "open_world"
	ModeClosedWorld ProjectMode = "closed_world"
	ModeHybrid      ProjectMode = "hybrid"
)

// BootstrapStatus tracks the goal-adoption state machine.
type BootstrapStatus string

const (
	BootstrapNeedsGoal     BootstrapStatus = "needs_goal"
	BootstrapGoalProposed  BootstrapStatus = "goal_proposed"
	BootstrapActive        BootstrapStatus = "active"
)

// ExpertFrameStatus tracks the Expert Frame Lock state machine.
type ExpertFrameStatus string

const (
	ExpertFrameNone     ExpertFrameStatus = ""
	ExpertFrameProposed ExpertFrameStatus = "proposed"
	ExpertFrameActive   ExpertFrameStatus = "active"
)

// ExpertFrame is the project-scoped behavioral frame (spec.md §3, EFL glossary).
type ExpertFrame struct {
	Status    ExpertFrameStatus `json:"status"`
	Label     string            `json:"label"`
	Directive string            `json:"directive"`
	SetReason string            `json:"set_reason"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TimeAnchor is one bounded project event-anchor (spec.md §4.11).
type TimeAnchor struct {
	Label string    `json:"label"`
	TS    time.Time `json:"ts"`
	TZ    string    `json:"tz"`
}

// BringupDraft is the pending couples bring-up draft awaiting yes/no (spec.md §3).
type BringupDraft struct {
	Pending  bool   `json:"pending"`
	Synopsis string `json:"synopsis"`
	Topic    string `json:"topic"`
	Tone     string `json:"tone,omitempty"`
	Boundary string `json:"boundaries,omitempty"`
}

// State is the durable per-project state document (project_state.json).
type State struct {
	User   string `json:"-"`
	Name   string `json:"-"`
	Goal   string `json:"goal"`
	Mode   ProjectMode     `json:"project_mode"`
	Boot   BootstrapStatus `json:"bootstrap_status"`
	Expert ExpertFrame     `json:"expert_frame"`
	Domains []string       `json:"domains"`
	UserRules []string     `json:"user_rules"`

	FactsTurnCounter int  `json:"facts_turn_counter"`
	FactsDirty       bool `json:"facts_dirty"`

	TimeAnchors []TimeAnchor `json:"time_anchors_v1"`

	PendingBringupDraft  *BringupDraft `json:"pending_bringup_draft,omitempty"`
	PendingUploadQuestion string       `json:"pending_upload_question,omitempty"`

	ActiveCoupleID string `json:"active_couple_id,omitempty"`
	CurrentFocus   string `json:"current_focus,omitempty"`

	NextActions []string `json:"next_actions,omitempty"`
	KeyFiles    []string `json:"key_files,omitempty"`
}

const MaxTimeAnchors = 8

// Key returns the "user/project" composite key used for logging and entity scoping.
func (s State) Key() string {
	return s.User + "/" + s.Name
}

// ManifestRawFile describes one user upload tracked in the manifest.
type ManifestRawFile struct {
	Path      string `json:"path"`
	OrigName  string `json:"orig_name"`
	SavedName string `json:"saved_name"`
	SHA256    string `json:"sha256"`
	MIME      string `json:"mime"`
}

// ManifestArtifact describes one produced/derived artifact.
type ManifestArtifact struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

// Manifest is read-only from the core's perspective (spec.md §3).
type Manifest struct {
	Goal      string             `json:"goal"`
	RawFiles  []ManifestRawFile  `json:"raw_files"`
	Artifacts []ManifestArtifact `json:"artifacts"`
}

// ActiveObject is the Active Object Focus (AOF) record (spec.md §3/§4.7).
type ActiveObject struct {
	RelPath   string `json:"rel_path"`
	OrigName  string `json:"orig_name"`
	SHA256    string `json:"sha256"`
	MIME      string `json:"mime"`
	SetReason string `json:"set_reason"`
}

// FactSlot enumerates Tier-1 fact slots.
type FactSlot string

const (
	SlotIdentity     FactSlot = "identity"
	SlotRelationship FactSlot = "relationship"
	SlotPreference   FactSlot = "preference"
	SlotPossession   FactSlot = "possession"
	SlotRoutine      FactSlot = "routine"
	SlotConstraint   FactSlot = "constraint"
	SlotContext      FactSlot = "context"
	SlotEvent        FactSlot = "event"
	SlotOther        FactSlot = "other"
)

// FactSubject enumerates Tier-1 fact subjects.
type FactSubject string

const (
	SubjectUser    FactSubject = "user"
	SubjectOther   FactSubject = "other"
	SubjectProject FactSubject = "project"
	SubjectUnknown FactSubject = "unknown"
)

// RawFact is one append-only Tier-1 record (spec.md §3).
type RawFact struct {
	Claim         string      `json:"claim"`
	Slot          FactSlot    `json:"slot"`
	Subject       FactSubject `json:"subject"`
	Source        string      `json:"source"`
	EvidenceQuote string      `json:"evidence_quote"`
	TurnIndex     int         `json:"turn_index"`
	Timestamp     time.Time   `json:"timestamp"`
	EntityKey     string      `json:"entity_key,omitempty"`
}

// CompactFact is one Tier-2 project-map entry (facts_map.md's structured form).
type CompactFact struct {
	Slot       FactSlot    `json:"slot"`
	Subject    FactSubject `json:"subject"`
	EntityKey  string      `json:"entity_key"`
	Claim      string      `json:"claim"`
	Confidence float64     `json:"confidence"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

const MaxCompactFacts = 30
const MaxFactsMapChars = 2400

// IdentityKernel is the Tier-2G curated identity profile (spec.md §3).
type IdentityKernel struct {
	PreferredName string `json:"preferred_name,omitempty"`
	Birthdate     string `json:"birthdate,omitempty"` // ISO YYYY-MM-DD
	Timezone      string `json:"timezone,omitempty"`
	Location      string `json:"location,omitempty"`
}

// Relationship is one curated Tier-2G relationship entry.
type Relationship struct {
	EntityKey string `json:"entity_key"`
	Claim     string `json:"claim"`
}

// UserProfile is the Tier-2G document (profile.json).
type UserProfile struct {
	Schema        string         `json:"schema"`
	Identity      IdentityKernel `json:"identity"`
	Relationships []Relationship `json:"relationships"`
}

const UserProfileSchema = "user_profile_v1"

// PolicyAction enumerates memory policy actions (spec.md §3/§4.6).
type PolicyAction string

const (
	PolicyDoNotStore     PolicyAction = "do_not_store"
	PolicyProjectOnly    PolicyAction = "project_only"
	PolicyDoNotResurface PolicyAction = "do_not_resurface"
	PolicyAllowGlobal    PolicyAction = "allow_global"
)

// PolicyMatchType enumerates how a policy rule matches a candidate fact.
type PolicyMatchType string

const (
	MatchEntityKey PolicyMatchType = "entity_key"
	MatchSubstring PolicyMatchType = "substring"
)

// PolicyRule is one per-user memory policy (spec.md §3).
type PolicyRule struct {
	Action     PolicyAction    `json:"action"`
	MatchType  PolicyMatchType `json:"match_type"`
	MatchValue string          `json:"match_value"`
	Note       string          `json:"note,omitempty"`
}

// Decision is a confirmed project decision.
type Decision struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DecisionCandidateStatus enumerates the decision-candidate lifecycle.
type DecisionCandidateStatus string

const (
	DecisionPending   DecisionCandidateStatus = "pending"
	DecisionConfirmed DecisionCandidateStatus = "confirmed"
	DecisionDropped   DecisionCandidateStatus = "dropped"
)

// DecisionCandidate is a pending decision awaiting confirmation.
type DecisionCandidate struct {
	Text   string                  `json:"text"`
	Status DecisionCandidateStatus `json:"status"`
}

// BringupStatus enumerates bring-up request lifecycle states.
type BringupStatus string

const (
	BringupQueued   BringupStatus = "queued"
	BringupResolved BringupStatus = "resolved"
)

// BringupRequest is one couples-mode mediation item (spec.md §3).
type BringupRequest struct {
	ID             string        `json:"id"`
	FromUser       string        `json:"from_user"`
	ToUser         string        `json:"to_user"`
	Topic          string        `json:"topic"`
	Tone           string        `json:"tone"`
	Boundaries     string        `json:"boundaries"`
	Urgency        string        `json:"urgency,omitempty"`
	ContextSummary string        `json:"context_summary,omitempty"`
	Status         BringupStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

const MaxBringupThemes = 5

// CoupleLink associates two users as a couple for bring-up routing.
type CoupleLink struct {
	CoupleID string `json:"couple_id"`
	UserA    string `json:"user_a"`
	UserB    string `json:"user_b"`
	ProjectA string `json:"project_a"`
	ProjectB string `json:"project_b"`
	Status   string `json:"status"` // "active" | "inactive"
}

// AuditEvent is a per-turn trace record (spec.md §4.17).
type AuditEvent struct {
	Schema        string         `json:"schema"`
	TraceID       string         `json:"trace_id"`
	ProjectFull   string         `json:"project_full"`
	CleanUserMsg  string         `json:"clean_user_msg"`
	DoSearch      bool           `json:"do_search"`
	SearchLen     int            `json:"search_len"`
	ActiveExpert  string         `json:"active_expert"`
	Intent        string         `json:"intent"`
	Scope         string         `json:"scope"`
	LookupMode    bool           `json:"lookup_mode"`
	AnswerLen     int            `json:"answer_len"`
	ElapsedMS     int64          `json:"elapsed_ms"`
	DecisionCtx   map[string]any `json:"decision_ctx,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

const AuditSchemaV1 = "audit_event_v1"

// InterpretiveItem is one interpretive-memory entry with uncertainty + evidence.
type InterpretiveItem struct {
	Text        string `json:"text"`
	Uncertainty string `json:"uncertainty"` // low|medium|high
	Evidence    string `json:"evidence"`
	TurnIndex   int    `json:"turn_index"`
}

// Understanding is the interpretive-memory document (understanding.json).
type Understanding struct {
	Entities             []InterpretiveItem `json:"entities"`
	RelationshipDynamics []InterpretiveItem `json:"relationship_dynamics"`
	Themes               []InterpretiveItem `json:"themes"`
	ValuesGoals          []InterpretiveItem `json:"values_goals"`
	OpenAmbiguities      []InterpretiveItem `json:"open_ambiguities"`
	LastUpdatedTurn      int                `json:"last_updated_turn"`
}

const MaxInterpretiveItemsPerList = 12

// GlobalFact is one compact Tier-2M cross-project fact, shared between
// internal/store (which persists it) and internal/facts (which builds it).
type GlobalFact struct {
	Slot       FactSlot `json:"slot"`
	EntityKey  string   `json:"entity_key"`
	Claim      string   `json:"claim"`
	Confidence float64  `json:"confidence"`
}
