package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Frankh1982/projectos/internal/adapters"
	"github.com/Frankh1982/projectos/internal/aof"
	"github.com/Frankh1982/projectos/internal/audit"
	"github.com/Frankh1982/projectos/internal/bootstrap"
	"github.com/Frankh1982/projectos/internal/bringup"
	"github.com/Frankh1982/projectos/internal/ccg"
	"github.com/Frankh1982/projectos/internal/config"
	"github.com/Frankh1982/projectos/internal/constraints"
	"github.com/Frankh1982/projectos/internal/expertframe"
	"github.com/Frankh1982/projectos/internal/facts"
	"github.com/Frankh1982/projectos/internal/generator"
	"github.com/Frankh1982/projectos/internal/intent"
	"github.com/Frankh1982/projectos/internal/interpretive"
	"github.com/Frankh1982/projectos/internal/pathsan"
	"github.com/Frankh1982/projectos/internal/policy"
	"github.com/Frankh1982/projectos/internal/project"
	"github.com/Frankh1982/projectos/internal/retrieval"
	"github.com/Frankh1982/projectos/internal/safety"
	"github.com/Frankh1982/projectos/internal/shortcircuit"
	"github.com/Frankh1982/projectos/internal/store"
	"github.com/Frankh1982/projectos/internal/timeaware"
	"github.com/Frankh1982/projectos/internal/workerpool"
)

// pooledModel routes every model call through the pipeline's worker
// pool, so IntentClassifier, ContinuityClassifier, GroundedGenerator,
// and InterpretiveMemory extraction all run off the caller's goroutine
// without each needing to know the pool exists (spec.md §5).
type pooledModel struct {
	inner adapters.ModelCaller
	pool  *workerpool.Pool
}

func (m pooledModel) Chat(ctx context.Context, messages []adapters.Message) (string, error) {
	out := m.pool.Submit(ctx, func() (any, error) {
		return m.inner.Chat(ctx, messages)
	})
	res := <-out
	if res.Err != nil {
		return "", res.Err
	}
	s, _ := res.Value.(string)
	return s, nil
}

// Pipeline wires every stage package (spec.md §4) into the explicit
// order spec.md §9 asks for. Every collaborator is constructor-injected;
// there is no package-level state.
type Pipeline struct {
	Store       *store.Store
	Facts       *facts.Store
	Policy      *policy.Engine
	Model       adapters.ModelCaller
	Search      adapters.SearchProvider
	Artifacts   adapters.ArtifactReader
	Deliverables adapters.DeliverableRegistry
	Pool        *workerpool.Pool
	Log         *zap.SugaredLogger
	Cfg         config.Config
}

// New builds a Pipeline from its collaborators. search/artifacts/deliverables
// may be nil; every call site checks before using them so a deployment
// that hasn't wired search or the upload pipeline yet still runs.
func New(cfg config.Config, st *store.Store, model adapters.ModelCaller, search adapters.SearchProvider, artifacts adapters.ArtifactReader, deliverables adapters.DeliverableRegistry, log *zap.SugaredLogger) *Pipeline {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	pool := workerpool.New(cfg.MaxConcurrentModelCalls)
	return &Pipeline{
		Store:        st,
		Facts:        facts.New(st, log),
		Policy:       policy.New(),
		Model:        pooledModel{inner: model, pool: pool},
		Search:       search,
		Artifacts:    artifacts,
		Deliverables: deliverables,
		Pool:         pool,
		Log:          log,
		Cfg:          cfg,
	}
}

// TurnInput is everything the transport layer has gathered for one
// incoming chat turn.
type TurnInput struct {
	User                string
	Project             string
	Message             string
	RecentTurns         []adapters.Message // chat history strictly before this turn
	LastAssistantOutput string
	TurnIndex           int
}

// TurnOutput is the user-visible reply plus the identifiers AuditTrace
// and the transport layer need.
type TurnOutput struct {
	Answer      string
	TraceID     string
	Overridden  bool
	SafetyNote  safety.Reason
}

var recallQuestionRe = regexp.MustCompile(`(?i)\b(what('?s|\s+is)|do you (remember|know)|did i (say|mention|tell you))\b`)
var compareRe = regexp.MustCompile(`(?i)\b(compare|vs\.?|versus|difference between)\b`)

var workbookExtRe = regexp.MustCompile(`(?i)\.(xlsx?|xlsm)$`)
var workbookMIMEs = map[string]bool{
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel.sheet.macroenabled.12":                    true,
}

// recentWorkbookPaths implements RetrievalBuilder's Excel-bridge input
// (spec.md §4.8 item 5): the manifest's uploaded workbooks, oldest-first,
// so Build can take the most recent MaxExcelBridges.
func recentWorkbookPaths(manifest *project.Manifest) []string {
	if manifest == nil {
		return nil
	}
	var out []string
	for _, f := range manifest.RawFiles {
		if workbookMIMEs[f.MIME] || workbookExtRe.MatchString(f.OrigName) {
			out = append(out, f.Path)
		}
	}
	return out
}

var assumptionPhraseRe = regexp.MustCompile(`(?i)[^.!?\n]*\b(assum(?:e|ing|ption)|let'?s say|suppose)\b[^.!?\n]*[.!?]?`)

// extractAssumptionNotes implements RetrievalBuilder's assumption-binding
// input (spec.md §4.8 item 7): deterministically lifts any clause in the
// current turn where the user states or binds an assumption, so the
// generator treats it as durable context for this answer rather than
// silently forgetting it was stated.
func extractAssumptionNotes(msg string) []string {
	matches := assumptionPhraseRe.FindAllString(msg, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Run executes one full turn through every stage, in order:
// CommandShortCircuit -> FactStore.Append -> PolicyEngine.Gate ->
// IntentClassifier -> FactDistiller.MaybeRun (the intent feeds its
// recall-shaped trigger) -> RetrievalBuilder -> GroundedGenerator ->
// SafetyGate/ConstraintValidator -> AuditTrace.
func (p *Pipeline) Run(ctx context.Context, in TurnInput) (TurnOutput, error) {
	timer := audit.StartTimer()
	traceID := store.NewTraceID()
	pctx := NewContext(traceID)

	user := pathsan.SafeProjectName(in.User)
	proj := pathsan.SafeProjectName(in.Project)
	msg := strings.TrimSpace(in.Message)
	pctx.Set("user", user)
	pctx.Set("project", proj)

	if reply, handled, err := p.tryShortCircuit(ctx, user, proj, msg, pctx); handled {
		if err != nil {
			return TurnOutput{}, err
		}
		p.recordAudit(user, proj, pctx, msg, "short_circuit", reply, timer)
		return TurnOutput{Answer: reply, TraceID: traceID}, nil
	}

	st, err := p.Store.LoadState(user, proj)
	if err != nil {
		return TurnOutput{}, fmt.Errorf("load state: %w", err)
	}

	policyRules, err := p.Store.LoadMemoryPolicies(user)
	if err != nil {
		return TurnOutput{}, fmt.Errorf("load memory policies: %w", err)
	}
	p.Policy.SetRules(user, policyRules)

	if st.Boot == project.BootstrapNeedsGoal {
		if goal, ok := bootstrap.MaybeAdoptGoal(msg); ok {
			st.Goal = goal
			st.Boot = project.BootstrapActive
			pctx.Set("bootstrap_adopted_goal", true)
		}
	}

	wroteTier1 := p.captureFact(user, proj, msg, in.TurnIndex, pctx)
	st.FactsTurnCounter++
	if wroteTier1 {
		st.FactsDirty = true
	}

	classification, err := intent.Classify(ctx, p.Model, msg)
	if err != nil {
		p.Log.Warnw("intent classification failed, defaulting to misc", "trace_id", traceID, "err", err)
		classification = intent.Classification{Intent: intent.IntentMisc, Scope: intent.ScopeCurrentProject}
	}
	pctx.SetPath("intent.value", string(classification.Intent))

	recallShaped := classification.Intent == intent.IntentRecall || recallQuestionRe.MatchString(msg)
	if facts.ShouldDistill(wroteTier1, st.FactsTurnCounter, p.Cfg.FactsDistillEvery, st.FactsDirty, recallShaped) {
		if err := p.Facts.Distill(user, proj); err != nil {
			p.Log.Warnw("distill failed", "trace_id", traceID, "err", err)
		} else {
			st.FactsDirty = false
		}
	}

	recentTexts := renderRecent(boundHistory(in.RecentTurns, p.Cfg.MaxHistoryPairs))
	continuity, err := intent.ClassifyContinuity(ctx, p.Model, recentTexts, msg)
	if err != nil {
		continuity = intent.ContinuityResult{Continuity: intent.ContinuitySameTopic, FollowupOnly: true}
	}
	pctx.SetPath("intent.continuity", string(continuity.Continuity))

	answer, overridden, reason, err := p.generate(ctx, user, proj, msg, st, classification, continuity, in, pctx)
	if err != nil {
		return TurnOutput{}, err
	}

	if err := p.Store.SaveState(user, proj, st); err != nil {
		p.Log.Warnw("save state failed", "trace_id", traceID, "err", err)
	}

	// Fire-and-forget: interpretive memory extraction's own model call
	// already runs on the pool through p.Model, so this dispatch is a
	// plain goroutine rather than another Submit — nesting the same
	// bounded pool here could self-deadlock at low concurrency limits.
	turnIndex := in.TurnIndex
	allTurns := append(append([]adapters.Message{}, in.RecentTurns...), adapters.Message{Role: adapters.RoleUser, Content: msg})
	go func() {
		if err := interpretive.Run(context.Background(), p.Model, p.Store, user, proj, allTurns, answer, turnIndex); err != nil {
			p.Log.Warnw("interpretive memory update failed", "trace_id", traceID, "err", err)
		}
	}()

	p.recordAudit(user, proj, pctx, msg, string(classification.Intent), answer, timer)
	return TurnOutput{Answer: answer, TraceID: traceID, Overridden: overridden, SafetyNote: reason}, nil
}

// captureFact implements FactStore.Append's deterministic fallback path:
// the whole user message is the Tier-1 candidate (evidence is therefore
// trivially a verbatim substring of itself), gated by the reflective/
// question guard and the write-time policy check. Every written claim
// that the mirror gate clears also mirrors onto the user-global Tier-1G
// tier, whatever its slot, and triggers the Tier-2G/Tier-2M rebuilds;
// ClassifyClaimSlot's slot tag decides whether Tier-2G takes it in
// (spec.md §4.4/§4.6).
func (p *Pipeline) captureFact(user, proj, msg string, turnIndex int, pctx *Context) bool {
	if msg == "" {
		return false
	}
	candidate := project.RawFact{
		Claim:         msg,
		Slot:          facts.ClassifyClaimSlot(msg),
		Subject:       project.SubjectUser,
		Source:        "turn",
		EvidenceQuote: msg,
		TurnIndex:     turnIndex,
		Timestamp:     time.Now().UTC(),
	}
	candidate.EntityKey = facts.EnsureEntityKey("", candidate.Claim)
	result, err := p.Facts.AppendFactRawCandidate(user, proj, candidate, p.Policy)
	if err != nil {
		p.Log.Warnw("fact capture failed", "user", user, "project", proj, "err", err)
		return false
	}
	pctx.SetPath("facts.written", result.Written)
	if result.Reason != "" {
		pctx.SetPath("facts.reason", result.Reason)
	}

	if result.Written {
		decision := p.Policy.PolicyDecisionForTier1Claim(user, candidate.EntityKey, candidate.Claim)
		if decision.MirrorGlobal {
			p.mirrorToGlobal(user, candidate)
		}
	}
	return result.Written
}

// mirrorToGlobal appends a mirror-gated candidate onto the user-global
// Tier-1G tier, then rebuilds the Tier-2G identity kernel (a no-op unless
// the candidate is GlobalEligible) and the Tier-2M compact cross-project
// map.
// Best-effort: a mirror failure never fails the turn.
func (p *Pipeline) mirrorToGlobal(user string, candidate project.RawFact) {
	mirrorResult, err := p.Facts.AppendUserFactRawCandidate(user, candidate, p.Policy)
	if err != nil {
		p.Log.Warnw("global fact mirror failed", "user", user, "err", err)
		return
	}
	if !mirrorResult.Written {
		return
	}
	if err := p.Facts.RebuildTier2G(user, facts.GlobalEligible(candidate)); err != nil {
		p.Log.Warnw("tier2g rebuild failed", "user", user, "err", err)
	}
	if err := p.Facts.RebuildTier2M(user); err != nil {
		p.Log.Warnw("tier2m rebuild failed", "user", user, "err", err)
	}
}

// tryShortCircuit implements CommandShortCircuit (spec.md §4.1/§9):
// deterministic handling that never reaches the generator. Returns
// handled=false when the turn should proceed into the full pipeline.
func (p *Pipeline) tryShortCircuit(ctx context.Context, user, proj, msg string, pctx *Context) (string, bool, error) {
	if shortcircuit.IsPulseCommand(msg) {
		pctx.Set("short_circuit", "pulse")
		reply, err := p.Store.BuildTruthBoundPulse(user, proj)
		return reply, true, err
	}
	if shortcircuit.IsInboxCommand(msg) {
		pctx.Set("short_circuit", "inbox")
		queue, err := p.Store.ListBringupQueue(user, proj)
		if err != nil {
			return "", true, err
		}
		themes := bringup.RenderSessionStartThemes(queue)
		if len(themes) == 0 {
			return "Nothing queued right now.", true, nil
		}
		return strings.Join(themes, "\n"), true, nil
	}
	if shortcircuit.IsConstraintDeclaration(msg) {
		pctx.Set("short_circuit", "constraint_declaration")
		st, err := p.Store.LoadState(user, proj)
		if err != nil {
			return "", true, err
		}
		st.UserRules = append(st.UserRules, strings.TrimSpace(msg))
		if err := p.Store.SaveState(user, proj, st); err != nil {
			return "", true, err
		}
		return shortcircuit.UnderstoodReply, true, nil
	}
	if rule, ok := policy.ParseNLPolicyCommand(msg); ok {
		pctx.Set("short_circuit", "policy_command")
		rules, err := p.Store.LoadMemoryPolicies(user)
		if err != nil {
			return "", true, err
		}
		rules = append(rules, rule)
		if err := p.Store.SaveMemoryPolicies(user, rules); err != nil {
			return "", true, err
		}
		return shortcircuit.UnderstoodReply, true, nil
	}
	if cmd, ok := shortcircuit.ParseCommand(msg); ok {
		pctx.Set("short_circuit", "explicit_command")
		reply, err := p.runCommand(ctx, user, proj, cmd)
		return reply, true, err
	}

	if label, ok := expertframe.DetectExplicitSet(msg); ok {
		pctx.Set("short_circuit", "expert_frame_explicit_set")
		st, err := p.Store.LoadState(user, proj)
		if err != nil {
			return "", true, err
		}
		st.Expert = project.ExpertFrame{
			Status:    project.ExpertFrameActive,
			Label:     label,
			Directive: expertframe.DirectiveFor(label),
			SetReason: "explicit_set",
			UpdatedAt: time.Now().UTC(),
		}
		if err := p.Store.SaveState(user, proj, st); err != nil {
			return "", true, err
		}
		return "Locked into the \"" + label + "\" expert frame.", true, nil
	}

	st, err := p.Store.LoadState(user, proj)
	if err != nil {
		return "", true, err
	}

	if st.Expert.Status == project.ExpertFrameProposed && shortcircuit.IsYesNoReply(msg) {
		pctx.Set("short_circuit", "expert_frame_confirmation")
		return p.resolveExpertFrameProposal(user, proj, st, msg)
	}

	if st.PendingBringupDraft != nil && st.PendingBringupDraft.Pending && shortcircuit.IsYesNoReply(msg) {
		pctx.Set("short_circuit", "bringup_confirmation")
		return p.resolveBringupDraft(user, proj, st, msg)
	}

	if bringup.IsCouplesMode(user) {
		if topic, ok := bringup.DetectBringupRequest(msg); ok {
			pctx.Set("short_circuit", "bringup_draft_opened")
			draft := bringup.NewDraft(topic, msg)
			st.PendingBringupDraft = &draft
			if err := p.Store.SaveState(user, proj, st); err != nil {
				return "", true, err
			}
			return "Got it — want me to queue that for your partner to see next session? (yes/no)", true, nil
		}
	}

	return "", false, nil
}

// resolveBringupDraft finalizes or discards the pending couples-mode
// draft once the user answers the yes/no confirmation.
func (p *Pipeline) resolveBringupDraft(user, proj string, st *project.State, msg string) (string, bool, error) {
	draft := *st.PendingBringupDraft
	st.PendingBringupDraft = nil
	isYes := strings.HasPrefix(strings.ToLower(msg), "y")

	if !isYes {
		if err := p.Store.SaveState(user, proj, st); err != nil {
			return "", true, err
		}
		return bringup.DiscardPrompt, true, nil
	}

	if st.ActiveCoupleID == "" {
		if err := p.Store.SaveState(user, proj, st); err != nil {
			return "", true, err
		}
		return "I couldn't find an active couple link to send that to — ask your therapist to link you first.", true, nil
	}
	links, err := p.Store.LoadCouplesLinks(user)
	if err != nil {
		return "", true, err
	}
	link, ok := links[st.ActiveCoupleID]
	if !ok {
		if err := p.Store.SaveState(user, proj, st); err != nil {
			return "", true, err
		}
		return "I couldn't find that couple link anymore.", true, nil
	}
	toUser, toProj := partnerOf(link, user, proj)
	req := bringup.ConfirmYes(user, toUser, draft)
	saved, err := p.Store.AppendBringupRequest(toUser, toProj, req)
	if saveErr := p.Store.SaveState(user, proj, st); saveErr != nil && err == nil {
		err = saveErr
	}
	if err != nil {
		return "", true, err
	}
	return "Queued. id=" + saved.ID, true, nil
}

// resolveExpertFrameProposal finalizes or discards a pending Expert
// Frame Lock proposal once the user answers the yes/no confirmation.
func (p *Pipeline) resolveExpertFrameProposal(user, proj string, st *project.State, msg string) (string, bool, error) {
	isYes := strings.HasPrefix(strings.ToLower(strings.TrimSpace(msg)), "y")
	if !isYes {
		st.Expert = project.ExpertFrame{}
		if err := p.Store.SaveState(user, proj, st); err != nil {
			return "", true, err
		}
		return "Okay, staying with the general frame.", true, nil
	}
	st.Expert.Status = project.ExpertFrameActive
	st.Expert.UpdatedAt = time.Now().UTC()
	if err := p.Store.SaveState(user, proj, st); err != nil {
		return "", true, err
	}
	return "Locked into the \"" + st.Expert.Label + "\" expert frame for this project.", true, nil
}

// maybeProposeExpertFrame runs the EFL keyword library against the
// current turn once per project (status=="", not yet suppressed by
// real work) and, on a match, parks a proposal in st.Expert awaiting
// the user's yes/no. Returns a system note telling the generator to
// ask for that confirmation, or "" when nothing was proposed.
func (p *Pipeline) maybeProposeExpertFrame(user, proj string, st *project.State, msg string) string {
	if st.Expert.Status != project.ExpertFrameNone {
		return ""
	}
	decisions, err := p.Store.ListDecisions(user, proj)
	if err != nil {
		p.Log.Warnw("list decisions for expert frame suppression check", "err", err, "user", user, "project", proj)
	}
	if expertframe.Suppressed(st, len(decisions) > 0) {
		return ""
	}
	label, directive, reason, ok := expertframe.Infer(msg)
	if !ok {
		return ""
	}
	st.Expert = project.ExpertFrame{
		Status:    project.ExpertFrameProposed,
		Label:     label,
		Directive: directive,
		SetReason: reason,
		UpdatedAt: time.Now().UTC(),
	}
	return "EFL_PROPOSAL: the conversation suggests the \"" + label + "\" expert frame. End your answer by asking the user a short yes/no question offering to lock into that frame for this project."
}

// partnerOf resolves the other half of a CoupleLink relative to user.
func partnerOf(link project.CoupleLink, user, proj string) (string, string) {
	if user == link.UserA {
		return link.UserB, link.ProjectB
	}
	return link.UserA, link.ProjectA
}

// runCommand implements the explicit `!`/`/cmd` commands ws_commands.py
// documents: couple link/use are restricted to non-couple_* (therapist)
// accounts, bringup add/resolve to couple_* accounts. A CoupleLink is
// written into both partners' own couples_links documents so either
// side can resolve it without a separate therapist-scoped directory.
func (p *Pipeline) runCommand(ctx context.Context, user, proj string, cmd shortcircuit.Command) (string, error) {
	switch cmd.Kind {
	case shortcircuit.CmdOpen:
		return p.runOpen(user, proj, cmd.Filename)

	case shortcircuit.CmdCoupleLink:
		if bringup.IsCouplesMode(user) {
			return "", errors.New("couple link is a therapist-only command")
		}
		coupleID := "couple_" + cmd.UserA + "_" + cmd.UserB
		link := project.CoupleLink{CoupleID: coupleID, UserA: cmd.UserA, UserB: cmd.UserB, ProjectA: proj, ProjectB: proj, Status: "active"}
		for _, u := range []string{cmd.UserA, cmd.UserB} {
			links, err := p.Store.LoadCouplesLinks(u)
			if err != nil {
				return "", err
			}
			if links == nil {
				links = map[string]project.CoupleLink{}
			}
			links[coupleID] = link
			if err := p.Store.SaveCouplesLinks(u, links); err != nil {
				return "", err
			}
		}
		st, err := p.Store.LoadState(user, proj)
		if err != nil {
			return "", err
		}
		st.ActiveCoupleID = coupleID
		if err := p.Store.SaveState(user, proj, st); err != nil {
			return "", err
		}
		return "Linked. active_couple_id=" + coupleID, nil

	case shortcircuit.CmdCoupleUse:
		if bringup.IsCouplesMode(user) {
			return "", errors.New("couple use is a therapist-only command")
		}
		links, err := p.Store.LoadCouplesLinks(user)
		if err != nil {
			return "", err
		}
		link, ok := links[cmd.CoupleID]
		if !ok || link.Status != "active" {
			return "No active couple link: " + cmd.CoupleID, nil
		}
		st, err := p.Store.LoadState(user, proj)
		if err != nil {
			return "", err
		}
		st.ActiveCoupleID = cmd.CoupleID
		if err := p.Store.SaveState(user, proj, st); err != nil {
			return "", err
		}
		return "active_couple_id=" + cmd.CoupleID, nil

	case shortcircuit.CmdBringupAdd:
		if !bringup.IsCouplesMode(user) {
			return "", errors.New("bringup add is a couples-mode-only command")
		}
		st, err := p.Store.LoadState(user, proj)
		if err != nil {
			return "", err
		}
		if st.ActiveCoupleID == "" {
			return "No active couple link. Ask your therapist to link you first.", nil
		}
		links, err := p.Store.LoadCouplesLinks(user)
		if err != nil {
			return "", err
		}
		link, ok := links[st.ActiveCoupleID]
		if !ok {
			return "No active couple link found for " + st.ActiveCoupleID, nil
		}
		toUser, toProj := partnerOf(link, user, proj)
		req := project.BringupRequest{
			FromUser:   user,
			ToUser:     toUser,
			Topic:      bringup.Neutralize(cmd.Topic),
			Tone:       cmd.Tone,
			Boundaries: cmd.Boundaries,
			Urgency:    cmd.Urgency,
			Status:     project.BringupQueued,
		}
		saved, err := p.Store.AppendBringupRequest(toUser, toProj, req)
		if err != nil {
			return "", err
		}
		return "Bring-up queued. id=" + saved.ID, nil

	case shortcircuit.CmdBringupResolve:
		if !bringup.IsCouplesMode(user) {
			return "", errors.New("bringup resolve is a couples-mode-only command")
		}
		ok, err := p.Store.ResolveBringupRequest(user, proj, cmd.BringupID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "Bring-up not found: " + cmd.BringupID, nil
		}
		return "Resolved bring-up " + cmd.BringupID, nil

	case shortcircuit.CmdFactsNormalize:
		before, err := p.Store.ReadRawFacts(user, proj)
		if err != nil {
			return "", err
		}
		if err := p.Facts.NormalizeFactsRawJSONL(user, proj); err != nil {
			return "", err
		}
		after, err := p.Store.ReadRawFacts(user, proj)
		if err != nil {
			return "", err
		}
		dropped := len(before) - len(after)
		if dropped < 0 {
			dropped = 0
		}
		return fmt.Sprintf("facts_raw normalized: kept=%d dropped=%d", len(after), dropped), nil

	case shortcircuit.CmdTier2GRebuild:
		if err := p.Facts.RebuildTier2G(user, true); err != nil {
			return "", err
		}
		result := "t2g rebuild ok"
		if err := p.Facts.RebuildTier2M(user); err != nil {
			result += fmt.Sprintf(" (tier2m rebuild skipped: %v)", err)
		} else {
			result += "; tier2m rebuild ok"
		}
		return result, nil

	case shortcircuit.CmdLedger:
		return p.runLedger(cmd)
	}
	return "", errors.New("unrecognized command")
}

// runLedger answers "!ledger trace|intent|since ..." against the derived
// SQLite audit_events mirror (internal/store's auditIndex).
func (p *Pipeline) runLedger(cmd shortcircuit.Command) (string, error) {
	var rows []store.LedgerRow
	var err error
	switch cmd.LedgerMode {
	case shortcircuit.LedgerByTrace:
		rows, err = p.Store.LedgerByTraceID(cmd.LedgerTraceID)
	case shortcircuit.LedgerByIntent:
		rows, err = p.Store.LedgerByIntent(cmd.LedgerIntent, cmd.LedgerLimit)
	case shortcircuit.LedgerSince:
		var since time.Time
		since, err = parseLedgerSince(cmd.LedgerSince)
		if err != nil {
			return "Couldn't parse that time: " + err.Error(), nil
		}
		rows, err = p.Store.LedgerSince(since)
	default:
		return "", errors.New("unrecognized ledger query")
	}
	if err != nil {
		return "", err
	}
	return renderLedgerRows(rows), nil
}

// parseLedgerSince accepts either a duration relative to now ("24h",
// "15m") or an absolute RFC3339 timestamp.
func parseLedgerSince(s string) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().UTC().Add(-d), nil
	}
	return time.Parse(time.RFC3339, s)
}

func renderLedgerRows(rows []store.LedgerRow) string {
	if len(rows) == 0 {
		return "No matching ledger entries."
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%s  trace=%s intent=%s scope=%s answer_len=%d elapsed_ms=%d\n",
			r.Timestamp.Format(time.RFC3339), r.TraceID, r.Intent, r.Scope, r.AnswerLen, r.ElapsedMS)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (p *Pipeline) runOpen(user, proj, filename string) (string, error) {
	manifest, err := p.Store.LoadManifest(user, proj)
	if err != nil {
		return "", err
	}
	for _, f := range manifest.RawFiles {
		if f.OrigName == filename || f.SavedName == filename {
			return "/file?path=" + f.Path, nil
		}
	}
	for _, a := range manifest.Artifacts {
		if a.Filename == filename {
			return "/file?path=" + a.Path, nil
		}
	}
	return "Not found in this project: " + filename, nil
}

// generate runs IntentClassifier's downstream stages: RetrievalBuilder,
// GroundedGenerator, SafetyGate/ConstraintValidator, including CKSG's
// one bounded regeneration attempt and the constraint-violation retry.
func (p *Pipeline) generate(ctx context.Context, user, proj, msg string, st *project.State, classification intent.Classification, continuity intent.ContinuityResult, in TurnInput, pctx *Context) (string, bool, safety.Reason, error) {
	lookupMode := classification.Intent == intent.IntentLookup
	var evidence *adapters.SearchEvidence
	if lookupMode && p.Search != nil {
		ev, err := p.Search.Evidence(ctx, msg)
		if err != nil {
			p.Log.Warnw("search evidence failed", "err", err)
		} else {
			evidence = ev
		}
	}

	aoPtr, err := p.Store.LoadActiveObject(user, proj)
	if err != nil {
		p.Log.Warnw("load active object failed", "err", err)
	}
	aofDecision := aof.Evaluate(msg, aoPtr != nil)
	var activeAOF *project.ActiveObject
	if aofDecision.InScope {
		activeAOF = aoPtr
	}
	hasSemantics := p.aofHasSemantics(ctx, user+"/"+proj, activeAOF)

	raw, err := p.Store.ReadRawFacts(user, proj)
	if err != nil {
		p.Log.Warnw("read raw facts failed", "err", err)
	}
	compact := p.Policy.FilterResurfaceable(user, facts.CompactFromRaw(raw))

	manifest, err := p.Store.LoadManifest(user, proj)
	if err != nil {
		p.Log.Warnw("load manifest failed", "err", err)
	}
	recentWorkbooks := recentWorkbookPaths(manifest)
	assumptionNotes := extractAssumptionNotes(msg)

	profile, err := p.Store.LoadUserProfile(user)
	if err != nil {
		p.Log.Warnw("load profile failed", "err", err)
	}
	globalFacts, err := p.Store.LoadUserGlobalFactsMap(user)
	if err != nil {
		p.Log.Warnw("load global facts failed", "err", err)
	}

	snippets, err := retrieval.Build(ctx, p.Artifacts, user+"/"+proj, retrieval.Input{
		State:            st,
		Facts:            compact,
		Profile:          profile,
		GlobalFacts:      globalFacts,
		AOF:              activeAOF,
		AOFHasSemantics:  hasSemantics,
		ComparisonIntent: compareRe.MatchString(msg),
		RecentWorkbooks:  recentWorkbooks,
		SearchEvidence:   evidence,
		AssumptionNotes:  assumptionNotes,
	})
	if err != nil {
		p.Log.Warnw("retrieval build failed", "err", err)
	}

	recentTexts := renderRecent(boundHistory(in.RecentTurns, p.Cfg.MaxHistoryPairs))
	commitment := ccg.ExtractCommitment(recentTexts, msg)
	ckcl := ""
	if commitment.Committed && ccg.IsCrowdKnowledgeIntent(msg) {
		ckcl = ccg.CKCLSystemNote
	}
	ccgNote := ""
	if commitment.Committed {
		ccgNote = ccg.CommitmentSystemNote
	}

	loc := timeaware.ResolveLocation(profile.Identity.Timezone)
	now := time.Now()
	timeBlock := timeaware.Block(now, loc, profile.Identity.Birthdate)
	if anchor, ok := timeaware.DetectAnchor(msg, now, loc.String()); ok {
		st.TimeAnchors = timeaware.AppendAnchor(st.TimeAnchors, anchor)
	}
	timeBlock += timeaware.RenderAnchors(st.TimeAnchors, now)

	bringupNote := ""
	if bringup.IsCouplesMode(user) {
		queue, err := p.Store.ListBringupQueue(user, proj)
		if err == nil {
			if themes := bringup.RenderSessionStartThemes(queue); len(themes) > 0 {
				bringupNote = strings.Join(themes, "\n")
			}
		}
	}

	yesNoNote := ""
	includeLastOutput := false
	if shortcircuit.IsYesNoReply(msg) && shortcircuit.AssistantAskedYesNo(in.LastAssistantOutput) {
		yesNoNote = shortcircuit.BuildYesNoBindingNote(in.LastAssistantOutput, msg)
		includeLastOutput = true
	}

	continuityNote := ""
	if continuity.Continuity == intent.ContinuityNewTopic && !continuity.FollowupOnly {
		continuityNote = "The user appears to have shifted to a new topic; do not assume it continues the previous thread."
	}

	eflNote := p.maybeProposeExpertFrame(user, proj, st, msg)

	c := constraints.Compile(st.UserRules, msg, st.Expert.Label)

	genInput := generator.Input{
		Intent:                     classification.Intent,
		ProjectMode:                st.Mode,
		Expert:                     st.Expert,
		LookupMode:                 lookupMode,
		SearchEvidence:             evidence,
		CKCLNote:                   ckcl,
		OnrampNote:                 generator.DefaultOnrampNote(st.Boot),
		TimeBlock:                  timeBlock,
		BringupNote:                bringupNote,
		RecentTurns:                boundHistory(in.RecentTurns, p.Cfg.MaxHistoryPairs),
		IncludeLastAssistantOutput: includeLastOutput,
		LastAssistantOutput:        in.LastAssistantOutput,
		ContinuityNote:             continuityNote,
		YesNoNote:                  yesNoNote,
		CCGNote:                    ccgNote,
		AnalysisHatNote:            generator.ExpertBehavioralNote(st.Expert),
		EFLProposalNote:            eflNote,
		CanonicalSnippets:          snippets,
		UserMessage:                msg,
	}
	messages := generator.BuildMessages(genInput)

	answer, err := p.Model.Chat(ctx, messages)
	if err != nil {
		return "", false, safety.ReasonNone, fmt.Errorf("generate: %w", err)
	}

	if ccg.HasStallMarker(answer) {
		retryMessages := append(append([]adapters.Message{}, messages...), adapters.Message{Role: adapters.RoleSystem, Content: ccg.CKSGEnforcementNote})
		if regenerated, err := p.Model.Chat(ctx, retryMessages); err == nil {
			answer = regenerated
		}
	}
	answer = ccg.StripRefusalPreamble(answer)

	if violations := constraints.Validate(answer, c); len(violations) > 0 {
		retryMessages := append(append([]adapters.Message{}, messages...), adapters.Message{Role: adapters.RoleSystem, Content: constraints.BuildRetrySystemNote(c, violations)})
		if regenerated, err := p.Model.Chat(ctx, retryMessages); err == nil {
			answer = regenerated
		}
	}

	truthBoundPulse := ""
	if classification.Intent == intent.IntentStatus {
		if pulse, err := p.Store.BuildTruthBoundPulse(user, proj); err == nil {
			truthBoundPulse = pulse
		} else {
			p.Log.Warnw("build truth-bound pulse failed", "err", err)
		}
	}

	safetyResult := safety.Evaluate(safety.Input{
		Intent:                 classification.Intent,
		ModelAnswer:            answer,
		TruthBoundPulse:        truthBoundPulse,
		HasPulseSnippet:        hasPulseSnippet(snippets),
		Snippets:               snippets,
		PartnerContextInjected: bringup.IsCouplesMode(user) && bringupNote != "",
		AOFExcerpt:             aofExcerptFor(activeAOF),
	})
	pctx.SetPath("safety.overridden", safetyResult.Overridden)
	if safetyResult.Overridden {
		pctx.SetPath("safety.reason", string(safetyResult.Reason))
	}

	return safetyResult.Answer, safetyResult.Overridden, safetyResult.Reason, nil
}

func hasPulseSnippet(snippets []retrieval.Snippet) bool {
	for _, s := range snippets {
		if s.Label == "PROJECT_STATE_JSON" {
			return true
		}
	}
	return false
}

func aofExcerptFor(ao *project.ActiveObject) string {
	if ao == nil {
		return ""
	}
	return ao.OrigName
}

// aofHasSemantics reports whether a cached image_semantics artifact
// exists for the active object, and — when the object is an image and
// none exists yet — requests one on demand (aof.NeedsImageSemantics,
// spec.md §4.7) without blocking the turn on the result.
func (p *Pipeline) aofHasSemantics(ctx context.Context, projectKey string, ao *project.ActiveObject) bool {
	if ao == nil || p.Artifacts == nil {
		return false
	}
	art, err := p.Artifacts.FindLatestForFile(ctx, projectKey, ao.RelPath, adapters.ArtifactImageSemantics)
	hasSemantics := err == nil && art != nil

	if req, ok := aof.NeedsImageSemantics(ao.RelPath, ao.MIME, hasSemantics); ok {
		go func() {
			if err := p.Artifacts.RequestImageSemantics(context.Background(), projectKey, req.RelPath, req.Reason); err != nil {
				p.Log.Warnw("image semantics request failed", "rel_path", req.RelPath, "err", err)
			}
		}()
	}
	return hasSemantics
}

// recordAudit renders this turn's AuditTrace entry (spec.md §4.17).
func (p *Pipeline) recordAudit(user, proj string, pctx *Context, cleanMsg, intentStr, answer string, timer audit.Timer) {
	rec := audit.TurnRecord{
		TraceID:      pctx.TraceID,
		User:         user,
		Proj:         proj,
		CleanUserMsg: cleanMsg,
		Intent:       intentStr,
		Scope:        intent.ScopeCurrentProject,
		AnswerLen:    len(answer),
		ElapsedMS:    timer.ElapsedMS(),
		DecisionCtx:  pctx.Decision,
	}
	if err := audit.Record(p.Store, rec); err != nil {
		p.Log.Warnw("audit append failed", "trace_id", pctx.TraceID, "err", err)
	}
}

// boundHistory caps turns to the most recent maxPairs user/assistant pairs.
func boundHistory(turns []adapters.Message, maxPairs int) []adapters.Message {
	maxMsgs := maxPairs * 2
	if maxMsgs <= 0 || len(turns) <= maxMsgs {
		return turns
	}
	return turns[len(turns)-maxMsgs:]
}

func renderRecent(turns []adapters.Message) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, string(t.Role)+": "+t.Content)
	}
	return out
}
