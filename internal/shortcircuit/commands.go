package shortcircuit

import (
	"strconv"
	"strings"
)

// CommandKind enumerates the explicit "!cmd" / "/cmd cmd" ws-style
// commands ported from ws_commands.py's explicit-prefix command router.
type CommandKind string

const (
	CmdOpen           CommandKind = "open"
	CmdCoupleLink     CommandKind = "couple_link"
	CmdCoupleUse      CommandKind = "couple_use"
	CmdBringupAdd     CommandKind = "bringup_add"
	CmdBringupResolve CommandKind = "bringup_resolve"
	CmdFactsNormalize CommandKind = "facts_normalize"
	CmdTier2GRebuild  CommandKind = "tier2g_rebuild"
	CmdLedger         CommandKind = "ledger"
)

// LedgerMode enumerates the !ledger query shapes.
type LedgerMode string

const (
	LedgerByTrace  LedgerMode = "trace"
	LedgerByIntent LedgerMode = "intent"
	LedgerSince    LedgerMode = "since"
)

// Command is one parsed explicit command, ready for the pipeline to
// execute against the relevant package.
type Command struct {
	Kind       CommandKind
	Filename   string
	UserA      string
	UserB      string
	CoupleID   string
	Topic      string
	Tone       string
	Boundaries string
	Urgency    string
	BringupID  string

	LedgerMode    LedgerMode
	LedgerTraceID string
	LedgerIntent  string
	LedgerLimit   int
	LedgerSince   string
}

// ParseCommand recognizes the explicit command prefixes ("!cmd" or
// "/cmd cmd") and parses the command body. Without one of these
// prefixes the message must fall through to the normal pipeline — this
// mirrors ws_commands.py's "Expert Primacy" gating exactly.
func ParseCommand(raw string) (Command, bool) {
	text, ok := stripCommandPrefix(raw)
	if !ok {
		return Command{}, false
	}
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.HasPrefix(lower, "open "):
		name := strings.TrimSpace(text[len("open "):])
		if name == "" {
			return Command{}, false
		}
		return Command{Kind: CmdOpen, Filename: name}, true

	case strings.HasPrefix(lower, "couple link "):
		rest := thirdField(text)
		a, b, ok := splitPipe2(rest)
		if !ok {
			return Command{}, false
		}
		return Command{Kind: CmdCoupleLink, UserA: a, UserB: b}, true

	case strings.HasPrefix(lower, "couple use "):
		id := thirdField(text)
		if id == "" {
			return Command{}, false
		}
		return Command{Kind: CmdCoupleUse, CoupleID: id}, true

	case strings.HasPrefix(lower, "bringup add "):
		rest := thirdField(text)
		parts := splitPipeAll(rest)
		if len(parts) < 3 {
			return Command{}, false
		}
		cmd := Command{Kind: CmdBringupAdd, Topic: parts[0], Tone: parts[1], Boundaries: parts[2]}
		if len(parts) >= 4 {
			cmd.Urgency = parts[3]
		}
		return cmd, true

	case strings.HasPrefix(lower, "bringup resolve "):
		id := thirdField(text)
		if id == "" {
			return Command{}, false
		}
		return Command{Kind: CmdBringupResolve, BringupID: id}, true

	case lower == "facts normalize":
		return Command{Kind: CmdFactsNormalize}, true

	case lower == "t2g rebuild" || lower == "tier2g rebuild":
		return Command{Kind: CmdTier2GRebuild}, true

	case strings.HasPrefix(lower, "ledger trace "):
		id := strings.TrimSpace(text[len("ledger trace "):])
		if id == "" {
			return Command{}, false
		}
		return Command{Kind: CmdLedger, LedgerMode: LedgerByTrace, LedgerTraceID: id}, true

	case strings.HasPrefix(lower, "ledger intent "):
		rest := strings.TrimSpace(text[len("ledger intent "):])
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return Command{}, false
		}
		limit := 20
		if len(fields) >= 2 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
				limit = n
			}
		}
		return Command{Kind: CmdLedger, LedgerMode: LedgerByIntent, LedgerIntent: fields[0], LedgerLimit: limit}, true

	case strings.HasPrefix(lower, "ledger since "):
		since := strings.TrimSpace(text[len("ledger since "):])
		if since == "" {
			return Command{}, false
		}
		return Command{Kind: CmdLedger, LedgerMode: LedgerSince, LedgerSince: since}, true
	}

	return Command{}, false
}

// stripCommandPrefix recognizes "!<command>" or "/cmd <command>" and
// returns the command body; ok=false if neither prefix is present.
func stripCommandPrefix(raw string) (string, bool) {
	if strings.HasPrefix(raw, "!") {
		return strings.TrimLeft(raw[1:], " "), true
	}
	if strings.HasPrefix(strings.ToLower(raw), "/cmd") {
		return strings.TrimLeft(raw[len("/cmd"):], " "), true
	}
	return "", false
}

// thirdField returns everything after the command's first two
// space-separated tokens (e.g. "couple link a | b" -> "a | b").
func thirdField(text string) string {
	fields := strings.SplitN(text, " ", 3)
	if len(fields) < 3 {
		return ""
	}
	return strings.TrimSpace(fields[2])
}

func splitPipe2(s string) (string, string, bool) {
	if !strings.Contains(s, "|") {
		return "", "", false
	}
	parts := strings.SplitN(s, "|", 2)
	a, b := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

func splitPipeAll(s string) []string {
	raw := strings.Split(s, "|")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
