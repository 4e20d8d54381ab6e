package store

import (
	"fmt"
	"strings"
)

const MaxPulseDecisions = 5
const MaxPulseUploads = 5

// BuildTruthBoundPulse renders the deterministic "Project Pulse" snapshot
// that spec.md §4.13/§8 requires intent=status replies to match
// byte-for-byte. It reads only durable state — no model call, no
// invented content (spec.md §4.15's "invented pulse tokens" guard exists
// because nothing outside this function is allowed to answer "status").
func (s *Store) BuildTruthBoundPulse(user, proj string) (string, error) {
	st, err := s.LoadState(user, proj)
	if err != nil {
		return "", err
	}
	manifest, err := s.LoadManifest(user, proj)
	if err != nil {
		return "", err
	}
	decisions, err := s.ListDecisions(user, proj)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Project Pulse\n")
	b.WriteString("=============\n")
	fmt.Fprintf(&b, "Goal: %s\n", orNotSet(st.Goal))
	fmt.Fprintf(&b, "Mode: %s\n", string(st.Mode))
	fmt.Fprintf(&b, "Bootstrap: %s\n", string(st.Boot))
	if st.Expert.Status != "" {
		fmt.Fprintf(&b, "Expert frame: %s (%s)\n", orNotSet(st.Expert.Label), string(st.Expert.Status))
	}
	if st.CurrentFocus != "" {
		fmt.Fprintf(&b, "Focus: %s\n", st.CurrentFocus)
	}

	recent := RecentDecisionsDesc(decisions, MaxPulseDecisions)
	b.WriteString("\nRecent decisions:\n")
	if len(recent) == 0 {
		b.WriteString("- (none recorded)\n")
	} else {
		for _, d := range recent {
			fmt.Fprintf(&b, "- %s\n", d.Text)
		}
	}

	b.WriteString("\nRecent uploads:\n")
	uploads := manifest.RawFiles
	if len(uploads) > MaxPulseUploads {
		uploads = uploads[len(uploads)-MaxPulseUploads:]
	}
	if len(uploads) == 0 {
		b.WriteString("- (none)\n")
	} else {
		for i := len(uploads) - 1; i >= 0; i-- {
			fmt.Fprintf(&b, "- %s\n", uploads[i].OrigName)
		}
	}

	if len(st.NextActions) > 0 {
		b.WriteString("\nNext actions:\n")
		for _, a := range st.NextActions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}

	return b.String(), nil
}

func orNotSet(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not set yet"
	}
	return s
}
