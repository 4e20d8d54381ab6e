package shortcircuit

import "testing"

func TestIsPulseCommand(t *testing.T) {
	cases := map[string]bool{
		"pulse":              true,
		"Status?":            true,
		"what's the status":  true,
		"resume":             true,
		"what is going on with this project in detail please": false,
	}
	for msg, want := range cases {
		if got := IsPulseCommand(msg); got != want {
			t.Errorf("IsPulseCommand(%q) = %v, want %v", msg, got, want)
		}
	}
}

func TestIsInboxCommand(t *testing.T) {
	if !IsInboxCommand("inbox") {
		t.Error("expected bare 'inbox' to match")
	}
	if IsInboxCommand("check my inbox for messages from the team please") {
		t.Error("expected long sentence to not match")
	}
}

func TestIsConstraintDeclaration(t *testing.T) {
	if !IsConstraintDeclaration("no questions") {
		t.Error("expected 'no questions' to be a declaration")
	}
	if !IsConstraintDeclaration("Never say \"synergy\".") {
		t.Error("expected never-say form to be a declaration")
	}
	if IsConstraintDeclaration("I have no questions about the budget for this project") {
		t.Error("expected ordinary sentence mentioning 'no questions' mid-text to not match")
	}
}

func TestIsYesNoReply(t *testing.T) {
	for _, msg := range []string{"yes", "Yes.", "no", "nope", "y", "n"} {
		if !IsYesNoReply(msg) {
			t.Errorf("expected %q to be a yes/no reply", msg)
		}
	}
	if IsYesNoReply("yes, but only if we finish the budget first") {
		t.Error("expected a qualified sentence to not match bare yes/no")
	}
}

func TestAssistantAskedYesNo(t *testing.T) {
	if !AssistantAskedYesNo("Do you want me to proceed?") {
		t.Error("expected trailing ? to count as a yes/no question")
	}
	if AssistantAskedYesNo("Here is the summary you asked for.") {
		t.Error("expected a non-question to not match")
	}
}

func TestBuildYesNoBindingNote(t *testing.T) {
	note := BuildYesNoBindingNote("Do you want me to proceed?", "yes")
	if note == "" {
		t.Fatal("expected a non-empty note")
	}
}

func TestParseCommand_RequiresExplicitPrefix(t *testing.T) {
	if _, ok := ParseCommand("open budget.xlsx"); ok {
		t.Error("expected no match without a ! or /cmd prefix")
	}
}

func TestParseCommand_Open(t *testing.T) {
	cmd, ok := ParseCommand("!open budget.xlsx")
	if !ok || cmd.Kind != CmdOpen || cmd.Filename != "budget.xlsx" {
		t.Fatalf("got %+v, ok=%v", cmd, ok)
	}
}

func TestParseCommand_OpenViaSlashCmd(t *testing.T) {
	cmd, ok := ParseCommand("/cmd open budget.xlsx")
	if !ok || cmd.Kind != CmdOpen || cmd.Filename != "budget.xlsx" {
		t.Fatalf("got %+v, ok=%v", cmd, ok)
	}
}

func TestParseCommand_CoupleLink(t *testing.T) {
	cmd, ok := ParseCommand("!couple link alex | sam")
	if !ok || cmd.Kind != CmdCoupleLink || cmd.UserA != "alex" || cmd.UserB != "sam" {
		t.Fatalf("got %+v, ok=%v", cmd, ok)
	}
}

func TestParseCommand_CoupleLink_MissingPipeFails(t *testing.T) {
	if _, ok := ParseCommand("!couple link alex sam"); ok {
		t.Error("expected missing pipe separator to fail")
	}
}

func TestParseCommand_CoupleUse(t *testing.T) {
	cmd, ok := ParseCommand("!couple use couple_alex_sam")
	if !ok || cmd.Kind != CmdCoupleUse || cmd.CoupleID != "couple_alex_sam" {
		t.Fatalf("got %+v, ok=%v", cmd, ok)
	}
}

func TestParseCommand_BringupAdd_WithUrgency(t *testing.T) {
	cmd, ok := ParseCommand("!bringup add more notice before plans change | gentle | no blame | high")
	if !ok || cmd.Kind != CmdBringupAdd {
		t.Fatalf("got %+v, ok=%v", cmd, ok)
	}
	if cmd.Topic != "more notice before plans change" || cmd.Tone != "gentle" || cmd.Boundaries != "no blame" || cmd.Urgency != "high" {
		t.Errorf("unexpected fields: %+v", cmd)
	}
}

func TestParseCommand_BringupAdd_WithoutUrgency(t *testing.T) {
	cmd, ok := ParseCommand("!bringup add topic | tone | boundary")
	if !ok || cmd.Urgency != "" {
		t.Fatalf("got %+v, ok=%v", cmd, ok)
	}
}

func TestParseCommand_BringupAdd_TooFewFieldsFails(t *testing.T) {
	if _, ok := ParseCommand("!bringup add topic | tone"); ok {
		t.Error("expected missing boundaries field to fail")
	}
}

func TestParseCommand_BringupResolve(t *testing.T) {
	cmd, ok := ParseCommand("!bringup resolve b-123")
	if !ok || cmd.Kind != CmdBringupResolve || cmd.BringupID != "b-123" {
		t.Fatalf("got %+v, ok=%v", cmd, ok)
	}
}

func TestParseCommand_FactsNormalize(t *testing.T) {
	cmd, ok := ParseCommand("!facts normalize")
	if !ok || cmd.Kind != CmdFactsNormalize {
		t.Fatalf("got %+v, ok=%v", cmd, ok)
	}
}

func TestParseCommand_Tier2GRebuild_BothSpellings(t *testing.T) {
	for _, msg := range []string{"!t2g rebuild", "!tier2g rebuild"} {
		cmd, ok := ParseCommand(msg)
		if !ok || cmd.Kind != CmdTier2GRebuild {
			t.Fatalf("ParseCommand(%q) = %+v, ok=%v", msg, cmd, ok)
		}
	}
}

func TestParseCommand_UnknownCommandFails(t *testing.T) {
	if _, ok := ParseCommand("!frobnicate everything"); ok {
		t.Error("expected unknown command to not match")
	}
}
