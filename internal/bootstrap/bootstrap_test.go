package bootstrap

import "testing"

func TestMaybeAdoptGoal_AdoptsSubstantiveMessage(t *testing.T) {
	goal, ok := MaybeAdoptGoal("Rebuild the onboarding flow so new users finish signup in under two minutes")
	if !ok {
		t.Fatal("expected adoption")
	}
	if goal == "" {
		t.Error("expected non-empty goal")
	}
}

func TestMaybeAdoptGoal_RejectsShortMessage(t *testing.T) {
	if _, ok := MaybeAdoptGoal("fix it"); ok {
		t.Error("expected rejection of a too-short message")
	}
}

func TestMaybeAdoptGoal_RejectsGreeting(t *testing.T) {
	if _, ok := MaybeAdoptGoal("Hey there, good morning!"); ok {
		t.Error("expected rejection of a greeting")
	}
}

func TestMaybeAdoptGoal_RejectsCommand(t *testing.T) {
	if _, ok := MaybeAdoptGoal("!couple link alex | sam and some extra padding text"); ok {
		t.Error("expected rejection of a command-shaped message")
	}
}

func TestMaybeAdoptGoal_RejectsOverlongMessage(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	if _, ok := MaybeAdoptGoal(string(long)); ok {
		t.Error("expected rejection of an over-long message")
	}
}
