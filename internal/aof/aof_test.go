package aof

import "testing"

func TestEvaluate_NoActiveObject(t *testing.T) {
	d := Evaluate("ok", false)
	if d.InScope {
		t.Fatal("expected no focus in scope with no active object")
	}
}

func TestEvaluate_TrivialAckKeepsFocus(t *testing.T) {
	d := Evaluate("ok", true)
	if !d.InScope || d.Reason != "trivial_ack" {
		t.Errorf("got %+v, want in-scope trivial_ack", d)
	}
}

func TestEvaluate_UserNamesFileDropsFocus(t *testing.T) {
	d := Evaluate("can you open budget.xlsx instead", true)
	if d.InScope {
		t.Errorf("expected focus dropped when a new file is named, got %+v", d)
	}
}

func TestEvaluate_TopicBreakDropsFocus(t *testing.T) {
	d := Evaluate("let's talk about something else entirely", true)
	if d.InScope {
		t.Errorf("expected focus dropped on topic break, got %+v", d)
	}
}

func TestEvaluate_NewGenericImageDropsFocus(t *testing.T) {
	d := Evaluate("generate a new image of a sunset", true)
	if d.InScope {
		t.Errorf("expected focus dropped on new generic image request, got %+v", d)
	}
}

func TestEvaluate_ShortNounPhraseKeepsFocus(t *testing.T) {
	d := Evaluate("the top right corner", true)
	if !d.InScope {
		t.Errorf("expected short noun-phrase continuation to keep focus, got %+v", d)
	}
}

func TestNeedsImageSemantics(t *testing.T) {
	req, ok := NeedsImageSemantics("uploads/a.png", "image/png", false)
	if !ok || req.RelPath != "uploads/a.png" {
		t.Fatalf("expected a semantics request, got ok=%v req=%+v", ok, req)
	}
	if _, ok := NeedsImageSemantics("uploads/a.png", "image/png", true); ok {
		t.Error("expected no request when semantics already cached")
	}
	if _, ok := NeedsImageSemantics("uploads/a.pdf", "application/pdf", false); ok {
		t.Error("expected no request for a non-image active object")
	}
}
