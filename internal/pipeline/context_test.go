package pipeline

import "testing"

func TestSetPath_CreatesIntermediateMaps(t *testing.T) {
	c := NewContext("trace-1")
	c.SetPath("retrieval.snippets.count", 3)

	retrieval, ok := c.Decision["retrieval"].(map[string]any)
	if !ok {
		t.Fatal("expected retrieval to be a nested map")
	}
	snippets, ok := retrieval["snippets"].(map[string]any)
	if !ok {
		t.Fatal("expected snippets to be a nested map")
	}
	if snippets["count"] != 3 {
		t.Errorf("got %v, want 3", snippets["count"])
	}
}

func TestSetPath_OverwritesExistingLeaf(t *testing.T) {
	c := NewContext("trace-1")
	c.SetPath("intent.value", "recall")
	c.SetPath("intent.value", "status")

	intent := c.Decision["intent"].(map[string]any)
	if intent["value"] != "status" {
		t.Errorf("got %v, want status", intent["value"])
	}
}

func TestMergeShallow_OverwritesTopLevelKeys(t *testing.T) {
	c := NewContext("trace-1")
	c.Set("intent", "recall")
	c.MergeShallow(map[string]any{"intent": "status", "scope": "current_project"})

	if c.Decision["intent"] != "status" {
		t.Errorf("got %v, want status", c.Decision["intent"])
	}
	if c.Decision["scope"] != "current_project" {
		t.Errorf("got %v, want current_project", c.Decision["scope"])
	}
}

func TestMergeShallow_DoesNotTouchUnrelatedKeys(t *testing.T) {
	c := NewContext("trace-1")
	c.Set("preserved", "value")
	c.MergeShallow(map[string]any{"new_key": "new_value"})

	if c.Decision["preserved"] != "value" {
		t.Error("expected unrelated key to survive a shallow merge")
	}
}
