package bringup

import (
	"strings"
	"testing"

	"github.com/Frankh1982/projectos/internal/project"
)

func TestIsCouplesMode(t *testing.T) {
	if !IsCouplesMode("couple_alex_sam") {
		t.Error("expected couple_ prefix to be couples mode")
	}
	if IsCouplesMode("alex") {
		t.Error("expected non-prefixed user to not be couples mode")
	}
}

func TestDetectBringupRequest_ConservativeMatch(t *testing.T) {
	topic, ok := DetectBringupRequest("Can you bring up that I need more notice before plans change?")
	if !ok || topic == "" {
		t.Fatal("expected a conservative bring-up match")
	}
}

func TestDetectBringupRequest_NoMatchOnVenting(t *testing.T) {
	_, ok := DetectBringupRequest("I'm just frustrated that plans keep changing.")
	if ok {
		t.Error("expected plain venting to not trigger a bring-up request")
	}
}

func TestNeutralize(t *testing.T) {
	out := strings.ToLower(Neutralize("I feel like you don't respect my time."))
	for _, banned := range []string{"i feel", " you ", " my "} {
		if strings.Contains(out, banned) {
			t.Errorf("expected %q to be neutralized out of %q", banned, out)
		}
	}
}

func TestRenderSessionStartThemes_CapsAtMaxAndNoAttribution(t *testing.T) {
	var queue []project.BringupRequest
	for i := 0; i < project.MaxBringupThemes+2; i++ {
		queue = append(queue, project.BringupRequest{
			FromUser: "alex", Topic: "theme", Status: project.BringupQueued,
		})
	}
	themes := RenderSessionStartThemes(queue)
	if len(themes) != project.MaxBringupThemes {
		t.Fatalf("len = %d, want %d", len(themes), project.MaxBringupThemes)
	}
	for _, theme := range themes {
		if strings.Contains(strings.ToLower(theme), "alex") {
			t.Errorf("theme leaked attribution: %q", theme)
		}
	}
}
