package draft

import (
	"strings"
	"testing"
)

func TestSuggestPrompts(t *testing.T) {
	got := SuggestPrompts("Завтра расскажу про вертушки и немного про психолога... ПСИХОЛОГ")
	if len(got) != 2 {
		t.Fatalf("want 2 prompts, got %d: %+v", len(got), got)
	}
	// Table order, one per keyword.
	if got[0].Keyword != "психолог" || got[1].Keyword != "вертушки" {
		t.Fatalf("unexpected keywords: %+v", got)
	}
	for _, p := range got {
		if !strings.Contains(p.Text, "grunge aesthetic") {
			t.Fatalf("style suffix missing: %q", p.Text)
		}
	}
}

func TestSuggestPromptsNoMatch(t *testing.T) {
	if got := SuggestPrompts("обычный пост без ключевых слов"); len(got) != 0 {
		t.Fatalf("want no prompts, got %+v", got)
	}
}

func TestFindings(t *testing.T) {
	text := "As an AI — я не могу. В заключение скажу: в заключение."
	got := Findings(text)
	if len(got) != 3 {
		t.Fatalf("want 3 findings, got %d: %+v", len(got), got)
	}
	seen := map[string]int{}
	for _, f := range got {
		seen[f.Phrase]++
	}
	if seen["в заключение"] != 1 {
		t.Fatalf("repeated phrase must be reported once: %+v", got)
	}
}

func TestFindingsClean(t *testing.T) {
	if got := Findings("короткий злой пост - без артефактов"); len(got) != 0 {
		t.Fatalf("clean draft flagged: %+v", got)
	}
}
