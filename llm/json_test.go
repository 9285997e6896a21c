package llm

import "testing"

type probe struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func TestDecodeJSONPlainObject(t *testing.T) {
	out, err := DecodeJSON[probe](`{"label":"question","confidence":0.9}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Label != "question" || out.Confidence != 0.9 {
		t.Errorf("unexpected decode result: %+v", out)
	}
}

func TestDecodeJSONStripsFences(t *testing.T) {
	raw := "```json\n{\"label\":\"greeting\",\"confidence\":0.8}\n```"
	out, err := DecodeJSON[probe](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Label != "greeting" {
		t.Errorf("expected label greeting, got %q", out.Label)
	}
}

func TestDecodeJSONExtractsEmbeddedObject(t *testing.T) {
	raw := `Sure, here is the classification: {"label":"command","confidence":0.7} hope that helps`
	out, err := DecodeJSON[probe](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Label != "command" {
		t.Errorf("expected label command, got %q", out.Label)
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	if _, err := DecodeJSON[probe]("not json at all"); err == nil {
		t.Fatal("expected decode error")
	}
}
