package testutil

import (
	"context"
	"math"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestDeterministicVector(t *testing.T) {
	t.Parallel()

	a := deterministicVector("hello world", 768)
	b := deterministicVector("hello world", 768)
	c := deterministicVector("something else", 768)

	if len(a) != 768 {
		t.Fatalf("vector length = %d, want 768", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same content produced different vectors at index %d", i)
		}
	}

	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different content produced identical vectors")
	}

	// Unit norm
	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-5 {
		t.Errorf("vector norm = %f, want 1.0", math.Sqrt(norm))
	}
}

func TestMockEmbedder_SetVector(t *testing.T) {
	t.Parallel()

	e := NewMockEmbedder(3)
	e.SetVector("pinned", []float32{1, 0, 0})

	got := e.vectorFor("pinned")
	if got[0] != 1 || got[1] != 0 || got[2] != 0 {
		t.Errorf("vectorFor(pinned) = %v, want [1 0 0]", got)
	}

	// Unpinned content falls back to the hash-derived vector.
	other := e.vectorFor("other")
	if len(other) != 3 {
		t.Errorf("fallback vector length = %d, want 3", len(other))
	}
}

func TestMockModel_PatternMatching(t *testing.T) {
	t.Parallel()

	m := NewMockModel("I don't know.")
	m.AddResponse("capital of france", "Paris [Source 1]")

	req := &ai.ModelRequest{
		Messages: []*ai.Message{
			ai.NewSystemTextMessage("Answer using the provided context."),
			ai.NewUserTextMessage("What is the capital of France?"),
		},
	}

	resp, err := m.generate(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := resp.Message.Text(); got != "Paris [Source 1]" {
		t.Errorf("response = %q, want pattern match", got)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens == 0 {
		t.Error("expected non-zero token usage")
	}

	// Unmatched message gets the fallback.
	resp, err = m.generate(context.Background(), &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserTextMessage("unrelated")},
	}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := resp.Message.Text(); got != "I don't know." {
		t.Errorf("response = %q, want fallback", got)
	}

	calls := m.Calls()
	if len(calls) != 2 {
		t.Fatalf("recorded %d calls, want 2", len(calls))
	}
	if calls[0].System == "" {
		t.Error("first call should record the system message")
	}
}
