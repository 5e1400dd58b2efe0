package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/backoff"
	"github.com/paperstack/paperstack/internal/log"
	"github.com/paperstack/paperstack/internal/retrieve"
)

func modelResponse(text string) *ai.ModelResponse {
	return &ai.ModelResponse{
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(text)},
		},
		Usage: &ai.GenerationUsage{
			InputTokens:  120,
			OutputTokens: 45,
			TotalTokens:  165,
		},
	}
}

func testSynthesizer(t *testing.T, gen generateFunc, policy Policy) *Synthesizer {
	t.Helper()
	s, err := newWithGenerate(gen, Config{
		ModelName:   "googleai/gemini-2.5-flash",
		Temperature: 0.3,
		MaxTokens:   1000,
		Policy:      policy,
		Retry:       backoff.Config{MaxRetries: 1, InitialInterval: 1, MaxInterval: 1},
	}, log.NewNop())
	if err != nil {
		t.Fatalf("newWithGenerate() error = %v", err)
	}
	return s
}

func sampleChunks(docID uuid.UUID) []retrieve.Result {
	return []retrieve.Result{
		{ChunkID: uuid.New(), DocID: docID, Content: "Revenue grew 12% in Q3.", PageStart: 4, PageEnd: 4, Similarity: 0.92},
		{ChunkID: uuid.New(), DocID: docID, Content: "Costs were flat year over year.", PageStart: 7, PageEnd: 9, Similarity: 0.81},
	}
}

func TestSynthesizeBuildsNumberedContext(t *testing.T) {
	docID := uuid.New()
	gen := func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		return modelResponse("Revenue grew 12% [Source 1]."), nil
	}
	s := testSynthesizer(t, gen, PolicyDecline)

	ans, err := s.Synthesize(context.Background(), "How did revenue do?", sampleChunks(docID), nil,
		map[uuid.UUID]string{docID: "q3-report.pdf"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !ans.Grounded {
		t.Error("Grounded = false, want true")
	}
	if ans.Usage.TotalTokens != 165 {
		t.Errorf("TotalTokens = %d, want 165", ans.Usage.TotalTokens)
	}

	gotPrompt := buildUserPrompt("How did revenue do?", sampleChunks(docID))
	for _, want := range []string{
		"[Source 1] (Page 4):",
		"[Source 2] (Pages 7-9):",
		"Revenue grew 12% in Q3.",
		"Question: How did revenue do?",
	} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
}

func TestSynthesizeCitations(t *testing.T) {
	docID := uuid.New()
	gen := func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		return modelResponse("Costs were flat [Source 2]."), nil
	}
	s := testSynthesizer(t, gen, PolicyDecline)

	ans, err := s.Synthesize(context.Background(), "What about costs?", sampleChunks(docID), nil,
		map[uuid.UUID]string{docID: "q3-report.pdf"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	// Only the referenced source is cited. The uncited first chunk must
	// not be included as filler.
	if len(ans.Citations) != 1 {
		t.Fatalf("len(Citations) = %d, want 1", len(ans.Citations))
	}
	if ans.Citations[0].Source != 2 {
		t.Errorf("Citations[0].Source = %d, want 2", ans.Citations[0].Source)
	}
	if ans.Citations[0].Filename != "q3-report.pdf" {
		t.Errorf("Filename = %q, want q3-report.pdf", ans.Citations[0].Filename)
	}
	if ans.Citations[0].PageStart != 7 || ans.Citations[0].PageEnd != 9 {
		t.Errorf("pages = %d-%d, want 7-9", ans.Citations[0].PageStart, ans.Citations[0].PageEnd)
	}
}

func TestSynthesizeDeclinesWithoutContext(t *testing.T) {
	gen := func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		t.Fatal("model should not be called when declining")
		return nil, nil
	}
	s := testSynthesizer(t, gen, PolicyDecline)

	ans, err := s.Synthesize(context.Background(), "Anything?", nil, nil, nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if ans.Text != NoContextAnswer {
		t.Errorf("Text = %q, want the standard decline answer", ans.Text)
	}
	if ans.Grounded {
		t.Error("Grounded = true for declined answer")
	}
	if len(ans.Citations) != 0 {
		t.Errorf("len(Citations) = %d, want 0", len(ans.Citations))
	}
}

func TestSynthesizeUngroundedPolicy(t *testing.T) {
	calls := 0
	gen := func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		calls++
		return modelResponse("From general knowledge: probably."), nil
	}
	s := testSynthesizer(t, gen, PolicyUngrounded)

	ans, err := s.Synthesize(context.Background(), "Anything?", nil, nil, nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("model calls = %d, want 1", calls)
	}
	if ans.Grounded {
		t.Error("Grounded = true for ungrounded answer")
	}
	if len(ans.Citations) != 0 {
		t.Errorf("len(Citations) = %d, want 0", len(ans.Citations))
	}
}

func TestSynthesizeRetriesTransientError(t *testing.T) {
	calls := 0
	gen := func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("503 model overloaded")
		}
		return modelResponse("Second try answer [Source 1]."), nil
	}
	s := testSynthesizer(t, gen, PolicyDecline)

	ans, err := s.Synthesize(context.Background(), "q", sampleChunks(uuid.New()), nil, nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("model calls = %d, want 2", calls)
	}
	if !strings.Contains(ans.Text, "Second try") {
		t.Errorf("Text = %q", ans.Text)
	}
}

func TestSynthesizePermanentError(t *testing.T) {
	gen := func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		return nil, errors.New("API key not valid")
	}
	s := testSynthesizer(t, gen, PolicyDecline)

	if _, err := s.Synthesize(context.Background(), "q", sampleChunks(uuid.New()), nil, nil); err == nil {
		t.Error("Synthesize() should propagate permanent model errors")
	}
}

func TestCitedSources(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"single", "According to [Source 1], yes.", []int{1}},
		{"comma group", "It holds [Source 2, Source 3].", []int{2, 3}},
		{"multiple refs", "[Source 1] and later [Source 4].", []int{1, 4}},
		{"no refs", "No citations here.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := citedSources(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("citedSources(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for _, n := range tt.want {
				if !got[n] {
					t.Errorf("source %d not detected in %q", n, tt.text)
				}
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	short := "short content"
	if got := snippet(short); got != short {
		t.Errorf("snippet(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("a", 300)
	got := snippet(long)
	if len(got) != 200 {
		t.Errorf("len(snippet(long)) = %d, want 200", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("snippet(long) = %q, want ... suffix", got[190:])
	}

	// Deterministic across calls.
	if snippet(long) != got {
		t.Error("snippet not deterministic")
	}
}

func TestPageInfo(t *testing.T) {
	tests := []struct {
		name  string
		chunk retrieve.Result
		want  string
	}{
		{"no pages", retrieve.Result{}, ""},
		{"single page", retrieve.Result{PageStart: 3, PageEnd: 3}, " (Page 3)"},
		{"page range", retrieve.Result{PageStart: 3, PageEnd: 5}, " (Pages 3-5)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pageInfo(tt.chunk); got != tt.want {
				t.Errorf("pageInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}
