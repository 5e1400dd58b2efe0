// Package answer turns retrieved chunks into a grounded model response with
// source citations and token accounting.
package answer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/paperstack/paperstack/internal/backoff"
	"github.com/paperstack/paperstack/internal/log"
	"github.com/paperstack/paperstack/internal/retrieve"
)

// NoContextAnswer is returned verbatim when retrieval finds nothing and the
// policy is to decline rather than answer from model weights.
const NoContextAnswer = "I don't have enough information in the selected documents to answer that question."

// Policy controls what happens when retrieval returns no chunks.
type Policy string

const (
	// PolicyDecline refuses to answer without retrieved context.
	PolicyDecline Policy = "decline"
	// PolicyUngrounded answers from model knowledge, flagged as
	// ungrounded and without citations.
	PolicyUngrounded Policy = "ungrounded"
)

const systemPrompt = `You are a helpful assistant that answers questions strictly based on the provided document excerpts.

IMPORTANT RULES:
1. Only use information from the provided sources to answer questions
2. If the answer is not in the sources, clearly state: "` + NoContextAnswer + `"
3. Always cite your sources using the [Source N] format when making claims
4. Be concise but comprehensive
5. If multiple sources support a claim, cite all relevant sources
6. Do not make up information or use external knowledge

When citing sources, use the format: "According to [Source 1], ..." or "... [Source 2, Source 3]"`

// Citation points a reader back to the document text behind an answer.
type Citation struct {
	Source    int       `json:"source"`
	DocID     uuid.UUID `json:"doc_id"`
	Filename  string    `json:"filename,omitempty"`
	PageStart int       `json:"page_start,omitempty"`
	PageEnd   int       `json:"page_end,omitempty"`
	Snippet   string    `json:"snippet"`
}

// Usage carries provider token counts for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Answer is the synthesized response.
type Answer struct {
	Text      string
	Citations []Citation
	Usage     Usage
	// Grounded is false when the model answered without retrieved
	// context under PolicyUngrounded, or declined.
	Grounded bool
}

// HistoryMessage is one prior turn passed back to the model.
type HistoryMessage struct {
	Role    string // "user" or "assistant"
	Content string
}

// Config controls generation.
type Config struct {
	ModelName   string
	Temperature float64
	MaxTokens   int
	Policy      Policy
	Retry       backoff.Config
}

// generateFunc matches genkit.Generate with the registry bound, so tests can
// substitute a fake model.
type generateFunc func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)

// Synthesizer builds prompts from retrieved chunks and calls the model.
//
// Synthesizer is safe for concurrent use.
type Synthesizer struct {
	generate generateFunc
	cfg      Config
	logger   log.Logger
}

// New creates a Synthesizer bound to a Genkit instance.
func New(g *genkit.Genkit, cfg Config, logger log.Logger) (*Synthesizer, error) {
	if g == nil {
		return nil, fmt.Errorf("answer: genkit instance is nil")
	}
	gen := func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, g, opts...)
	}
	return newWithGenerate(gen, cfg, logger)
}

func newWithGenerate(gen generateFunc, cfg Config, logger log.Logger) (*Synthesizer, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("answer: model name is empty")
	}
	switch cfg.Policy {
	case PolicyDecline, PolicyUngrounded:
	default:
		return nil, fmt.Errorf("answer: unknown policy %q", cfg.Policy)
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialInterval == 0 {
		cfg.Retry = backoff.DefaultConfig()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Synthesizer{generate: gen, cfg: cfg, logger: logger}, nil
}

// Synthesize answers the question from the given chunks. filenames maps doc
// IDs to display names for citations; missing entries leave Filename empty.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []retrieve.Result, history []HistoryMessage, filenames map[uuid.UUID]string) (*Answer, error) {
	if len(chunks) == 0 {
		return s.answerWithoutContext(ctx, question, history)
	}

	userPrompt := buildUserPrompt(question, chunks)
	opts := []ai.GenerateOption{
		ai.WithModelName(s.cfg.ModelName),
		ai.WithSystem(systemPrompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     s.cfg.Temperature,
			MaxOutputTokens: s.cfg.MaxTokens,
		}),
	}
	if msgs := historyMessages(history); len(msgs) > 0 {
		opts = append(opts, ai.WithMessages(msgs...))
	}
	opts = append(opts, ai.WithPrompt(userPrompt))

	resp, err := backoff.Do(ctx, s.cfg.Retry, s.logger, "generate",
		func(ctx context.Context) (*ai.ModelResponse, error) {
			return s.generate(ctx, opts...)
		})
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.Text())
	ans := &Answer{
		Text:      text,
		Citations: buildCitations(text, chunks, filenames),
		Usage:     usageFrom(resp),
		Grounded:  true,
	}
	s.logger.Debug("synthesized answer",
		"chunks", len(chunks),
		"citations", len(ans.Citations),
		"tokens", ans.Usage.TotalTokens,
	)
	return ans, nil
}

// answerWithoutContext handles the empty-retrieval case per policy.
func (s *Synthesizer) answerWithoutContext(ctx context.Context, question string, history []HistoryMessage) (*Answer, error) {
	if s.cfg.Policy == PolicyDecline {
		return &Answer{Text: NoContextAnswer, Grounded: false}, nil
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(s.cfg.ModelName),
		ai.WithSystem("You are a helpful assistant. No document context is available for this question; answer from general knowledge and say so."),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     s.cfg.Temperature,
			MaxOutputTokens: s.cfg.MaxTokens,
		}),
	}
	if msgs := historyMessages(history); len(msgs) > 0 {
		opts = append(opts, ai.WithMessages(msgs...))
	}
	opts = append(opts, ai.WithPrompt(question))

	resp, err := backoff.Do(ctx, s.cfg.Retry, s.logger, "generate",
		func(ctx context.Context) (*ai.ModelResponse, error) {
			return s.generate(ctx, opts...)
		})
	if err != nil {
		return nil, err
	}
	return &Answer{
		Text:     strings.TrimSpace(resp.Text()),
		Usage:    usageFrom(resp),
		Grounded: false,
	}, nil
}

// buildUserPrompt numbers each chunk as [Source N] with its page range so
// the model can cite and readers can follow the reference back.
func buildUserPrompt(question string, chunks []retrieve.Result) string {
	var b strings.Builder
	b.WriteString("Context from documents:\n\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[Source %d]%s:\n%s\n\n", i+1, pageInfo(chunk), chunk.Content)
	}
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Please answer the question based only on the context provided above. Remember to cite your sources.")
	return b.String()
}

func pageInfo(chunk retrieve.Result) string {
	if chunk.PageStart == 0 {
		return ""
	}
	if chunk.PageEnd != 0 && chunk.PageEnd != chunk.PageStart {
		return fmt.Sprintf(" (Pages %d-%d)", chunk.PageStart, chunk.PageEnd)
	}
	return fmt.Sprintf(" (Page %d)", chunk.PageStart)
}

var (
	sourceRefPattern = regexp.MustCompile(`\[Source[^\]]*\]`)
	digitPattern     = regexp.MustCompile(`\d+`)
)

// citedSources parses [Source N] references out of the answer text. Comma
// groups like [Source 2, Source 3] count every listed source.
func citedSources(text string) map[int]bool {
	cited := make(map[int]bool)
	for _, match := range sourceRefPattern.FindAllString(text, -1) {
		for _, num := range digitPattern.FindAllString(match, -1) {
			if n, err := strconv.Atoi(num); err == nil {
				cited[n] = true
			}
		}
	}
	return cited
}

// buildCitations produces one citation per source the answer text
// actually references, ordered by source number. Retrieved chunks the
// model never cited do not appear.
func buildCitations(text string, chunks []retrieve.Result, filenames map[uuid.UUID]string) []Citation {
	cited := citedSources(text)

	var citations []Citation
	for i, chunk := range chunks {
		if !cited[i+1] {
			continue
		}
		citations = append(citations, Citation{
			Source:    i + 1,
			DocID:     chunk.DocID,
			Filename:  filenames[chunk.DocID],
			PageStart: chunk.PageStart,
			PageEnd:   chunk.PageEnd,
			Snippet:   snippet(chunk.Content),
		})
	}
	return citations
}

// snippet truncates chunk content to a short, stable preview.
func snippet(content string) string {
	const maxLen = 197
	if len(content) <= maxLen {
		return content
	}
	cut := content[:maxLen]
	// Avoid splitting a multi-byte rune at the boundary.
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}

func historyMessages(history []HistoryMessage) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(history))
	for _, h := range history {
		role := ai.RoleUser
		if h.Role == "assistant" {
			role = ai.RoleModel
		}
		msgs = append(msgs, &ai.Message{
			Role:    role,
			Content: []*ai.Part{ai.NewTextPart(h.Content)},
		})
	}
	return msgs
}

func usageFrom(resp *ai.ModelResponse) Usage {
	if resp.Usage == nil {
		return Usage{}
	}
	return Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
}
