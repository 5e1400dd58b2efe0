// Package chunker splits extracted document text into token-budgeted,
// overlapping chunks suitable for embedding and retrieval.
//
// Token counts use the cl100k_base encoding. Chunks target a fixed token
// budget with a fixed overlap, prefer to break at sentence boundaries near
// the end of the budget, and carry the page range they were drawn from so
// answers can cite pages.
package chunker

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/paperstack/paperstack/internal/pdf"
)

const encodingName = "cl100k_base"

// Chunk is one contiguous slice of document text.
type Chunk struct {
	Content    string
	Index      int
	PageStart  int
	PageEnd    int
	Section    string
	TokenCount int
}

// Config controls how text is split.
type Config struct {
	// ChunkSize is the target token budget per chunk.
	ChunkSize int
	// Overlap is how many tokens of the previous chunk's tail start the
	// next chunk.
	Overlap int
	// MinChunkSize drops trailing fragments smaller than this many tokens,
	// unless the fragment is the document's only chunk.
	MinChunkSize int
}

// Chunker splits documents using a shared token encoder.
//
// Chunker is safe for concurrent use.
type Chunker struct {
	cfg Config
	enc *tiktoken.Tiktoken
}

// New creates a Chunker. It fails if the configuration is inconsistent or
// the token encoding cannot be loaded.
//
// tiktoken fetches the cl100k_base table over the network the first time
// it loads. Set TIKTOKEN_CACHE_DIR to a pre-populated directory to run
// offline, in CI or in air-gapped deployments.
func New(cfg Config) (*Chunker, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunker: overlap %d must be in [0, %d)", cfg.Overlap, cfg.ChunkSize)
	}
	if cfg.MinChunkSize < 0 {
		return nil, fmt.Errorf("chunker: min chunk size must not be negative, got %d", cfg.MinChunkSize)
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("chunker: load %s encoding: %w", encodingName, err)
	}
	return &Chunker{cfg: cfg, enc: enc}, nil
}

// CountTokens returns the number of cl100k_base tokens in text.
func (c *Chunker) CountTokens(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// token pairs a decoded token string with its page of origin.
type token struct {
	text string
	page int
}

// Split chunks the document's pages. Page boundaries are preserved as
// provenance: each chunk records the first and last page it draws text from.
func (c *Chunker) Split(doc *pdf.Document) []Chunk {
	var tokens []token
	for i, page := range doc.Pages {
		text := page.Text
		if i > 0 {
			text = "\n\n" + text
		}
		ids := c.enc.Encode(text, nil, nil)
		for _, id := range ids {
			tokens = append(tokens, token{
				text: c.enc.Decode([]int{id}),
				page: page.Number,
			})
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(tokens) {
		end := start + c.cfg.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		} else {
			end = c.sentenceBreak(tokens, start, end)
		}

		chunk := c.buildChunk(tokens[start:end], len(chunks))
		// A trailing fragment below the minimum is dropped; its text is
		// already covered by the previous chunk's overlap window or is
		// too small to retrieve usefully on its own.
		if chunk.TokenCount < c.cfg.MinChunkSize && len(chunks) > 0 {
			break
		}
		chunks = append(chunks, chunk)

		if end == len(tokens) {
			break
		}
		start = end - c.cfg.Overlap
	}
	return chunks
}

// sentenceBreak searches the final 20% of the budget window for a sentence
// end and returns the position just after it, or end unchanged if no
// sentence boundary is found in that window.
func (c *Chunker) sentenceBreak(tokens []token, start, end int) int {
	window := c.cfg.ChunkSize / 5
	lo := end - window
	if lo <= start {
		lo = start + 1
	}
	for i := end - 1; i >= lo; i-- {
		if endsSentence(tokens[i].text) {
			return i + 1
		}
	}
	return end
}

func endsSentence(tok string) bool {
	trimmed := strings.TrimRight(tok, " \n\t\"')]")
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

func (c *Chunker) buildChunk(tokens []token, index int) Chunk {
	var b strings.Builder
	pageStart, pageEnd := tokens[0].page, tokens[0].page
	for _, t := range tokens {
		b.WriteString(t.text)
		if t.page < pageStart {
			pageStart = t.page
		}
		if t.page > pageEnd {
			pageEnd = t.page
		}
	}
	content := strings.TrimSpace(b.String())
	return Chunk{
		Content:    content,
		Index:      index,
		PageStart:  pageStart,
		PageEnd:    pageEnd,
		Section:    sectionHeading(content),
		TokenCount: len(tokens),
	}
}

// sectionHeading guesses a section label from the chunk's first line when it
// looks like a heading. Best effort only; retrieval works without it.
func sectionHeading(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 80 {
		return ""
	}
	// Headings rarely end with sentence punctuation.
	switch line[len(line)-1] {
	case '.', ',', ';', ':':
		return ""
	}
	if strings.Count(line, " ") > 9 {
		return ""
	}
	return line
}
