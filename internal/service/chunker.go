package service

import (
	"regexp"
	"strings"

	"github.com/csrental/cees/internal/domain"
)

// ChunkConfig controls how extracted text is split before embedding.
type ChunkConfig struct {
	// ChunkSize is the token budget per chunk.
	ChunkSize int
	// Overlap is the number of trailing words carried into the next chunk.
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 500,
		Overlap:   50,
	}
}

var sentenceSplitter = regexp.MustCompile(`[.!?]+`)

// estimateTokens approximates the token count of a piece of text.
// Rough estimation: 1 token is about 4 characters for English/Dutch text.
func estimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// overlapText returns the trailing words of a chunk that seed the next one.
func overlapText(text string, overlapTokens int) string {
	words := strings.Split(text, " ")
	n := overlapTokens
	if n > len(words) {
		n = len(words)
	}
	return strings.Join(words[len(words)-n:], " ")
}

// SplitIntoChunks splits text into sentence-aligned chunks with overlap.
// Sentences are delimited by runs of '.', '!' and '?'. A chunk closes as
// soon as adding the next sentence would exceed the token budget; the new
// chunk starts with the previous chunk's trailing words so context is not
// lost at the boundary.
func SplitIntoChunks(text string, meta domain.ChunkMetadata, cfg ChunkConfig) []domain.DocumentChunk {
	if cfg.ChunkSize <= 0 {
		cfg = DefaultChunkConfig()
	}

	var sentences []string
	for _, s := range sentenceSplitter.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}

	var chunks []domain.DocumentChunk
	currentChunk := ""
	currentTokens := 0
	chunkIndex := 0

	for _, sentence := range sentences {
		sentenceTokens := estimateTokens(sentence)

		if currentTokens+sentenceTokens > cfg.ChunkSize && len(currentChunk) > 0 {
			chunks = append(chunks, domain.DocumentChunk{
				DocumentID: meta.DocumentID,
				ChunkIndex: chunkIndex,
				Content:    strings.TrimSpace(currentChunk),
				Tokens:     currentTokens,
				Metadata:   meta,
			})
			chunkIndex++

			currentChunk = overlapText(currentChunk, cfg.Overlap) + " " + sentence
			currentTokens = estimateTokens(currentChunk)
		} else {
			currentChunk += " " + sentence
			currentTokens += sentenceTokens
		}
	}

	if strings.TrimSpace(currentChunk) != "" {
		chunks = append(chunks, domain.DocumentChunk{
			DocumentID: meta.DocumentID,
			ChunkIndex: chunkIndex,
			Content:    strings.TrimSpace(currentChunk),
			Tokens:     currentTokens,
			Metadata:   meta,
		})
	}

	return chunks
}
