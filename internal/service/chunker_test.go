package service

import (
	"strings"
	"testing"

	"github.com/csrental/cees/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta() domain.ChunkMetadata {
	return domain.ChunkMetadata{
		DocumentID: "doc-1",
		Filename:   "handleiding.txt",
		MimeType:   "text/plain",
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
	assert.Equal(t, 3, estimateTokens("twaalf chars"))
}

func TestOverlapText(t *testing.T) {
	assert.Equal(t, "d e", overlapText("a b c d e", 2))
	assert.Equal(t, "a b c d e", overlapText("a b c d e", 50))
}

func TestSplitIntoChunks_Empty(t *testing.T) {
	chunks := SplitIntoChunks("", testMeta(), DefaultChunkConfig())
	assert.Empty(t, chunks)

	chunks = SplitIntoChunks("...!!!???", testMeta(), DefaultChunkConfig())
	assert.Empty(t, chunks)
}

func TestSplitIntoChunks_SingleChunk(t *testing.T) {
	chunks := SplitIntoChunks("Eerste zin. Tweede zin!", testMeta(), DefaultChunkConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, "Eerste zin  Tweede zin", chunks[0].Content)
	assert.Equal(t, 6, chunks[0].Tokens)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
	assert.Equal(t, "handleiding.txt", chunks[0].Metadata.Filename)
}

func TestSplitIntoChunks_OverlapCarriesTrailingWords(t *testing.T) {
	text := "aaaa bbbb cccc. dddd eeee ffff. gggg hhhh iiii."
	cfg := ChunkConfig{ChunkSize: 8, Overlap: 2}

	chunks := SplitIntoChunks(text, testMeta(), cfg)

	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, "aaaa bbbb cccc  dddd eeee ffff", chunks[0].Content)
	assert.Equal(t, 8, chunks[0].Tokens)

	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Equal(t, "eeee ffff  gggg hhhh iiii", chunks[1].Content)
	assert.Equal(t, 7, chunks[1].Tokens)
}

func TestSplitIntoChunks_LongDocument(t *testing.T) {
	sentence := strings.TrimSpace(strings.Repeat("woordje ", 125))
	text := sentence + ". " + sentence + ". " + sentence + "."

	chunks := SplitIntoChunks(text, testMeta(), DefaultChunkConfig())

	require.GreaterOrEqual(t, len(chunks), 2)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.NotEmpty(t, c.Content)
		assert.Greater(t, c.Tokens, 0)
	}
}

func TestSplitIntoChunks_OversizedSentenceStaysWhole(t *testing.T) {
	// A single sentence larger than the budget cannot be split further.
	sentence := strings.TrimSpace(strings.Repeat("woord ", 600))

	chunks := SplitIntoChunks(sentence+".", testMeta(), DefaultChunkConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, sentence, chunks[0].Content)
}
