package service

import (
	"strings"
	"testing"

	"github.com/csrental/cees/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSystemPromptFor(t *testing.T) {
	technical := SystemPromptFor(domain.ChatModeTechnical)
	assert.Contains(t, technical, "CSrental")
	assert.Contains(t, technical, "CeeS")
	assert.Contains(t, technical, "Troubleshooting en onderhoud")

	inkoop := SystemPromptFor(domain.ChatModeInkoop)
	assert.Contains(t, inkoop, "CSrental")
	assert.Contains(t, inkoop, "ChriS")
	assert.Contains(t, inkoop, "Prijsvergelijkingen van leveranciers")

	unknown := SystemPromptFor(domain.ChatMode("ONBEKEND"))
	assert.Contains(t, unknown, "CSrental")
	assert.NotContains(t, unknown, "CeeS")
	assert.NotContains(t, unknown, "ChriS")
}

func TestBuildContextBlock_Empty(t *testing.T) {
	assert.Empty(t, BuildContextBlock(nil))
	assert.Empty(t, BuildContextBlock([]*RetrievedChunk{}))
}

func TestBuildContextBlock_FormatsChunks(t *testing.T) {
	chunks := []*RetrievedChunk{
		{Filename: "handleiding.txt", Content: "Draai de schroef los."},
		{Filename: "specs.md", Content: strings.Repeat("x", 300)},
	}

	block := BuildContextBlock(chunks)

	assert.True(t, strings.HasPrefix(block, "\n\nRelevante informatie uit documenten:\n"))
	assert.Contains(t, block, "- handleiding.txt: Draai de schroef los....")
	assert.Contains(t, block, "- specs.md: "+strings.Repeat("x", 200)+"...")
	assert.NotContains(t, block, strings.Repeat("x", 201))
}
