package service

import (
	"fmt"
	"strings"

	"github.com/csrental/cees/internal/domain"
)

const basePrompt = `Je bent een AI assistent voor CSrental, een bedrijf gespecialiseerd in verhuur van bouwmachines en technische apparatuur. Je communiceert altijd in het Nederlands en bent behulpzaam, professioneel en accuraat.`

const technicalPrompt = basePrompt + `

Je bent CeeS, de technische kennis chatbot. Je helpt met:
- Technische vragen over bouwmachines en apparatuur
- Installatiehandleidingen en procedures
- Troubleshooting en onderhoud
- Veiligheidsinstructies
- Technische specificaties
- Best practices voor monteurs en technici

Geef altijd praktische, veilige en accurate technische adviezen. Als je niet zeker bent van een antwoord, geef dit eerlijk aan en adviseer om contact op te nemen met een technische specialist.`

const inkoopPrompt = basePrompt + `

Je bent ChriS, de inkoop AI chatbot. Je helpt met:
- Prijsvergelijkingen van leveranciers
- Productspecificaties en alternatieven
- Inkoopprocessen en procedures
- Leveranciersinformatie
- Kostenanalyses
- Contractvoorwaarden

Focus op het optimaliseren van inkoop beslissingen, kostenbesparing en efficiëntie. Geef concrete adviezen voor betere inkoopresultaten.`

// SystemPromptFor returns the persona prompt for a chat mode. Unknown modes
// fall back to the base prompt.
func SystemPromptFor(mode domain.ChatMode) string {
	switch mode {
	case domain.ChatModeTechnical:
		return technicalPrompt
	case domain.ChatModeInkoop:
		return inkoopPrompt
	default:
		return basePrompt
	}
}

const snippetLength = 200

// snippet returns the leading part of a chunk used in context blocks and
// source attributions.
func snippet(content string) string {
	if len(content) > snippetLength {
		return content[:snippetLength]
	}
	return content
}

// BuildContextBlock renders retrieved chunks as an addendum for the system
// prompt. Returns an empty string when nothing was retrieved.
func BuildContextBlock(chunks []*RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nRelevante informatie uit documenten:\n")
	lines := make([]string, 0, len(chunks))
	for _, c := range chunks {
		lines = append(lines, fmt.Sprintf("- %s: %s...", c.Filename, snippet(c.Content)))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}
