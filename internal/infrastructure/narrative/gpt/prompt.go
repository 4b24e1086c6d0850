package gpt

import (
	"fmt"
	"strings"

	"github.com/glowlab/dermascan/internal/core/domain"
)

const systemPrompt = "You are a skincare analysis copywriter. You receive measured " +
	"skin dimensions and write short, factual narrative text for each. Respond only " +
	"with JSON."

func buildNarrativePrompt(dims []domain.ReportDimension) string {
	var b strings.Builder
	b.WriteString("Write a narrative for each dimension below. For every dimension return ")
	b.WriteString("an object with \"id\", \"finding\" (what the score shows), \"mechanism\" ")
	b.WriteString("(the physiological explanation), and \"action\" (one concrete recommendation). ")
	b.WriteString("Respond as {\"dimensions\": [...]}.\n\nMeasured dimensions:\n")
	for _, d := range dims {
		fmt.Fprintf(&b, "- id=%s score=%d tone=%s\n", d.ID, d.Score, d.Tone)
	}
	return b.String()
}
