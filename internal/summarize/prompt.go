// Package summarize implements the summarization capability on top of a
// chat-completion backend.
package summarize

import (
	"fmt"
	"strings"

	"horse.fit/aidesk/internal/capability"
)

var typeInstructions = map[capability.SummaryType]string{
	capability.SummaryTLDR:      "Write a short overview of the text that a busy reader can skim.",
	capability.SummaryKeyPoints: "List the most important points of the text.",
	capability.SummaryTeaser:    "Write an intriguing teaser that makes the reader want to read the full text.",
	capability.SummaryHeadline:  "Write a single headline that captures the main point of the text.",
}

// lengthLimits maps a length to the amount of output for each summary type:
// sentences for tldr and teaser, bullet points for key-points, words for headline.
var lengthLimits = map[capability.SummaryLength]map[capability.SummaryType]int{
	capability.LengthShort:  {capability.SummaryTLDR: 1, capability.SummaryKeyPoints: 3, capability.SummaryTeaser: 1, capability.SummaryHeadline: 12},
	capability.LengthMedium: {capability.SummaryTLDR: 3, capability.SummaryKeyPoints: 5, capability.SummaryTeaser: 3, capability.SummaryHeadline: 17},
	capability.LengthLong:   {capability.SummaryTLDR: 5, capability.SummaryKeyPoints: 7, capability.SummaryTeaser: 5, capability.SummaryHeadline: 22},
}

// BuildPrompt renders the instruction sent to the backend for one summary.
func BuildPrompt(opts capability.SummaryOptions, text string) string {
	summaryType := opts.Type
	if summaryType == "" {
		summaryType = capability.SummaryTLDR
	}
	length := opts.Length
	if length == "" {
		length = capability.LengthMedium
	}

	var b strings.Builder
	b.WriteString(typeInstructions[summaryType])
	b.WriteString(" ")
	b.WriteString(lengthRule(summaryType, lengthLimits[length][summaryType]))
	b.WriteString(" ")
	if opts.Format == capability.FormatMarkdown {
		b.WriteString("Format the answer as Markdown.")
	} else {
		b.WriteString("Answer in plain text without any Markdown formatting.")
	}
	b.WriteString(" Do not add any explanation before or after the summary.")
	if shared := strings.TrimSpace(opts.SharedContext); shared != "" {
		b.WriteString("\n\nContext: ")
		b.WriteString(shared)
	}
	b.WriteString("\n\nText:\n---\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n---")
	return b.String()
}

func lengthRule(summaryType capability.SummaryType, limit int) string {
	switch summaryType {
	case capability.SummaryKeyPoints:
		return fmt.Sprintf("Use at most %d bullet points.", limit)
	case capability.SummaryHeadline:
		return fmt.Sprintf("Use at most %d words.", limit)
	default:
		if limit == 1 {
			return "Use exactly one sentence."
		}
		return fmt.Sprintf("Use at most %d sentences.", limit)
	}
}
