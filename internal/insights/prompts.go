package insights

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/llm"
)

const (
	// MaxDocumentChars caps the text one new document contributes to the
	// enrichment context.
	MaxDocumentChars = 12000
	// MaxSummaryChars caps a stored per-document summary.
	MaxSummaryChars = 1000
)

// Source is one document's contribution to enrichment. Summary is set for
// documents already analyzed in an earlier run of the same session.
type Source struct {
	Document string
	Text     string
	Summary  string
}

func buildContext(sources []Source) string {
	var b strings.Builder
	for _, s := range sources {
		if s.Summary != "" {
			fmt.Fprintf(&b, "--- Document: %s (summary from an earlier analysis) ---\n%s\n\n", s.Document, s.Summary)
			continue
		}
		fmt.Fprintf(&b, "--- Document: %s ---\n%s\n\n", s.Document, capRunes(s.Text, MaxDocumentChars))
	}
	return strings.TrimSpace(b.String())
}

func insightPrompt(intent domain.Intent, sections []domain.RankedSection, subsections []domain.SubsectionAnalysis, sources []Source) string {
	snippets := make(map[string]string, len(subsections))
	for _, sub := range subsections {
		if text := strings.TrimSpace(sub.RefinedText); text != "" {
			snippets[sub.Document+"\x00"+sub.SectionTitle] = text
		}
	}
	var top strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&top, "%d. %s (%s, page %d)\n", s.ImportanceRank, s.SectionTitle, s.Document, s.PageNumber+1)
		if text, ok := snippets[s.Document+"\x00"+s.SectionTitle]; ok {
			fmt.Fprintf(&top, "   Snippet: %s\n", strings.Join(strings.Fields(text), " "))
		}
	}
	return fmt.Sprintf(`You are an expert research assistant acting as a '%s' whose goal is to '%s'.
Analyze the full text from the documents provided below.

**Most relevant sections already identified, with their key snippets:**
%s
**Your Task:**
Based on your analysis of the entire document set, provide the following:
- **key_insights**: 2-3 crucial takeaways.
- **did_you_know**: 2-3 surprising or interesting facts, phrased as questions.
- **cross_document_connections**: 1-2 connections, contradictions, or counterpoints you found by comparing information across the different documents. If none exist, state that clearly.

**Full Text from Documents:**
%s

**Instructions:**
Respond ONLY with a single JSON object that strictly adheres to the specified schema. Do not include any additional text, explanations, or markdown formatting.`,
		intent.Persona, intent.JobToBeDone, top.String(), buildContext(sources))
}

func insightSchema() llm.Schema {
	return objectOf("key_insights", "did_you_know", "cross_document_connections")
}

func chatPrompt(analysis *domain.AnalysisResult, history []domain.ChatMessage, query string) (string, error) {
	ctxJSON, err := json.Marshal(analysis)
	if err != nil {
		return "", err
	}
	var h strings.Builder
	for _, m := range history {
		fmt.Fprintf(&h, "%s: %s\n", m.Role, m.Content)
	}
	return fmt.Sprintf("You are a helpful assistant. Based on the initial analysis context and the conversation history, answer the user's last query. Do not give the results from outside the documents uploaded.\n\nContext: %s\n\nHistory: %s\n\nUser Query: %s",
		ctxJSON, strings.TrimSpace(h.String()), query), nil
}

func selectionPrompt(text string) string {
	return fmt.Sprintf(`You are an expert research assistant. Your task is to analyze the provided documents and deliver a structured analysis of related sections and subsections across all the documents.

**Instructions:**
1. **Identify Core Themes:** Read through the documents to identify the main themes or topics that connect different sections.
2. **Group and Analyze:** For each theme, group together all the relevant sections and subsections from the documents.
3. **Provide a Cohesive Summary:** Synthesize the information from the grouped sections into a concise analysis that explains the theme and how the different sections relate to it.

**Text for Analysis:**
---
%s
---

Respond ONLY with a single JSON object with the keys "summary", "key_takeaways" (as an array of strings), and "potential_questions" (as an array of strings). Do not include any other text or markdown.`, text)
}

func translateBatchPrompt(language string, batch map[string][]string) (string, error) {
	raw, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Translate all the text values in the following JSON object into %s. Maintain the exact same JSON structure and keys. Respond ONLY with the final JSON object.\n\nInput JSON:\n%s", language, raw), nil
}

func translateTextPrompt(language, text string) string {
	return fmt.Sprintf("Translate the following text into %s. Provide only the translated text.\n\n---\n\n%s", language, text)
}

func podcastPrompt(meta domain.AnalysisMetadata, in domain.Insights) (string, error) {
	persona := strings.TrimSpace(meta.Persona)
	if persona == "" {
		persona = "professional"
	}
	job := strings.TrimSpace(meta.JobToBeDone)
	if job == "" {
		job = "understand key topics"
	}
	raw, err := json.MarshalIndent(in.Normalize(), "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("You are a podcast host. Create an engaging, narrative-style podcast script of 400-500 words based on the provided JSON data. The target audience is a '%s' who wants to '%s'. Structure your script with an introduction, a body that weaves the insights into a cohesive story, and a conclusion. Respond ONLY with the text of the podcast script.\n\nData: %s", persona, job, raw), nil
}

func capRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
