package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Candidate is a scored (document, section) pair before selection.
type Candidate struct {
	Document     string   `json:"document"`
	PageNumber   int      `json:"page_number"`
	SectionTitle string   `json:"section_title"`
	Level        Level    `json:"level"`
	Similarity   float64  `json:"similarity"`
	Boost        float64  `json:"boost"`
	Score        float64  `json:"score"`
	Keywords     []string `json:"keywords,omitempty"`
}

func (c Candidate) HasKeyword(kw string) bool {
	for _, k := range c.Keywords {
		if k == kw {
			return true
		}
	}
	return false
}

type RankedSection struct {
	Candidate
	ImportanceRank int `json:"importance_rank"`
}

type SubsectionAnalysis struct {
	Document     string `json:"document"`
	PageNumber   int    `json:"page_number"`
	SectionTitle string `json:"section_title"`
	RefinedText  string `json:"refined_text"`
	Reason       string `json:"reason"`
}

type Insights struct {
	KeyInsights              []string `json:"key_insights"`
	DidYouKnow               []string `json:"did_you_know"`
	CrossDocumentConnections []string `json:"cross_document_connections"`
}

// Normalize replaces nil slices so the JSON form always carries arrays.
func (in Insights) Normalize() Insights {
	if in.KeyInsights == nil {
		in.KeyInsights = []string{}
	}
	if in.DidYouKnow == nil {
		in.DidYouKnow = []string{}
	}
	if in.CrossDocumentConnections == nil {
		in.CrossDocumentConnections = []string{}
	}
	return in
}

func (in Insights) Empty() bool {
	return len(in.KeyInsights) == 0 && len(in.DidYouKnow) == 0 && len(in.CrossDocumentConnections) == 0
}

// DegradedInsights is what enrichment returns when the model call fails.
func DegradedInsights(err error) Insights {
	msg := "Failed to generate insights"
	if err != nil {
		msg = fmt.Sprintf("Failed to generate insights: %v", err)
	}
	return Insights{KeyInsights: []string{msg}}.Normalize()
}

type AnalysisMetadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
	FilePaths           []string `json:"file_paths"`
	Language            string   `json:"language,omitempty"`
	UserID              string   `json:"user_id,omitempty"`
}

// AnalysisResult is the durable artifact of one analysis run.
type AnalysisResult struct {
	Metadata           AnalysisMetadata     `json:"metadata"`
	TopSections        []RankedSection      `json:"top_sections"`
	SubsectionAnalysis []SubsectionAnalysis `json:"subsection_analysis"`
	LLMInsights        Insights             `json:"llm_insights"`
	DocumentSummaries  map[string]string    `json:"document_summaries,omitempty"`
}

var ErrInvalidAnalysis = errors.New("invalid analysis result")

// Validate checks the structural invariants a stored analysis must satisfy.
func (a *AnalysisResult) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: nil", ErrInvalidAnalysis)
	}
	if strings.TrimSpace(a.Metadata.Persona) == "" || strings.TrimSpace(a.Metadata.JobToBeDone) == "" {
		return fmt.Errorf("%w: missing persona or job_to_be_done", ErrInvalidAnalysis)
	}
	seen := make(map[string]struct{}, len(a.TopSections))
	for i, s := range a.TopSections {
		if s.ImportanceRank != i+1 {
			return fmt.Errorf("%w: importance_rank %d at position %d", ErrInvalidAnalysis, s.ImportanceRank, i)
		}
		if _, dup := seen[s.SectionTitle]; dup {
			return fmt.Errorf("%w: duplicate section_title %q", ErrInvalidAnalysis, s.SectionTitle)
		}
		seen[s.SectionTitle] = struct{}{}
	}
	return nil
}

// Intent rebuilds the intent this analysis was produced for.
func (a *AnalysisResult) Intent() Intent {
	return Intent{Persona: a.Metadata.Persona, JobToBeDone: a.Metadata.JobToBeDone}
}
