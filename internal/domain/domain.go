// Package domain holds the records that flow through ranking, enrichment and
// session persistence. They are plain values with JSON tags matching the
// wire format of the HTTP API and the stored analysis blob.
package domain

import "strings"

// Intent is the persona plus job-to-be-done pair driving one analysis.
type Intent struct {
	Persona     string `json:"persona"`
	JobToBeDone string `json:"job_to_be_done"`
}

// Text is the combined string used for keyword extraction and the intent embedding.
func (i Intent) Text() string {
	p := strings.TrimSpace(i.Persona)
	j := strings.TrimSpace(i.JobToBeDone)
	switch {
	case p == "":
		return j
	case j == "":
		return p
	default:
		return p + " " + j
	}
}

func (i Intent) Valid() bool {
	return strings.TrimSpace(i.Persona) != "" && strings.TrimSpace(i.JobToBeDone) != ""
}
