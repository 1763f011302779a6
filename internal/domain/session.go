package domain

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (m ChatMessage) Valid() bool {
	return (m.Role == RoleUser || m.Role == RoleBot) && m.Content != ""
}

// SessionMeta is the lightweight record kept beside the analysis blob.
type SessionMeta struct {
	Persona             string `json:"persona"`
	JobToBeDone         string `json:"job_to_be_done"`
	ProcessingTimestamp string `json:"processing_timestamp"`
	Language            string `json:"language"`
	DocCount            int    `json:"doc_count"`
	UserID              string `json:"user_id"`
}

type Session struct {
	ID          string         `json:"id"`
	Metadata    SessionMeta    `json:"metadata"`
	Analysis    AnalysisResult `json:"analysis"`
	ChatHistory []ChatMessage  `json:"chat_history"`
	FilePaths   []string       `json:"file_paths"`
}

// SessionSummary is one row of a user's session list.
type SessionSummary struct {
	ID        string `json:"id"`
	Persona   string `json:"persona"`
	Job       string `json:"job"`
	Timestamp string `json:"timestamp"`
	DocCount  int    `json:"doc_count"`
}
