package session

const (
	metaPrefix     = "session:meta:"
	historyPrefix  = "session:history:"
	analysisPrefix = "session:analysis:"
	filesPrefix    = "session:files:"
	userPrefix     = "user:"
)

func metaKey(id string) string     { return metaPrefix + id }
func historyKey(id string) string  { return historyPrefix + id }
func analysisKey(id string) string { return analysisPrefix + id }
func filesKey(id string) string    { return filesPrefix + id }

func userKey(email string) string { return userPrefix + email }

// userSessionsKey indexes a user's session ids. The owner id is the email.
func userSessionsKey(userID string) string { return userPrefix + userID + ":sessions" }
