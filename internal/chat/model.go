package chat

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	MaxMessageLen  = 1000
	MaxHistory     = 20
	MaxHistoryItem = 2000
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body of a chat call. ConversationHistory is a pointer so a
// missing field can be told apart from an empty list.
type Request struct {
	Message             string     `json:"message"`
	ConversationHistory *[]Message `json:"conversationHistory"`
}

type Response struct {
	Response string `json:"response"`
}
