package chat

import "unicode/utf8"

func Validate(req Request) error {
	if n := utf8.RuneCountInString(req.Message); n == 0 || n > MaxMessageLen {
		return ErrInvalidMessage
	}

	if req.ConversationHistory == nil || len(*req.ConversationHistory) > MaxHistory {
		return ErrInvalidHistory
	}

	for _, m := range *req.ConversationHistory {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return ErrInvalidHistoryFormat
		}
		if n := utf8.RuneCountInString(m.Content); n == 0 || n > MaxHistoryItem {
			return ErrInvalidHistoryFormat
		}
	}
	return nil
}
