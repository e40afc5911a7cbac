package chat

import "errors"

var (
	// -- Validation --
	ErrInvalidMessage       = errors.New("invalid message: must be a string with max 1000 characters")
	ErrInvalidHistory       = errors.New("invalid conversation history: must be an array with max 20 messages")
	ErrInvalidHistoryFormat = errors.New("invalid conversation history format")

	// -- Upstream --
	ErrAPIKeyMissing = errors.New("OPENAI_API_KEY is not configured")
	ErrUpstream      = errors.New("completion API error")
	ErrEmptyReply    = errors.New("completion API returned no choices")
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, ErrInvalidHistory) ||
		errors.Is(err, ErrInvalidHistoryFormat)
}
