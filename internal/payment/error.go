package payment

import "errors"

var ErrInvalidAmount = errors.New("payment amount must be positive")
