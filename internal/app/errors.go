package app

import "errors"

// ErrInvalidState marks an illegal transition: resolving an alert twice,
// scheduling reminders for a contract with no protection window, renewing a
// non-active contract. Callers should surface it, not retry.
var ErrInvalidState = errors.New("operation not legal in the current state")

// ErrInvalidInput marks a request that violates a data invariant before it
// ever reaches storage, such as an end date before the start date.
var ErrInvalidInput = errors.New("invalid input")
