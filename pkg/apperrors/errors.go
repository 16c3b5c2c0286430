package apperrors

import "errors"

var (
	ErrNotFound                  = errors.New("not found")
	ErrDuplicatePromptID         = errors.New("duplicate prompt id")
	ErrPendingNotFound           = errors.New("pending item not found")
	ErrUnauthorizedApproval      = errors.New("approver is not a member of the source channel")
	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrPersistence               = errors.New("persistence failure")
)
