package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateEntry   = errors.New("application already tracked")
	ErrCapacityExceeded = errors.New("watch-list capacity exceeded")
	ErrLookupFailed     = errors.New("catalog lookup failed")
	ErrBatchTooLarge    = errors.New("too many bundle identifiers")
)
