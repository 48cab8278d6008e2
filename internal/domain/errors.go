package domain

import "errors"

// ErrAlreadyExists reports an insert of an entity whose ID is already present.
// Callers that want idempotent adds check for it with errors.Is.
var ErrAlreadyExists = errors.New("already exists")
