package domain

import "errors"

// Error kinds of a run. Fetch and push failures abort the run before state is
// persisted; parse failures only mean there is nothing to push.
var (
	ErrFetch = errors.New("fetch failed")
	ErrParse = errors.New("parse failed")
	ErrPush  = errors.New("push failed")
)
