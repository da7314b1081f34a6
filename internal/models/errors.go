package models

import "errors"

// Application-wide standard errors
var (
	// Navigation errors: a requested chapter id resolves nowhere. Surfaced
	// to the caller to decide recovery (e.g. end the story gracefully).
	ErrChapterNotFound = errors.New("chapter not found")
	ErrArcNotFound     = errors.New("arc not found")
	ErrStoryEnded      = errors.New("story has no next chapter")

	// Content errors: malformed definitions detected at load time.
	ErrInvalidContent = errors.New("invalid chapter content")

	// Progress / persistence errors.
	ErrProgressNotFound = errors.New("story progress not found")

	// General request/server errors.
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
)
