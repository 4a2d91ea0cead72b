package model

// SessionMode selects how an AI provider extends an upstream session.
type SessionMode string

const (
	SessionModeClone  SessionMode = "clone"
	SessionModeAppend SessionMode = "append"
)

// SessionInfo is the contract providers receive describing whether, and
// how, they should continue a prior AI session (SPEC_FULL.md §6).
type SessionInfo struct {
	ParentSessionID string
	ReuseSession    bool
	Mode            SessionMode
}
