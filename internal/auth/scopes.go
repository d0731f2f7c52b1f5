package auth

import "fmt"

// Scope names form a closed vocabulary. Unknown scopes are rejected at
// issuance and update time, never silently dropped.
const (
	ScopeEventsRead     = "events:read"
	ScopeEventsWrite    = "events:write"
	ScopeCalendarsRead  = "calendars:read"
	ScopeCalendarsWrite = "calendars:write"
	ScopeAccountRead    = "account:read"
	ScopeAccountWrite   = "account:write"
)

var knownScopes = map[string]bool{
	ScopeEventsRead:     true,
	ScopeEventsWrite:    true,
	ScopeCalendarsRead:  true,
	ScopeCalendarsWrite: true,
	ScopeAccountRead:    true,
	ScopeAccountWrite:   true,
}

// AllScopes returns the recognized scope vocabulary.
func AllScopes() []string {
	return []string{
		ScopeEventsRead,
		ScopeEventsWrite,
		ScopeCalendarsRead,
		ScopeCalendarsWrite,
		ScopeAccountRead,
		ScopeAccountWrite,
	}
}

// ValidateScopes rejects empty scope sets and any scope outside the
// vocabulary.
func ValidateScopes(scopes []string) error {
	if len(scopes) == 0 {
		return ErrEmptyScopes
	}
	for _, s := range scopes {
		if !knownScopes[s] {
			return fmt.Errorf("%w: %q", ErrUnknownScope, s)
		}
	}
	return nil
}

// HasAllScopes reports whether the granted set carries every required
// scope. This is the default guard semantics: AND, not OR.
func HasAllScopes(granted, required []string) bool {
	set := make(map[string]bool, len(granted))
	for _, s := range granted {
		set[s] = true
	}
	for _, s := range required {
		if !set[s] {
			return false
		}
	}
	return true
}

// HasAnyScope reports whether the granted set carries at least one of the
// required scopes. Used for coarser checks only.
func HasAnyScope(granted, required []string) bool {
	set := make(map[string]bool, len(granted))
	for _, s := range granted {
		set[s] = true
	}
	for _, s := range required {
		if set[s] {
			return true
		}
	}
	return false
}
