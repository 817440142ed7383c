package service

import "errors"

// ErrNotAuthorized rejects privileged operations lacking a valid
// supervisor capability.
var ErrNotAuthorized = errors.New("supervisor authorization required")

// Capability is an explicit proof of supervisor authority, passed with
// every privileged call.  It replaces the old pattern of comparing a
// client-held supervisor code: possession of the string is only meaningful
// because the hub's configuration says so, and it travels with the request
// instead of living in ambient terminal state.
type Capability string

// SupervisorAuthorizer validates capabilities against the configured set.
type SupervisorAuthorizer struct {
	tokens map[Capability]struct{}
}

func NewSupervisorAuthorizer(tokens []string) *SupervisorAuthorizer {
	set := make(map[Capability]struct{}, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set[Capability(t)] = struct{}{}
		}
	}
	return &SupervisorAuthorizer{tokens: set}
}

func (a *SupervisorAuthorizer) Allowed(cap Capability) bool {
	if a == nil || cap == "" {
		return false
	}
	_, ok := a.tokens[cap]
	return ok
}
