package service

import (
	"strings"

	"github.com/daway0/pors/internal/enum"
)

// Identity is the authenticated caller, as established by the auth layer.
type Identity struct {
	Personnel string
	IsAdmin   bool
}

// Actor is the resolved acting identity for one mutation. Personnel is the
// user the action applies to; Admin is set when an administrator acts on
// that user's behalf, which also waives the submission-window checks.
type Actor struct {
	Personnel string
	Admin     string
	Reason    string
	Comment   string
}

// IsOverride reports whether an admin is acting for someone else.
func (a Actor) IsOverride() bool { return a.Admin != "" }

// ResolveActor turns an authenticated identity plus an optional target
// personnel into an Actor. A non-self target requires admin rights and a
// recorded override reason; reason OTHER additionally requires a free-text
// comment. Capacity rules still apply to overrides, only the window check
// is waived.
func ResolveActor(caller Identity, targetPersonnel, reason, comment string) (Actor, error) {
	if targetPersonnel == "" || targetPersonnel == caller.Personnel {
		return Actor{Personnel: caller.Personnel}, nil
	}
	if !caller.IsAdmin {
		return Actor{}, ErrNotAuthorized
	}
	if !enum.IsOverrideReason(reason) {
		return Actor{}, ErrReasonRequired
	}
	if reason == enum.ReasonOther && strings.TrimSpace(comment) == "" {
		return Actor{}, ErrCommentRequired
	}
	return Actor{
		Personnel: targetPersonnel,
		Admin:     caller.Personnel,
		Reason:    reason,
		Comment:   comment,
	}, nil
}
