package textverse

import (
	"context"

	"github.com/textverse/textverse/pkg/models"
)

// Session is the owner context every operation runs under. The remote
// backend is used exactly when Authenticated is true; otherwise records live
// in the local store under the fixed local owner space.
type Session struct {
	Authenticated bool           `json:"authenticated"`
	OwnerID       models.OwnerID `json:"owner_id"`
}

// LocalSession is the default session before anyone signs in.
func LocalSession() Session {
	return Session{Authenticated: false, OwnerID: models.LocalOwnerID()}
}

// Session returns the current owner context.
func (c *Coordinator) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SwitchSession performs a login, logout, or account switch as one discrete
// transition: the old subscription is torn down, the session epoch advances
// so completions started under the old context are discarded, in-memory
// state is dropped, and the new owner's records are loaded from whichever
// backend the new session selects.
func (c *Coordinator) SwitchSession(ctx context.Context, session Session) error {
	if session.Authenticated && session.OwnerID.IsZero() {
		return validationErr("session", "authenticated session requires an owner id")
	}
	if !session.Authenticated {
		session.OwnerID = models.LocalOwnerID()
	}

	c.mu.Lock()
	c.detachLocked()
	c.epoch++
	c.session = session
	c.clearLocked()
	c.mu.Unlock()
	c.notify()

	c.log.Info().
		Bool("authenticated", session.Authenticated).
		Str("owner", session.OwnerID.String()).
		Msg("session switched")

	return c.LoadNotes(ctx)
}
