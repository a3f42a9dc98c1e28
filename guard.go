package gymauth

import "context"

// HandleUnload enforces the remember-me contract at browsing-session end.
// When the flag says "do not remember", a sign-out is issued on a separate
// goroutine and the flag cleared; the unload path cannot wait for network
// completion, so the call is fire-and-forget and an unfinished sign-out is
// an accepted, informational failure — the provider's token expiry is the
// backstop.
//
// The returned channel closes when the background sign-out attempt (if any)
// finishes; tests use it, unload paths ignore it.
func (e *Engine) HandleUnload(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	if e.closed.Load() {
		close(done)
		return done
	}

	auto, err := e.flags.AutoSignOut(ctx)
	if err != nil || !auto {
		close(done)
		return done
	}

	_ = e.flags.ClearAutoSignOut(ctx)

	go func() {
		defer close(done)
		err := e.provider.SignOut(context.Background())
		e.emitAudit(context.Background(), AuditEvent{
			EventType: AuditUnloadSignOut,
			Success:   err == nil,
			Error:     errString(err),
		})
	}()
	return done
}
