package gymauth

import (
	"context"

	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/rolestore"
)

// classify resolves an identity to an admin/not-admin answer.
//
// The super-admin email short-circuits to admin before any store access, so
// that identity keeps access even when the role store is unreachable. The
// persisted role row is then synced in the background; a denied or failed
// write never revokes the answer already given.
//
// Everyone else is looked up in the role store. Absence and read failure
// both resolve to not-admin: privilege degrades to the least-privileged
// answer rather than surfacing a hard error.
func (e *Engine) classify(ctx context.Context, identity provider.Identity) bool {
	if e.isSuperAdmin(identity) {
		e.tasks.Submit(func(taskCtx context.Context) {
			e.ensureSuperAdminRole(taskCtx, identity)
		})
		e.metrics.Inc(MetricClassifyAdmin)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditRoleClassified,
			SubjectID: identity.ID,
			Email:     identity.Email,
			Success:   true,
			Metadata:  map[string]string{"admin": "true", "super_admin": "true"},
		})
		return true
	}

	assignment, err := e.roles.Find(ctx, identity.ID)
	if err != nil {
		e.metrics.Inc(MetricClassifyFailClosed)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditRoleClassified,
			SubjectID: identity.ID,
			Email:     identity.Email,
			Success:   false,
			Error:     err.Error(),
			Metadata:  map[string]string{"admin": "false"},
		})
		return false
	}

	admin := assignment != nil && assignment.Role == rolestore.RoleAdmin
	if admin {
		e.metrics.Inc(MetricClassifyAdmin)
	} else {
		e.metrics.Inc(MetricClassifyNotAdmin)
	}
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditRoleClassified,
		SubjectID: identity.ID,
		Email:     identity.Email,
		Success:   true,
		Metadata:  map[string]string{"admin": boolString(admin)},
	})
	return admin
}

func (e *Engine) isSuperAdmin(identity provider.Identity) bool {
	return identity.EmailEquals(e.cfg.SuperAdmin.Email)
}

// ensureSuperAdminRole makes the persisted role row agree with the
// allowlist: insert when missing, upgrade when not admin, no-op otherwise.
// Safe to repeat; every failure is swallowed into an audit event because
// database policy may legitimately deny this write.
func (e *Engine) ensureSuperAdminRole(ctx context.Context, identity provider.Identity) {
	assignment, err := e.roles.Find(ctx, identity.ID)
	if err != nil {
		e.auditSuperAdminSync(ctx, identity, err)
		return
	}

	switch {
	case assignment == nil:
		_, err = e.roles.Insert(ctx, identity.ID, rolestore.RoleAdmin)
	case assignment.Role != rolestore.RoleAdmin:
		err = e.roles.Update(ctx, assignment.RecordID, rolestore.RoleAdmin)
	}
	e.auditSuperAdminSync(ctx, identity, err)
}

func (e *Engine) auditSuperAdminSync(ctx context.Context, identity provider.Identity, err error) {
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditSuperAdminSync,
		SubjectID: identity.ID,
		Email:     identity.Email,
		Success:   err == nil,
		Error:     errString(err),
	})
}

// SetRole is the back office's role toggle. The assignment row is created
// on the first grant and updated in place ever after; toggling back to
// "user" keeps the row.
func (e *Engine) SetRole(ctx context.Context, subjectID string, role rolestore.Role) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if subjectID == "" {
		return ErrRoleUnknownSubject
	}
	if !role.Valid() {
		return rolestore.ErrInvalidRole
	}

	assignment, err := e.roles.Find(ctx, subjectID)
	if err == nil {
		if assignment == nil {
			_, err = e.roles.Insert(ctx, subjectID, role)
		} else if assignment.Role != role {
			err = e.roles.Update(ctx, assignment.RecordID, role)
		}
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: AuditRoleToggled,
		SubjectID: subjectID,
		IP:        clientIPFromContext(ctx),
		Success:   err == nil,
		Error:     errString(err),
		Metadata:  map[string]string{"role": string(role)},
	})
	return err
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
