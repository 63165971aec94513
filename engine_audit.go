package gatekeeper

import (
	"context"
)

const (
	AuditLoginSuccess       = "login_success"
	AuditLoginFailure       = "login_failure"
	AuditRegisterSuccess    = "register_success"
	AuditRegisterFailure    = "register_failure"
	AuditRefreshSuccess     = "refresh_success"
	AuditRefreshFailure     = "refresh_failure"
	AuditLogout             = "logout"
	AuditAuthenticateReject = "authenticate_rejected"
	AuditRateLimited        = "rate_limit_triggered"
	AuditRateLimitFailOpen  = "rate_limit_fail_open"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = CodeOf(err)
	}

	e.audit.Emit(ctx, event)
}
