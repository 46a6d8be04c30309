package audit

import (
	"context"

	"github.com/manobala/peer-chat/pkg/log"
)

// Audit actions.
const (
	ActionConnect        = "chat.connect"
	ActionAuthFailed     = "chat.auth_failed"
	ActionDisconnect     = "chat.disconnect"
	ActionJoinRoom       = "forum.join_room"
	ActionLeaveRoom      = "forum.leave_room"
	ActionDeleteMessage  = "forum.delete_message"
	ActionStartChat      = "expert_chat.start"
	ActionJoinExpertChat = "expert_chat.join"
	ActionForbidden      = "access.forbidden"
	ActionUpgrade        = "chat.transport_upgrade"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, targetID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, targetID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Warn().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Str(FieldDetail, detail).
		Msg(msg)
}
