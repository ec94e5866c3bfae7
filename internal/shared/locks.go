package shared

import "fmt"

// AuditStateKey builds the redis key holding a session's audit list state.
func AuditStateKey(sessionID string) string {
	return fmt.Sprintf("audits:state:%s", sessionID)
}

// AuditLoadLockKey builds the redis key guarding a session's full reload.
func AuditLoadLockKey(sessionID string) string {
	return fmt.Sprintf("audits:state:%s:loading", sessionID)
}
