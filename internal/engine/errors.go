package engine

import "errors"

var (
	// ErrUnknownTool is returned for names not in the registry.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrToolDisabled is returned when the policy gate blocks a call.
	ErrToolDisabled = errors.New("tool disabled by policy gate")
	// ErrToolExecution wraps handler failures and recovered panics.
	ErrToolExecution = errors.New("tool execution failed")
	// ErrAuditFailed means the verdict could not be recorded and was discarded.
	ErrAuditFailed = errors.New("audit ledger write failed")
)
