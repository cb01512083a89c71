package ledger

// Ptr helps build AuditMetadata literals.
func Ptr[T any](v T) *T { return &v }
