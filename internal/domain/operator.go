package domain

// Operator roles carried in trigger-surface JWTs.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)
