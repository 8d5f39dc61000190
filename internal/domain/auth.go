package domain

// SubjectType differentiates actors mutating a sequence.
type SubjectType string

const (
	SubjectTypeOperator SubjectType = "OPERATOR"
	SubjectTypeLedger   SubjectType = "LEDGER"
	SubjectTypeSystem   SubjectType = "SYSTEM"
)

// OperatorRole enumerates API roles.
type OperatorRole string

const (
	OperatorRoleAdmin    OperatorRole = "ADMIN"
	OperatorRoleOperator OperatorRole = "OPERATOR"
)
