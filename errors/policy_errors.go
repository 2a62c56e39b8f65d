// errors/policy_errors.go
package errors

import "errors"

var (
	ErrPolicyNotFound    = errors.New("policy not found")
	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInvalidPolicyData = errors.New("invalid policy data")
	ErrPolicyConflict    = errors.New("policy conflict")
	ErrVersionConflict   = errors.New("policy version conflict")
	ErrInternalServer    = errors.New("internal server error")
	ErrInvalidPagination = errors.New("invalid pagination parameters")
)
