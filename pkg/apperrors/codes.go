package apperrors

// Error codes are part of the public API contract and never change once published.

// Authentication and authorization
const (
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	ErrCodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
)

// Request validation
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeInvalidRole   = "INVALID_ROLE"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUserNotFound  = "USER_NOT_FOUND"
	ErrCodeEmailExists   = "EMAIL_ALREADY_EXISTS"
	ErrCodeCannotBanSelf = "CANNOT_BAN_SELF"
	// ErrCodeCannotDeleteSelf is used both for request rejection and per-item failures.
	ErrCodeCannotDeleteSelf = "CANNOT_DELETE_SELF"
)

// Bulk operations
const (
	ErrCodeBulkOperationFailed = "BULK_OPERATION_FAILED"
)

// Import
const (
	ErrCodeFileTooLarge          = "FILE_TOO_LARGE"
	ErrCodeUnsupportedFileFormat = "UNSUPPORTED_FILE_FORMAT"
	ErrCodeImportFileInvalid     = "IMPORT_FILE_INVALID"
	ErrCodeImportDataInvalid     = "IMPORT_DATA_INVALID"
	ErrCodeRequiredFieldMissing  = "REQUIRED_FIELD_MISSING"
	ErrCodeInvalidEmailFormat    = "INVALID_EMAIL_FORMAT"
	ErrCodeDuplicateEmailInFile  = "DUPLICATE_EMAIL_IN_FILE"
	ErrCodeInvalidPassword       = "INVALID_PASSWORD"
	ErrCodeInvalidFieldValue     = "INVALID_FIELD_VALUE"
	ErrCodeImportRowFailed       = "IMPORT_ROW_FAILED"
)

// Internal
const (
	ErrCodeInternal = "INTERNAL_SERVER_ERROR"
)
