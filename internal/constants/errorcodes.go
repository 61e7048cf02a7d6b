// Package constants provides shared constant values used throughout the application.
//
// The errorcodes.go file defines user-facing messages and log vocabulary. Messages
// for authentication failures are uniform.
package constants

// User-facing messages.
const (
	MsgAuthRequired          = "Authentication required"
	MsgUnauthorized          = "Unauthorized"
	MsgInvalidCredentials    = "Invalid email or password"
	MsgAccessDenied          = "You don't have permission to access this resource"
	MsgInternalServerError   = "An internal server error occurred"
	MsgStoreUnavailable      = "The service is temporarily unavailable, please retry"
	MsgRequestBodyTooLarge   = "Request body too large"
	MsgEmptyRequestBody      = "Request body must not be empty"
	MsgMalformedJSON         = "Request body contains malformed JSON"
	MsgResourceNotFound      = "The requested resource could not be found"
	MsgEmailAlreadyExists    = "A user with this email already exists"
	MsgMethodNotAllowed      = "This method is not allowed for this resource"
	MsgTooManyRequests       = "Too many failed requests, please try again later"
	MsgLogoutSuccess         = "Successfully logged out"
	MsgPasswordReset         = "Password has been reset"
	MsgResetEmailSent        = "If the email is registered, a reset link has been sent"
	MsgVerificationEmailSent = "Verification email sent"
	MsgEmailVerified         = "Email verified"
	MsgUserDeleted           = "User deleted"
)

// Authentication log vocabulary. Failures are logged with the precise reason
// even though responses are identical.
const (
	LogEventRegister         = "register"
	LogEventLogin            = "login"
	LogEventLogout           = "logout"
	LogEventRefresh          = "refresh_tokens"
	LogEventForgotPassword   = "forgot_password"
	LogEventResetPassword    = "reset_password"
	LogEventSendVerification = "send_verification_email"
	LogEventVerifyEmail      = "verify_email"
	LogEventVerifyToken      = "verify_token"

	ReasonUnknownEmail   = "unknown_email"
	ReasonBadPassword    = "bad_password"
	ReasonForged         = "forged"
	ReasonWrongPurpose   = "wrong_purpose"
	ReasonExpired        = "expired"
	ReasonRevoked        = "revoked"
	ReasonRecordMissing  = "record_missing"
	ReasonRecordMismatch = "record_mismatch"
	ReasonDeliveryFailed = "delivery_failed"

	LogRedactedValue = "[REDACTED]"
)
