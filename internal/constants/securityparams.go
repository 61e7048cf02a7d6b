package constants

// Token purposes. This is a closed set checked on every write.
const (
	PurposeAccess        = "access"
	PurposeRefresh       = "refresh"
	PurposeResetPassword = "resetPassword"
	PurposeVerifyEmail   = "verifyEmail"
)

// Input limits.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxEmailLength    = 255
	MaxNameLength     = 100
)

// AnonymousUserID is the user segment of a trace code for unauthenticated requests.
const AnonymousUserID = "0"

// Notification kinds handed to the notifier.
const (
	NotificationResetPassword = "reset_password"
	NotificationVerifyEmail   = "verify_email"
)
