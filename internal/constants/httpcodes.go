// Package constants provides shared constant values used throughout the application.
//
// The httpcodes.go file defines response codes, header names and header values
// used by handlers and middleware.
package constants

// Response codes carried in the error body. Clients switch on these, never on messages.
const (
	ResponseSuccess = true
	ResponseFailure = false

	CodeBadRequest         = "bad_request"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeMethodNotAllowed   = "method_not_allowed"
	CodeConflict           = "conflict"
	CodeInternalError      = "internal_error"
	CodeValidationError    = "validation_error"
	CodeInvalidCredentials = "invalid_credentials"
	CodeDuplicateEmail     = "duplicate_email"
	CodeDuplicateResource  = "duplicate_resource"
	CodeStoreUnavailable   = "store_unavailable"
	CodeRateLimited        = "rate_limited"
)

// HTTP headers.
const (
	HeaderContentType           = "Content-Type"
	HeaderAuthorization         = "Authorization"
	HeaderXRequestID            = "X-Request-ID"
	HeaderXTraceCode            = "X-Trace-Code"
	HeaderRetryAfter            = "Retry-After"
	HeaderXRateLimitLimit       = "X-RateLimit-Limit"
	HeaderXRateLimitRemaining   = "X-RateLimit-Remaining"
	HeaderCacheControl          = "Cache-Control"
	HeaderPragma                = "Pragma"
	HeaderXContentTypeOptions   = "X-Content-Type-Options"
	HeaderXFrameOptions         = "X-Frame-Options"
	HeaderReferrerPolicy        = "Referrer-Policy"
	HeaderContentSecurityPolicy = "Content-Security-Policy"
	HeaderOrigin                = "Origin"
)

// Header values.
const (
	ContentTypeJSON            = "application/json"
	FrameOptionsDeny           = "DENY"
	ContentTypeOptionsNoSniff  = "nosniff"
	ReferrerPolicyStrictOrigin = "strict-origin-when-cross-origin"
	CSPDefaultSrc              = "default-src 'self'"
	CacheControlNoStore        = "no-cache, no-store, must-revalidate"
	PragmaNoCache              = "no-cache"
)
