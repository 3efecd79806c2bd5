package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnknownSubject is the subject reported when a user could not be resolved.
var UnknownSubject = uuid.Nil.String()

// Authentication methods recorded on a Principal.
const (
	AuthMethodPassword = "password"
	AuthMethodExternal = "external"
	AuthMethodGrant    = "custom_grant"
)

// Principal is the authenticated caller as seen by the host.
type Principal struct {
	Subject    string
	Name       string
	ClientID   string
	AuthMethod string
	AuthTime   time.Time
}

// AuthenticateResult is the outcome of a grant validation or sign-in attempt. A negative
// decision is a result with IsError set; it is never an error value.
type AuthenticateResult struct {
	IsError          bool
	Error            string
	ErrorDescription string
	Subject          string
	Principal        *Principal
	// Blocked is set when the user or client was found blocked. It is recorded in audit
	// events only; callers see the generic description.
	Blocked bool
}

// Error codes carried by AuthenticateResult.
const (
	ResultErrorInvalidGrant         = "invalid_grant"
	ResultErrorUnsupportedGrantType = "unsupported_grant_type"
)

// GenericFailureDescription is the only failure text shown to callers; it never reveals
// whether the password, the account state or the account existence was the cause.
const GenericFailureDescription = "invalid username or password"

// Succeeded builds a positive result for principal.
func Succeeded(principal *Principal) AuthenticateResult {
	return AuthenticateResult{Subject: principal.Subject, Principal: principal}
}

// Failed builds a negative result. An empty subject becomes UnknownSubject.
func Failed(code, subject string) AuthenticateResult {
	if subject == "" {
		subject = UnknownSubject
	}
	return AuthenticateResult{
		IsError:          true,
		Error:            code,
		ErrorDescription: GenericFailureDescription,
		Subject:          subject,
	}
}

// NotLive builds the negative result for a resolved subject that failed a liveness check.
func NotLive(code, subject string, status LivenessStatus) AuthenticateResult {
	result := Failed(code, subject)
	result.Blocked = status.Blocked()
	return result
}

// SubjectResolved reports whether the result refers to a known user.
func (r AuthenticateResult) SubjectResolved() bool {
	return r.Subject != "" && r.Subject != UnknownSubject
}
