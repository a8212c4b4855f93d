package server

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"maps"
	"strings"

	"github.com/tony-montemuro/httpkit/message"
)

// Authorizer guards a route. CheckAuthorization returns an *AuthError when
// the request may not use the route; Challenge is the WWW-Authenticate value
// sent back with a 401.
type Authorizer interface {
	CheckAuthorization(req *message.Request) error
	Challenge() string
}

type AuthKind int

const (
	AuthMissingCredentials AuthKind = iota
	AuthUnknownLogin
	AuthInvalidPassword
	AuthForbidden
)

func (k AuthKind) String() string {
	switch k {
	case AuthMissingCredentials:
		return "missing credentials"
	case AuthUnknownLogin:
		return "unknown login"
	case AuthInvalidPassword:
		return "invalid password"
	case AuthForbidden:
		return "forbidden"
	}

	return "unknown"
}

type AuthError struct {
	Kind    AuthKind
	message string
}

func (e *AuthError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("[Authorization error]: %s", e.Kind)
	}

	return fmt.Sprintf("[Authorization error]: %s: %s", e.Kind, e.message)
}

// Status is the response code the failure maps to.
func (e *AuthError) Status() int {
	if e.Kind == AuthForbidden {
		return message.StatusForbidden
	}

	return message.StatusUnauthorized
}

// BasicAuth checks Basic credentials against a fixed set of logins.
type BasicAuth struct {
	realm       string
	credentials map[string]string
	allowed     map[string]bool
}

func NewBasicAuth(realm string, credentials map[string]string) *BasicAuth {
	return &BasicAuth{realm: realm, credentials: maps.Clone(credentials)}
}

// Restrict returns a copy that only lets the given logins through. Other
// logins with valid passwords are forbidden.
func (b *BasicAuth) Restrict(logins ...string) *BasicAuth {
	c := &BasicAuth{realm: b.realm, credentials: b.credentials, allowed: make(map[string]bool, len(logins))}
	for _, login := range logins {
		c.allowed[login] = true
	}

	return c
}

func (b *BasicAuth) Challenge() string {
	return fmt.Sprintf("Basic realm=%q", b.realm)
}

func parseBasic(value string) (login, password string, ok bool) {
	scheme, encoded, found := strings.Cut(strings.TrimSpace(value), " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", false
	}

	return strings.Cut(string(decoded), ":")
}

func (b *BasicAuth) CheckAuthorization(req *message.Request) error {
	value, ok := req.Header.Lookup("Authorization")
	if !ok {
		return &AuthError{Kind: AuthMissingCredentials}
	}

	login, password, ok := parseBasic(value)
	if !ok {
		return &AuthError{Kind: AuthMissingCredentials, message: "malformed Basic credentials"}
	}

	expected, known := b.credentials[login]
	if !known {
		return &AuthError{Kind: AuthUnknownLogin, message: login}
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 {
		return &AuthError{Kind: AuthInvalidPassword, message: login}
	}
	if b.allowed != nil && !b.allowed[login] {
		return &AuthError{Kind: AuthForbidden, message: login}
	}

	return nil
}
