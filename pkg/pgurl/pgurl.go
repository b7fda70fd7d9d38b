// Package pgurl canonicalizes PostgreSQL connection URLs.
//
// Connection strings arrive from the environment in a handful of historical
// spellings (most commonly the legacy "postgres://" scheme). Everything in
// this module stores and caches URLs in the canonical "postgresql://" form,
// optionally carrying a "+async" or "+sync" qualifier that routes the URL to
// the pooled engine layer or to migration tooling. The qualifier is stripped
// before a DSN is handed to the driver.
package pgurl

import (
	"net/url"
	"strings"
)

// Variant selects which call-site a driver-qualified URL is intended for.
type Variant string

const (
	// Async marks a URL for the pooled engine layer.
	Async Variant = "async"
	// Sync marks a URL for single-connection tooling such as migrations.
	Sync Variant = "sync"
)

const canonicalScheme = "postgresql"

// Normalize rewrites a legacy "postgres://" prefix to the canonical
// "postgresql://" scheme. Empty and unrecognized input is returned unchanged.
func Normalize(raw string) string {
	if strings.HasPrefix(raw, "postgres://") {
		return canonicalScheme + "://" + strings.TrimPrefix(raw, "postgres://")
	}
	return raw
}

// WithDriver rewrites the driver qualifier of a postgres-family URL to the
// requested variant. URLs whose backend is not postgres are returned
// unchanged, as is anything that does not parse. Userinfo, host, path and
// query components are preserved.
func WithDriver(raw string, v Variant) string {
	u, err := url.Parse(raw)
	if err != nil || !isPostgresFamily(u.Scheme) {
		return raw
	}
	u.Scheme = canonicalScheme + "+" + string(v)
	return u.String()
}

// StripDriver removes any "+qualifier" from the URL scheme, yielding a bare
// DSN suitable for the low-level driver.
func StripDriver(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	base, _, found := strings.Cut(u.Scheme, "+")
	if !found {
		return raw
	}
	u.Scheme = base
	return u.String()
}

// Redact renders the URL with its password replaced, for logging.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func isPostgresFamily(scheme string) bool {
	base, _, _ := strings.Cut(scheme, "+")
	return base == canonicalScheme || base == "postgres"
}
