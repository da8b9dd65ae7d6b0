package metric

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NamingConvention renders meter names and tags into the shape a
// monitoring backend expects. Implementations must be stateless so a
// single convention can serve concurrent export cycles.
type NamingConvention interface {
	Name(name string) string
	TagKey(key string) string
	TagValue(value string) string
}

// Identity leaves names and tags exactly as registered.
var Identity NamingConvention = identityConvention{}

// CamelCase joins dot-separated parts into camelCase, leaving the first
// part untouched: "http.server.requests" becomes "httpServerRequests".
// Tag values pass through unchanged.
var CamelCase NamingConvention = camelCaseConvention{}

// SnakeCase replaces the dots in names and tag keys with underscores.
var SnakeCase NamingConvention = snakeCaseConvention{}

type identityConvention struct{}

func (identityConvention) Name(name string) string      { return name }
func (identityConvention) TagKey(key string) string     { return key }
func (identityConvention) TagValue(value string) string { return value }

type camelCaseConvention struct{}

func (camelCaseConvention) Name(name string) string      { return toCamelCase(name) }
func (camelCaseConvention) TagKey(key string) string     { return toCamelCase(key) }
func (camelCaseConvention) TagValue(value string) string { return value }

type snakeCaseConvention struct{}

func (snakeCaseConvention) Name(name string) string      { return strings.ReplaceAll(name, ".", "_") }
func (snakeCaseConvention) TagKey(key string) string     { return strings.ReplaceAll(key, ".", "_") }
func (snakeCaseConvention) TagValue(value string) string { return value }

// toCamelCase keeps the first dot-separated part verbatim and capitalizes
// the first rune of every later part. Empty parts from consecutive or
// leading dots are dropped; capitalization still goes by the part's
// position in the original name, so ".server.requests" renders as
// "ServerRequests".
func toCamelCase(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	parts := strings.Split(s, ".")
	var b strings.Builder
	b.Grow(len(s))
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 {
			b.WriteString(part)
			continue
		}
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	return b.String()
}
