package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces secret material in log output.
const RedactedValue = "[REDACTED]"

// Keys whose values never reach a log sink. Matching is on the normalised key
// and on the suffixes below, so "admin_passphrase" and "jwt_secret" are
// caught without listing every variant.
var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"token":         {},
	"passphrase":    {},
	"secret":        {},
	"private_key":   {},
}

var sensitiveSuffixes = []string{"_token", "_secret", "_passphrase", "_key"}

// IsSensitive reports whether values logged under key must be masked.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if _, ok := sensitiveKeys[normalized]; ok {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			return true
		}
	}
	return false
}

// MaskField builds a string attribute, masking the value when the key is
// sensitive. Empty values stay empty so a missing header is distinguishable
// from a rejected one. An Authorization scheme prefix is kept.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || !IsSensitive(key) {
		return slog.String(key, value)
	}
	return slog.String(key, maskCredential(value))
}

func maskCredential(value string) string {
	scheme, _, found := strings.Cut(strings.TrimSpace(value), " ")
	if found && strings.EqualFold(scheme, "bearer") {
		return scheme + " " + RedactedValue
	}
	return RedactedValue
}

// redactAttr is the handler-level backstop for attributes logged with a
// sensitive key outside MaskField.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup || !IsSensitive(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindString {
		if attr.Value.String() == "" {
			return attr
		}
		return slog.String(attr.Key, maskCredential(attr.Value.String()))
	}
	return slog.String(attr.Key, RedactedValue)
}
