package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	HTTPStatus() int
}

var friendlyAliases = map[string]string{
	"*url.Error":              "Request URL error",
	"*net.OpError":            "Network error",
	"*tracker.TransportError": "Transport error",
	"*tracker.DecodeError":    "Decode error",
	"*runner.PanicError":      "Unit panic",
	"*errors.errorString":     "Error",
}

// Classify returns the failure bucket an error is counted under.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return fmt.Sprintf("HTTP %d", sc.HTTPStatus())
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Context deadline exceeded"
	case errors.Is(err, context.Canceled):
		return "Context canceled"
	}
	return FriendlyErrorName(fmt.Sprintf("%T", err))
}

// FriendlyErrorName returns a human-friendly label for a Go error type name
// such as "*tracker.TransportError".
func FriendlyErrorName(typeName string) string {
	cleaned := strings.TrimSpace(typeName)
	if cleaned == "" {
		return "Unknown error"
	}
	if alias, ok := friendlyAliases[cleaned]; ok {
		return alias
	}

	cleaned = strings.TrimPrefix(cleaned, "*")
	if idx := strings.LastIndex(cleaned, "/"); idx != -1 {
		cleaned = cleaned[idx+1:]
	}
	pkg, name, found := strings.Cut(cleaned, ".")
	if !found {
		name, pkg = pkg, ""
	}

	pretty := splitWords(name)
	if pkg != "" && pkg != "main" {
		return fmt.Sprintf("%s (%s)", pretty, pkg)
	}
	return pretty
}

// splitWords turns "wrapError" into "Wrap error".
func splitWords(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteByte(' ')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
