package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// maxAttempts bounds the numeric suffix search before giving up.
const maxAttempts = 50

// Make lower-cases name and replaces whitespace runs with "-".
func Make(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(name)), unicode.IsSpace)
	return strings.Join(fields, "-")
}

// Unique returns base, or base-2, base-3 ... when taken reports the candidate
// is in use.
func Unique(ctx context.Context, base string, taken func(ctx context.Context, candidate string) (bool, error)) (string, error) {
	if base == "" {
		return "", fmt.Errorf("slug base is empty")
	}
	candidate := base
	for i := 2; i <= maxAttempts+1; i++ {
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxAttempts)
}
