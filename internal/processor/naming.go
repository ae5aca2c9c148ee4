package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"cdcrouter/internal/constants"
)

const hashSuffixLength = 8

// ExecutionName joins parts with "-" and maps the result onto the workflow
// engine's name alphabet. When any character had to be replaced, or the
// name exceeds the engine limit, a hash of the unsanitized name is appended
// so distinct inputs never share a name.
func ExecutionName(parts ...string) string {
	full := strings.Join(parts, "-")

	var b strings.Builder
	b.Grow(len(full))
	sanitized := false
	for _, r := range full {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
			sanitized = true
		}
	}
	name := b.String()

	if !sanitized && len(name) <= constants.MaxExecutionNameLength {
		return name
	}

	sum := sha256.Sum256([]byte(full))
	suffix := hex.EncodeToString(sum[:])[:hashSuffixLength]
	if limit := constants.MaxExecutionNameLength - hashSuffixLength - 1; len(name) > limit {
		name = name[:limit]
	}
	return name + "-" + suffix
}
