// Package checksum fingerprints import sources so unchanged files are not
// re-imported.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Text returns the hex SHA-256 digest of an import source. Line endings and
// trailing whitespace are normalized first, so an editor rewriting CRLF as LF
// does not count as a change.
func Text(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimRight(s, " \t\r\n")
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
