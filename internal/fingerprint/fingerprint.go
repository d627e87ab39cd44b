package fingerprint

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Compute derives the content fingerprint for a record submission.
// Deterministic over its inputs; the nonce is what keeps two uploads of
// identical metadata from colliding. It is an integrity handle, not a
// signature.
func Compute(ownerID, issuerID, title string, recordType string, nonce string) string {
	input := strings.Join([]string{ownerID, issuerID, title, recordType, nonce}, "_")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Nonce returns a submission nonce: current time plus a random suffix,
// so a pre-computed fingerprint cannot be raced against a resubmission.
func Nonce() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing means the platform is broken; the
		// timestamp alone still keeps honest submissions apart.
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%d_%s", time.Now().UnixNano(), hex.EncodeToString(b[:]))
}
