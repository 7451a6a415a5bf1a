package casfa

import (
	"crypto/sha256"
	"encoding/base32"
)

// KeyLen is the fixed length of a content key: the Crockford base32
// encoding of a 128-bit hash.
const KeyLen = 26

var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// HashKey derives the content key for a node encoding. Identical bytes
// always produce identical keys, which is what makes subtree equality a
// single string comparison.
func HashKey(data []byte) string {
	sum := sha256.Sum256(data)
	return crockford.EncodeToString(sum[:16])
}

// ValidKey reports whether s has the fixed content key format.
func ValidKey(s string) bool {
	if len(s) != KeyLen {
		return false
	}
	_, err := crockford.DecodeString(s)
	return err == nil
}
