package crypto

import "crypto/subtle"

// Equal reports whether a and b are equal, in constant time with respect to
// their contents (not their lengths).
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
