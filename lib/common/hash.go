package common

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// hashSeparator is the byte joined between the parts of a canonical hash
// input. Parts are not escaped, so the encoding is unambiguous only for
// parts that contain no 0x00 byte; nothing here rejects one.
const hashSeparator = 0x00

// Hash returns the hex digest of parts joined with a single separator
// byte: H(parts) = blake2b_256(parts[0] 0x00 parts[1] 0x00 ...).
//
// blake2b256 is a fast, general-purpose hash — the right primitive for a
// digest recomputed on every cast and re-verified on every ballot, unlike
// a slow password-hashing KDF.
func Hash(parts []string) string {
	return hex.EncodeToString(HashBytes(parts))
}

func HashBytes(parts []string) []byte {
	h, _ := blake2b.New256(nil)
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{hashSeparator})
		}
		h.Write([]byte(p))
	}
	return h.Sum(nil)
}
