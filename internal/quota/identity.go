package quota

import (
	"crypto/sha256"
	"encoding/hex"
)

// UnknownAddress is the sentinel used when no client address is available.
const UnknownAddress = "unknown"

// DeriveIdentity reduces a raw client address to a stable, one-way storage
// key. The digest cannot be reversed to the original address, so persisted
// quota records never contain client IPs, and the key length is fixed
// regardless of input.
func DeriveIdentity(rawAddr string) string {
	if rawAddr == "" {
		rawAddr = UnknownAddress
	}
	sum := sha256.Sum256([]byte(rawAddr))
	return hex.EncodeToString(sum[:])
}
