package utils

import "regexp"

var dogeAddressPattern = regexp.MustCompile(`^D[A-Za-z0-9]{33}$`)

// IsValidDogeAddress reports whether address looks like a Dogecoin P2PKH address.
// It checks the shape only, not the checksum.
func IsValidDogeAddress(address string) bool {
	return dogeAddressPattern.MatchString(address)
}
