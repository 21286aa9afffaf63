package models

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is the client-facing message for a malformed address
const ErrInvalidAddress = "Invalid Ethereum address format"

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s is a 0x-prefixed, 40 hex character address
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// NormalizeAddress lowercases an address for cache keys and comparisons
func NormalizeAddress(s string) string {
	return strings.ToLower(s)
}

// ChecksumAddress returns the EIP-55 mixed-case form of a valid address
func ChecksumAddress(s string) string {
	return common.HexToAddress(s).Hex()
}

// ShortenAddress creates a shortened version of an address
func ShortenAddress(address string) string {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
