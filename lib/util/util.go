// Package util contains helper functions used around the code.
package util

import "strings"

// In returns true if s is found in ss, false otherwise
func In(ss []string, s string) bool {
	for _, v := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// LowerAddr normalizes a blockchain address for comparison and storage. Nodes
// return EIP-55 checksummed addresses while clients may send any casing, so
// everything is kept lowercase with a 0x prefix.
func LowerAddr(a string) string {
	a = strings.ToLower(strings.TrimSpace(a))
	if a != "" && !strings.HasPrefix(a, "0x") {
		a = "0x" + a
	}

	return a
}
