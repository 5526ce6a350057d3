package utils

import "strings"

// SplitFullName splits "First Last" into its parts. Everything after the
// first word is the last name.
func SplitFullName(fullname string) (first, last string) {
	parts := strings.Fields(fullname)

	if len(parts) > 0 {
		first = parts[0]
	}
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}

	return
}
