// Package id generates request identifiers.
package id

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed unique ID.
// Format: <prefix>-<nanoid>
// Example: req-V1StGXR8_Z5jdHi6B-myT
func Generate(prefix string) string {
	nid, err := gonanoid.New()
	if err != nil {
		// Fallback to a nanosecond timestamp if the random source fails
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return prefix + "-" + nid
}
