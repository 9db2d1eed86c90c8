// Package id generates prefixed identifiers for stored entities.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the identifiers minted by this service.
const (
	PrefixBook  = "book"
	PrefixToken = "tok"
)

// Generate returns "prefix-<nanoid>", e.g. "book-V1StGXR8_Z5jdHi6B-myT".
// The random part is a 21 character URL-safe NanoID.
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}
