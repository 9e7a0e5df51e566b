// Package idgen provides short random identifiers backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// KeyAlphabet is the character set for rich-text keys.
const KeyAlphabet = "0123456789abcdef"

// KeyLength is the number of characters in a rich-text key.
const KeyLength = 12

// Key returns a random key for a rich-text block, child or annotation.
func Key() (string, error) {
	k, err := nanoid.Generate(KeyAlphabet, KeyLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return k, nil
}

// MustKey is like Key but panics if the random source fails.
func MustKey() string {
	k, err := Key()
	if err != nil {
		panic(err)
	}
	return k
}

