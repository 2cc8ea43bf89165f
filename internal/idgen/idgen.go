// Package idgen mints the identifiers that name runs in the ledger, in
// exports, and on the CLI.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Prefix sets run IDs apart from node names and outcome keys in
	// logs and event records.
	Prefix = "run-"

	// Alphanumeric only, so IDs paste cleanly into URLs, object keys,
	// and shell arguments without quoting.
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	length   = 10
)

// NewRunID mints a fresh run identifier, e.g. "run-Ab3xK9qRzT".
func NewRunID() (string, error) {
	id, err := nanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generating run ID: %w", err)
	}
	return Prefix + id, nil
}
