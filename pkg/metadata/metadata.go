// Package metadata signs exported documents with a trailing status block and
// verifies them later.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// TagStart is the start of the metadata block.
	TagStart = "<!-- METADATA_START"
	// TagEnd is the end of the metadata block.
	TagEnd = "METADATA_END -->"
	// Version is written into every new block.
	Version = "tgforge/1"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Metadata contains the document status information.
type Metadata struct {
	LastModify time.Time
	Version    string
	Hash       string
	RunID      string
	Kind       string
	Validation bool
}

// metadataRegex matches the entire metadata block including tags.
var metadataRegex = regexp.MustCompile(`(?s)<!--\s*METADATA_START\s*\n(.*?)\n\s*METADATA_END\s*-->`)

// Extract removes the metadata block from content and returns both the metadata and the cleaned content
// The cleaned content is what should be hashed.
func Extract(content string) (*Metadata, string) {
	match := metadataRegex.FindStringSubmatch(content)
	cleanContent := metadataRegex.ReplaceAllString(content, "")
	cleanContent = strings.TrimRight(cleanContent, "\n")

	if len(match) < 2 {
		return nil, cleanContent
	}

	meta := &Metadata{}

	for line := range strings.SplitSeq(match[1], "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		key, val = strings.TrimSpace(key), strings.TrimSpace(val)

		switch key {
		case "VALIDATION":
			meta.Validation = strings.EqualFold(val, "TRUE")
		case "LAST_MODIFY":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.LastModify = t
			}
		case "HASH":
			meta.Hash = val
		case "VERSION":
			meta.Version = val
		case "RUN_ID":
			meta.RunID = val
		case "KIND":
			meta.Kind = val
		}
	}

	return meta, cleanContent
}

// CalculateHash computes the SHA-256 hash of the content (excluding metadata).
func CalculateHash(content string) string {
	_, clean := Extract(content)
	hash := sha256.Sum256([]byte(clean))

	return hex.EncodeToString(hash[:])
}

// Sign appends or replaces the metadata block with a fresh hash and
// timestamp. The run fields of prev, if any, are carried over.
func Sign(content string, validated bool, prev *Metadata) string {
	meta := Metadata{Validation: validated}
	if prev != nil {
		meta.RunID, meta.Kind = prev.RunID, prev.Kind
	}

	return SignWith(content, meta)
}

// SignWith writes meta as the metadata block of content. Hash, version and
// timestamp are always recomputed.
func SignWith(content string, meta Metadata) string {
	_, clean := Extract(content)

	valStr := "FALSE"
	if meta.Validation {
		valStr = "TRUE"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "\n\n%s\nVERSION: %s\nVALIDATION: %s\nLAST_MODIFY: %s\n",
		TagStart, Version, valStr, time.Now().UTC().Format(time.RFC3339))

	if meta.RunID != "" {
		fmt.Fprintf(&b, "RUN_ID: %s\n", meta.RunID)
	}

	if meta.Kind != "" {
		fmt.Fprintf(&b, "KIND: %s\n", meta.Kind)
	}

	fmt.Fprintf(&b, "HASH: %s\n%s", CalculateHash(clean), TagEnd)

	return clean + b.String()
}

// Verify checks if the content matches the hash in its metadata.
func Verify(content string) (bool, error) {
	meta, clean := Extract(content)
	if meta == nil {
		return false, ErrNoMetadataBlock
	}

	if meta.Hash == "" {
		return false, ErrNoHashFound
	}

	calculated := CalculateHash(clean)
	if calculated != meta.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return true, nil
}
