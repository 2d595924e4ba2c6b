package ident

import (
	"net/url"
	"strings"
)

// PublicBucket is the shared bucket that published resources live under,
// e.g. conversations/public/team/Demo.
const PublicBucket = "public"

// Parts is a decomposed resource identifier. Identifiers have the shape
// apiKey/bucket/segment.../name; the first two segments are always the
// api key and the bucket.
type Parts struct {
	APIKey     string
	Bucket     string
	ParentPath string // "" for a root-level entity
	Name       string
}

// Split decomposes an identifier. Ids with fewer than two segments are
// not validated here; callers guarantee well-formed input and degenerate
// results read as "root".
func Split(id string) Parts {
	segments := strings.Split(id, "/")
	p := Parts{APIKey: segments[0]}
	if len(segments) > 1 {
		p.Bucket = segments[1]
	}
	if len(segments) > 2 {
		p.Name = segments[len(segments)-1]
	}
	if len(segments) > 3 {
		p.ParentPath = strings.Join(segments[2:len(segments)-1], "/")
	}
	return p
}

// IsRoot reports whether id addresses a bucket root (exactly two segments).
func IsRoot(id string) bool {
	return strings.Count(id, "/") == 1
}

// ParentFolderIDs returns every ancestor folder id of an entity, from the
// three-segment root down to (excluding) the entity itself, root first.
// Used to expand the tree so a resource becomes visible.
func ParentFolderIDs(id string) []string {
	segments := strings.Split(id, "/")
	if len(segments) <= 3 {
		return nil
	}
	ids := make([]string, 0, len(segments)-3)
	for i := 3; i < len(segments); i++ {
		ids = append(ids, strings.Join(segments[:i], "/"))
	}
	return ids
}

// ConstructPath joins non-empty segments with "/". Empty segments are
// dropped so nested calls never produce double slashes.
func ConstructPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// IsFolderID reports whether id is in folder (trailing-slash) form.
func IsFolderID(id string) bool {
	return strings.HasSuffix(id, "/")
}

// EncodePath percent-encodes every path segment of an identifier for the
// wire, leaving the separators alone.
func EncodePath(id string) string {
	segments := strings.Split(id, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// DecodePath reverses EncodePath. Segments that fail to decode are kept
// as-is rather than failing the whole identifier.
func DecodePath(id string) string {
	segments := strings.Split(id, "/")
	for i, s := range segments {
		if decoded, err := url.PathUnescape(s); err == nil {
			segments[i] = decoded
		}
	}
	return strings.Join(segments, "/")
}
