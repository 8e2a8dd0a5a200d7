// Package storage owns the object-store capability: the S3 client wrapper
// and the key policy that maps project identity to storage keys and public
// URLs. None of the naming logic lives in the client and none of the
// credentials live in the policy.
package storage

import (
	"strings"

	"github.com/google/uuid"
)

// FileRole says what part a file plays in a project upload.
type FileRole int

const (
	// RoleModel is a binary 3D model file (.glb etc.).
	RoleModel FileRole = iota
	// RoleMetadata is the JSON scene-graph/metadata document.
	RoleMetadata
)

// Strategy selects how storage keys are derived. The two strategies are not
// bit-compatible; a deployment runs exactly one, chosen at startup, and must
// not switch for projects that already have uploads.
type Strategy string

const (
	// StrategyOpaque keys files as projects/{id}/{subpath}/{uuid}.{ext},
	// with subpath "models" or "data" by role. No collisions, no filename
	// leakage; the human-readable name is lost.
	StrategyOpaque Strategy = "opaque"

	// StrategyOriginal keys files as projects/{id}/{originalFilename}.
	// Re-uploading the same name overwrites; two files sharing a name
	// within one project collide.
	StrategyOriginal Strategy = "original"
)

// KeyPolicy derives storage keys and public URLs. It is a pure value: safe
// for concurrent use, constructed once at startup from config.
type KeyPolicy struct {
	strategy Strategy
	cdnBase  string

	// randName produces the opaque name stem; replaced in tests.
	randName func() string
}

// NewKeyPolicy builds a policy for the given strategy. cdnBase is the
// already-resolved public base URL (CDN or public bucket), with or without a
// trailing slash.
func NewKeyPolicy(strategy Strategy, cdnBase string) *KeyPolicy {
	return &KeyPolicy{
		strategy: strategy,
		cdnBase:  strings.TrimSuffix(cdnBase, "/"),
		randName: uuid.NewString,
	}
}

// FolderKey returns the key prefix holding every file of a project.
func (p *KeyPolicy) FolderKey(projectID string) string {
	return "projects/" + projectID
}

// DeriveKey maps a project id, file role and original filename to the
// storage key for a new upload. Under StrategyOpaque the original filename
// contributes only its extension.
func (p *KeyPolicy) DeriveKey(projectID string, role FileRole, originalFilename string) string {
	if p.strategy == StrategyOriginal {
		return p.FolderKey(projectID) + "/" + originalFilename
	}

	subpath := "models"
	if role == RoleMetadata {
		subpath = "data"
	}

	name := p.randName()
	if ext := fileExt(originalFilename); ext != "" {
		name += "." + ext
	}

	return p.FolderKey(projectID) + "/" + subpath + "/" + name
}

// DeriveURL resolves a storage key to its public URL.
func (p *KeyPolicy) DeriveURL(key string) string {
	return p.cdnBase + "/" + key
}

// FolderURL resolves the public URL of a project's file prefix.
func (p *KeyPolicy) FolderURL(projectID string) string {
	return p.DeriveURL(p.FolderKey(projectID))
}

// ModelFolderURL resolves the public URL of the prefix holding model files.
func (p *KeyPolicy) ModelFolderURL(projectID string) string {
	if p.strategy == StrategyOriginal {
		return p.FolderURL(projectID)
	}
	return p.DeriveURL(p.FolderKey(projectID) + "/models")
}

// fileExt returns the lowercased suffix after the last '.', or "" when the
// name has no extension.
func fileExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
