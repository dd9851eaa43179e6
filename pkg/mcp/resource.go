package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ResourceHandler reads a resource. It is called for resources/read; if it
// cannot find the resource it should return ResourceNotFoundError (spec
// §4.4 "resources/read").
type ResourceHandler func(ctx context.Context, ss *ServerSession, uri string) (*ReadResourceResult, error)

// ServerResource binds a Resource definition to its handler.
type ServerResource struct {
	Resource *Resource
	Handler  ResourceHandler
}

type resourceRegistry struct {
	set *featureSet[*ServerResource]
}

func newResourceRegistry() *resourceRegistry {
	return &resourceRegistry{set: newFeatureSet(func(r *ServerResource) string { return r.Resource.URI })}
}

// FileResourceHandler returns a ResourceHandler that reads file:// URIs from
// rootDir, refusing to serve anything outside it. This mirrors the source
// framework's own sandboxing of file-backed resources, adapted to the
// simpler single-root model this core exposes (no client Roots negotiation;
// spec §1 lists configuration/tooling concerns as external collaborators).
func FileResourceHandler(rootDir string) ResourceHandler {
	return func(_ context.Context, _ *ServerSession, uri string) (*ReadResourceResult, error) {
		data, mimeType, err := readFileResource(uri, rootDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ResourceNotFoundError(uri)
			}
			return nil, err
		}
		return &ReadResourceResult{Contents: []*ResourceContents{NewTextResourceContents(uri, mimeType, string(data))}}, nil
	}
}

func readFileResource(rawURI, rootDir string) ([]byte, string, error) {
	rel, err := resourceURIToPath(rawURI)
	if err != nil {
		return nil, "", err
	}
	full := filepath.Join(rootDir, rel)
	f, err := os.Open(full)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, mimeTypeForExt(filepath.Ext(full)), nil
}

// resourceURIToPath turns a "file://..." URI into a path relative to a root,
// rejecting any attempt to escape it (adapted from the source framework's
// path-traversal guard on file-backed resources).
func resourceURIToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("mcp: resource URI is not a file: %s", rawURI)
	}
	if u.Path == "" {
		return "", errors.New("mcp: empty file URI path")
	}
	rel, err := filepath.Localize(strings.TrimPrefix(u.Path, "/"))
	if err != nil {
		return "", fmt.Errorf("mcp: resource path %q escapes its root: %w", u.Path, err)
	}
	return rel, nil
}

func mimeTypeForExt(ext string) string {
	switch ext {
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	default:
		return ""
	}
}
