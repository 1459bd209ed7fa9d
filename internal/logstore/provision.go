package logstore

import (
	"context"
	"fmt"
	"strings"
)

// EnsureCollections creates every collection between baseURL and resourcePath
// that does not exist yet, parents first. resourcePath must start with baseURL.
//
// Each segment is probed with Exists, including ones below an existing
// ancestor, so a partially provisioned tree is completed on the next call.
// The first transport error stops the walk; collections created before it
// are left in place.
func EnsureCollections(ctx context.Context, baseURL, resourcePath string, store RemoteStore, logger Logger) (bool, error) {
	if !strings.HasPrefix(resourcePath, baseURL) {
		return false, fmt.Errorf("resource %q is not under base URL %q", resourcePath, baseURL)
	}
	relative := strings.TrimPrefix(resourcePath, baseURL)
	logger.Debug("provisioning collections", "resource", resourcePath, "relative", relative)

	collection := baseURL
	for _, token := range strings.Split(relative, "/") {
		if token == "" {
			continue
		}
		collection += "/" + token

		exists, err := store.Exists(ctx, collection)
		if err != nil {
			return false, fmt.Errorf("checking collection %s: %w", collection, err)
		}
		if exists {
			continue
		}

		if err := store.CreateCollection(ctx, collection); err != nil {
			return false, fmt.Errorf("creating collection %s: %w", collection, err)
		}
		logger.Info("created collection", "collection", collection)
	}

	return true, nil
}
