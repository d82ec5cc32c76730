package upload

import "context"

// Uploader publishes a local output directory to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// UploadDir uploads all files in localDir. The run id is used as a
	// sub-prefix under the configured remote prefix.
	UploadDir(ctx context.Context, localDir, runID string) error
}
