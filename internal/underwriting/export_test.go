package underwriting

import (
	"context"
	"testing"

	"underwriter-backend/internal/shared/storage/object"
)

// SetExtractTextForTests swaps the PDF extractor for the duration of a test.
func SetExtractTextForTests(t *testing.T, fn func(ctx context.Context, fileKey string) (string, error)) {
	t.Helper()
	orig := extractText
	extractText = func(ctx context.Context, _ object.ObjectStore, fileKey, _ string) (string, error) {
		return fn(ctx, fileKey)
	}
	t.Cleanup(func() { extractText = orig })
}
