package extract

import (
	"context"
	"strings"
	"testing"
)

func TestExtractTextFromBytesRejectsNonPDF(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("plain text"), "text/plain")
	if err == nil {
		t.Fatalf("expected error for non-PDF mime type")
	}
	if !strings.Contains(err.Error(), "unsupported mime type") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractTextFromBytesNormalizesMime(t *testing.T) {
	// Parameterized mime types still route to the PDF extractor; garbage
	// payload then fails inside the parser, not at mime dispatch.
	_, err := ExtractTextFromBytes(context.Background(), []byte("not a pdf"), "Application/PDF; charset=binary")
	if err == nil {
		t.Fatalf("expected parse error for invalid PDF payload")
	}
	if strings.Contains(err.Error(), "unsupported mime type") {
		t.Fatalf("mime normalization failed: %v", err)
	}
}

func TestMergeStatements(t *testing.T) {
	merged, err := MergeStatements(
		[]string{"jan.pdf", "feb.pdf"},
		[]string{"January activity", "February activity"},
	)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !strings.Contains(merged, "===== STATEMENT FILE: jan.pdf =====") {
		t.Fatalf("expected jan.pdf header in merged text:\n%s", merged)
	}
	if !strings.Contains(merged, "===== STATEMENT FILE: feb.pdf =====") {
		t.Fatalf("expected feb.pdf header in merged text:\n%s", merged)
	}
	if strings.Index(merged, "January") > strings.Index(merged, "February") {
		t.Fatalf("expected file order preserved")
	}
}

func TestMergeStatementsMismatch(t *testing.T) {
	if _, err := MergeStatements([]string{"a.pdf"}, nil); err == nil {
		t.Fatalf("expected error for mismatched inputs")
	}
}
