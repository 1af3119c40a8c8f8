package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"underwriter-backend/internal/shared/storage/object"
)

const mimePDF = "application/pdf"

// TextKeySuffix is appended to a statement's storage key to name its
// extracted text object.
const TextKeySuffix = ".extracted.txt"

// ExtractText pulls text from a stored PDF and persists a derived .extracted.txt copy.
// Library used: github.com/ledongthuc/pdf.
func ExtractText(ctx context.Context, store object.ObjectStore, fileKey string, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: read: %w", fileKey, mimeType, err)
	}

	text, err := ExtractTextFromBytes(ctx, raw, mimeType)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}

	extractedKey := fileKey + TextKeySuffix
	if err := saveExtracted(ctx, store, extractedKey, text); err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}

	return text, nil
}

// ExtractTextFromBytes extracts text from an in-memory PDF payload.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if normalized != mimePDF {
		return "", fmt.Errorf("unsupported mime type: %s", normalized)
	}
	return extractPDF(data)
}

// MergeStatements joins per-file statement texts into one analysis document,
// each section labeled with its source file so period extraction can
// attribute ranges back to files.
func MergeStatements(fileNames []string, texts []string) (string, error) {
	if len(fileNames) != len(texts) {
		return "", errors.New("file name and text counts differ")
	}
	if len(texts) == 0 {
		return "", errors.New("no statement texts to merge")
	}
	var b strings.Builder
	for i, text := range texts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "===== STATEMENT FILE: %s =====\n", fileNames[i])
		b.WriteString(strings.TrimSpace(text))
	}
	return b.String(), nil
}

type keySaver interface {
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
}

func saveExtracted(ctx context.Context, store object.ObjectStore, key string, text string) error {
	saver, ok := store.(keySaver)
	if !ok {
		return errors.New("object store does not support SaveWithKey")
	}
	reader := strings.NewReader(text)
	_, err := saver.SaveWithKey(ctx, key, "text/plain; charset=utf-8", reader)
	return err
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
