package statements

import "time"

// UploadResponse lists the storage paths of the uploaded statements.
// The paths are what the underwrite endpoint accepts as file_paths.
type UploadResponse struct {
	FilePaths []string `json:"file_paths"`
}

// FileResponse is the outward-facing representation of a statement file.
type FileResponse struct {
	FileName   string    `json:"fileName"`
	FilePath   string    `json:"filePath"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func toFileResponse(f StatementFile) FileResponse {
	return FileResponse{
		FileName:   f.FileName,
		FilePath:   f.StorageKey,
		SizeBytes:  f.SizeBytes,
		UploadedAt: f.CreatedAt,
	}
}
