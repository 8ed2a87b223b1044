package artifact

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/photomesh/photomesh/internal/errors"
)

// allowedImageExts lists the upload extensions accepted for processing.
var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ValidateImageFilename sanitizes an uploaded filename and checks it has
// an accepted image extension.
func ValidateImageFilename(filename string) (string, error) {
	safe, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	if !allowedImageExts[strings.ToLower(filepath.Ext(safe))] {
		return "", apperrors.Validationf("unsupported image type %q", filepath.Ext(safe))
	}
	return safe, nil
}

// StoreUpload persists one uploaded image under uploads/<jobID>/ and
// returns the number of bytes written.
func (s *Store) StoreUpload(jobID, filename string, src io.Reader) (int64, error) {
	if err := ValidateJobID(jobID); err != nil {
		return 0, err
	}
	safe, err := ValidateImageFilename(filename)
	if err != nil {
		return 0, err
	}

	dir := filepath.Join(s.root, "uploads", jobID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeArtifact, "create upload directory")
	}

	f, err := os.OpenFile(filepath.Join(dir, safe), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeArtifact, "create upload file")
	}
	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, apperrors.Wrap(err, apperrors.ErrCodeArtifact, "write upload file")
	}
	return n, nil
}
