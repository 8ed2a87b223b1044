// Package artifact produces and serves the placeholder GLB models that
// stand in for real photogrammetry output.
package artifact

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/photomesh/photomesh/internal/errors"
)

// glbHeader is the magic plus the little-endian GLB container version.
var glbHeader = []byte{'g', 'l', 'T', 'F', 0x02, 0x00, 0x00, 0x00}

// dummyPayloadSize is the size of the random blob appended after the
// metadata block. The output is not a valid GLB scene, just recognisable
// test bytes.
const dummyPayloadSize = 1024

var jobIDRe = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// ValidateJobID rejects identifiers that could escape the output tree.
// Job ids are UUIDs, so anything beyond alphanumerics and hyphens is hostile.
func ValidateJobID(jobID string) error {
	if jobID == "" {
		return apperrors.Validation("job id cannot be empty")
	}
	if !jobIDRe.MatchString(jobID) {
		return apperrors.Validationf("job id %q contains invalid characters", jobID)
	}
	return nil
}

var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFilename strips path components and unsafe characters from an
// uploaded filename so it is safe for filesystem use and logging.
func SanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", apperrors.Validation("filename cannot be empty")
	}

	safe := filepath.Base(filename)
	safe = strings.ReplaceAll(safe, "..", "")
	safe = strings.ReplaceAll(safe, "/", "")
	safe = strings.ReplaceAll(safe, `\`, "")
	safe = unsafeFilenameRe.ReplaceAllString(safe, "_")

	if strings.HasPrefix(safe, ".") {
		safe = "file_" + safe
	}
	if safe == "" {
		return "", apperrors.Validation("filename is empty after sanitization")
	}

	const maxLen = 255
	if len(safe) > maxLen {
		ext := filepath.Ext(safe)
		safe = safe[:maxLen-len(ext)] + ext
	}
	return safe, nil
}

// DummyGLB builds the placeholder model bytes for a job: the GLB magic
// and version, a length-prefixed metadata string naming the job, and a
// random payload.
func DummyGLB(jobID string) ([]byte, error) {
	metadata := fmt.Appendf(nil, "Generated for job: %s", jobID)

	payload := make([]byte, dummyPayloadSize)
	if _, err := rand.Read(payload); err != nil {
		return nil, fmt.Errorf("generate payload: %w", err)
	}

	buf := make([]byte, 0, len(glbHeader)+4+len(metadata)+len(payload))
	buf = append(buf, glbHeader...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(metadata)))
	buf = append(buf, metadata...)
	buf = append(buf, payload...)
	return buf, nil
}

// Store writes placeholder artifacts under an output root and serves
// them back for download. It implements core.ArtifactProducer.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a Store rooted at the given directory.
func NewStore(root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: root, logger: logger.With("component", "artifact_store")}
}

// ProduceArtifact generates the dummy model for a job, persists it, and
// returns the result reference (a path relative to the output root).
func (s *Store) ProduceArtifact(ctx context.Context, jobID string, _ map[string]any) (string, error) {
	if err := ValidateJobID(jobID); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := DummyGLB(jobID)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeArtifact, "generate model")
	}

	ref := filepath.Join("models", jobID+"_model.glb")
	path := filepath.Join(s.root, ref)
	if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o750); mkdirErr != nil {
		return "", apperrors.Wrap(mkdirErr, apperrors.ErrCodeArtifact, "create output directory")
	}
	if writeErr := os.WriteFile(path, data, 0o600); writeErr != nil {
		return "", apperrors.Wrap(writeErr, apperrors.ErrCodeArtifact, "write model file")
	}

	s.logger.InfoContext(ctx, "artifact written", "job_id", jobID, "path", path, "bytes", len(data))
	return ref, nil
}

// Open returns a reader for a previously produced artifact along with
// its size in bytes.
func (s *Store) Open(jobID string) (io.ReadCloser, int64, error) {
	if err := ValidateJobID(jobID); err != nil {
		return nil, 0, err
	}

	path := filepath.Join(s.root, "models", jobID+"_model.glb")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, apperrors.NotFoundf("artifact for job %s not found", jobID)
		}
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeArtifact, "open model file")
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeArtifact, "stat model file")
	}
	return f, info.Size(), nil
}
