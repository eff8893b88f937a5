package resumes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-critic/internal/extract"
	"resume-critic/internal/shared/storage/object"
	"resume-critic/internal/shared/telemetry"
	"resume-critic/internal/shared/util"
)

// ErrForbidden indicates the caller does not own the resume.
var ErrForbidden = errors.New("forbidden")

// ErrUnsupportedType indicates a file type outside pdf, docx, and txt.
var ErrUnsupportedType = errors.New("unsupported file type")

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// Service implements resume upload, retrieval, and deletion.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
}

// UploadInput carries the metadata accompanying an upload.
type UploadInput struct {
	FileName       string
	ProfileSummary string
	Sections       []Section
}

// Upload stores the file bytes and records the resume.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput, r io.Reader) (Resume, error) {
	fileType, err := resolveFileType(in.FileName)
	if err != nil {
		return Resume{}, err
	}

	safeName, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return Resume{}, ErrUnsupportedType
	}

	key, size, _, err := s.Store.Save(ctx, userID, safeName, r)
	if err != nil {
		return Resume{}, fmt.Errorf("store resume: %w", err)
	}

	for i := range in.Sections {
		in.Sections[i].OrderIndex = i
	}
	resume := Resume{
		ID:             uuid.NewString(),
		UserID:         userID,
		FileName:       in.FileName,
		FileType:       fileType,
		SizeBytes:      size,
		StorageKey:     key,
		ProfileSummary: strings.TrimSpace(in.ProfileSummary),
		Sections:       in.Sections,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, resume); err != nil {
		if delErr := s.Store.Delete(ctx, key); delErr != nil {
			telemetry.Error("resume.orphan_object", map[string]any{"storageKey": key, "error": delErr.Error()})
		}
		return Resume{}, err
	}
	telemetry.Info("resume.uploaded", map[string]any{
		"resumeId":  resume.ID,
		"userId":    userID,
		"fileType":  fileType,
		"sizeBytes": size,
	})
	return resume, nil
}

// UploadBase64 accepts file content as base64, with or without a data
// URL prefix, and stores it like Upload.
func (s *Service) UploadBase64(ctx context.Context, userID string, in UploadInput, content string) (Resume, error) {
	data, err := extract.Decode(content)
	if err != nil {
		return Resume{}, fmt.Errorf("decode content: %w", err)
	}
	return s.Upload(ctx, userID, in, bytes.NewReader(data))
}

// Get returns a resume the user owns.
func (s *Service) Get(ctx context.Context, userID, resumeID string) (Resume, error) {
	resume, err := s.Repo.GetByID(ctx, resumeID)
	if err != nil {
		return Resume{}, err
	}
	if resume.UserID != userID {
		return Resume{}, ErrForbidden
	}
	return resume, nil
}

// List returns the user's resumes, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// OpenFile streams the stored bytes of a resume the user owns.
func (s *Service) OpenFile(ctx context.Context, userID, resumeID string) (Resume, io.ReadCloser, error) {
	resume, err := s.Get(ctx, userID, resumeID)
	if err != nil {
		return Resume{}, nil, err
	}
	rc, err := s.Store.Open(ctx, resume.StorageKey)
	if err != nil {
		return Resume{}, nil, fmt.Errorf("open stored file: %w", err)
	}
	return resume, rc, nil
}

// ReadFileBytes loads the full stored file for a resume. Used by the
// analysis pipeline, which needs the bytes in memory for extraction.
func (s *Service) ReadFileBytes(ctx context.Context, resumeID string) (Resume, []byte, error) {
	resume, err := s.Repo.GetByID(ctx, resumeID)
	if err != nil {
		return Resume{}, nil, err
	}
	rc, err := s.Store.Open(ctx, resume.StorageKey)
	if err != nil {
		return Resume{}, nil, fmt.Errorf("open stored file: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Resume{}, nil, fmt.Errorf("read stored file: %w", err)
	}
	return resume, data, nil
}

// Delete removes the record and the stored object.
func (s *Service) Delete(ctx context.Context, userID, resumeID string) error {
	resume, err := s.Get(ctx, userID, resumeID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, resumeID); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, resume.StorageKey); err != nil {
		// The record is already gone; the leftover object is logged
		// rather than failing the request.
		telemetry.Error("resume.orphan_object", map[string]any{"storageKey": resume.StorageKey, "error": err.Error()})
	}
	telemetry.Info("resume.deleted", map[string]any{"resumeId": resumeID, "userId": userID})
	return nil
}

func resolveFileType(fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	mime, ok := allowedExtensions[ext]
	if !ok {
		return "", ErrUnsupportedType
	}
	return mime, nil
}
