package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
)

type uploadStore interface {
	Create(ctx context.Context, file *models.UploadedFile) error
	FindByID(ctx context.Context, id string) (*models.UploadedFile, error)
	List(ctx context.Context, filter models.UploadFilter) ([]models.UploadedFile, int, error)
	Delete(ctx context.Context, id string) error
}

type uploadFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// UploadRequest carries upload metadata and the stream reader.
type UploadRequest struct {
	Kind     models.UploadKind
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// FileDownload bundles an open file with its metadata for streaming.
type FileDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// UploadConfig holds validation parameters for uploads.
type UploadConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// UploadService validates and stores receipt and banner files.
type UploadService struct {
	repo    uploadStore
	storage uploadFileStorage
	logger  *zap.Logger
	cfg     UploadConfig
	mimeSet map[string]struct{}
}

// NewUploadService constructs the service with defaults.
func NewUploadService(repo uploadStore, storage uploadFileStorage, logger *zap.Logger, cfg UploadConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{
			"image/jpeg",
			"image/png",
			"image/webp",
			"application/pdf",
		}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &UploadService{repo: repo, storage: storage, logger: logger, cfg: cfg, mimeSet: mimeSet}
}

// Upload validates the stream and persists both file and metadata.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest, uploadedBy string) (*models.UploadedFile, error) {
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown upload kind")
	}
	if req.Content == nil || req.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if req.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	mimeType, err := s.detectMime(req.Content)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	filename := s.generateFilename(req.Kind, req.Filename)
	if _, err := req.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	path, err := s.storage.SaveStream(filename, req.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist file")
	}

	file := &models.UploadedFile{
		Kind:         req.Kind,
		OriginalName: filepath.Base(req.Filename),
		FilePath:     path,
		MimeType:     mimeType,
		SizeBytes:    req.Size,
		CreatedAt:    time.Now().UTC(),
	}
	if uploadedBy != "" {
		file.UploadedBy = &uploadedBy
	}
	if err := s.repo.Create(ctx, file); err != nil {
		_ = s.storage.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save file metadata")
	}
	return file, nil
}

// List returns stored file metadata matching the filter.
func (s *UploadService) List(ctx context.Context, filter models.UploadFilter) ([]models.UploadedFile, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 || size > 100 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns metadata for a stored file.
func (s *UploadService) Get(ctx context.Context, id string) (*models.UploadedFile, error) {
	file, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	return file, nil
}

// Download opens the stored file for streaming to the client.
func (s *UploadService) Download(ctx context.Context, id string) (*FileDownload, error) {
	meta, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	file, err := s.storage.Open(meta.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat file")
	}
	return &FileDownload{
		File:      file,
		Filename:  meta.OriginalName,
		MimeType:  meta.MimeType,
		SizeBytes: info.Size(),
	}, nil
}

// Delete removes the stored file and its metadata.
func (s *UploadService) Delete(ctx context.Context, id string) error {
	meta, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file metadata")
	}
	if err := s.storage.Delete(meta.FilePath); err != nil {
		s.logger.Warn("failed to remove stored file", zap.String("path", meta.FilePath), zap.Error(err))
	}
	return nil
}

func (s *UploadService) detectMime(content io.ReadSeeker) (string, error) {
	buf := make([]byte, 512)
	n, err := content.Read(buf)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload stream")
	}
	detected := http.DetectContentType(buf[:n])
	if idx := strings.Index(detected, ";"); idx > 0 {
		detected = detected[:idx]
	}
	return strings.TrimSpace(detected), nil
}

func (s *UploadService) generateFilename(kind models.UploadKind, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		suffix = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
	}
	return fmt.Sprintf("%s_%s%s", strings.ToLower(string(kind)), hex.EncodeToString(suffix), ext)
}
