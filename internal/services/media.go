package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/utils"
)

// ObjectStore is the blob store behind media uploads.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	URL(key string) string
}

// Upload is an incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "file"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}

func mediaKind(contentType string) (models.MediaKind, bool) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return models.MediaImage, true
	case strings.HasPrefix(ct, "video/"):
		return models.MediaVideo, true
	}
	return "", false
}

// MediaService stores uploads in object storage with their metadata.
type MediaService struct {
	media    db.MediaFiles
	objects  ObjectStore
	maxBytes int64
	log      logger.Logger
	clock    clock
}

// NewMediaService wires uploads. objects may be nil, in which case uploads are unavailable.
func NewMediaService(media db.MediaFiles, objects ObjectStore, maxBytes int64, log logger.Logger) *MediaService {
	return &MediaService{media: media, objects: objects, maxBytes: maxBytes, log: log}
}

// Upload stores the file and its metadata. When kinds is not empty the
// file must be one of them.
func (s *MediaService) Upload(ctx context.Context, owner primitive.ObjectID, up Upload, kinds ...models.MediaKind) (*models.Media, error) {
	if s.objects == nil {
		return nil, errors.Wrap(apperr.ErrUnavailable, "media storage not configured")
	}
	kind, ok := mediaKind(up.ContentType)
	if !ok {
		return nil, apperr.NewValidationError("file", "file must be an image or a video")
	}
	if len(kinds) > 0 && !containsKind(kinds, kind) {
		return nil, apperr.NewValidationError("file", fmt.Sprintf("file must be of type %s", kinds[0]))
	}
	if up.Size <= 0 {
		return nil, apperr.NewValidationError("file", "file is empty")
	}
	if s.maxBytes > 0 && up.Size > s.maxBytes {
		return nil, apperr.NewValidationError("file", fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}

	id := primitive.NewObjectID()
	key := fmt.Sprintf("%s/%s_%s", kind, id.Hex(), sanitizeFilename(up.Filename))
	m := &models.Media{
		ID:          id,
		OwnerID:     owner,
		Key:         key,
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Size:        up.Size,
		Kind:        kind,
		URL:         s.objects.URL(key),
		CreatedAt:   s.clock.now(),
	}

	// The URL depends only on the key, so the document is written while the object uploads.
	doc := *m
	errs := utils.RunParallel(ctx,
		func(ctx context.Context) error {
			_, err := s.objects.Put(ctx, key, up.Body, up.Size, up.ContentType)
			return err
		},
		func(ctx context.Context) error { return s.media.Create(ctx, &doc) },
	)
	putErr, insertErr := errs[0], errs[1]

	switch {
	case putErr != nil && insertErr == nil:
		if err := s.media.Delete(context.Background(), id); err != nil {
			s.log.Error("cleaning up media document", err, key)
		}
	case putErr == nil && insertErr != nil:
		go func() {
			if err := s.objects.Remove(context.Background(), key); err != nil {
				s.log.Error("cleaning up media object", err, key)
			}
		}()
	}
	if putErr != nil {
		return nil, errors.Wrap(putErr, "uploading media")
	}
	if insertErr != nil {
		return nil, errors.Wrap(insertErr, "saving media metadata")
	}
	return m, nil
}

func containsKind(kinds []models.MediaKind, k models.MediaKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

// List pages through uploaded media.
func (s *MediaService) List(ctx context.Context, page db.Page) ([]models.Media, int64, error) {
	return s.media.List(ctx, page)
}

// Get returns media metadata by ID.
func (s *MediaService) Get(ctx context.Context, id primitive.ObjectID) (*models.Media, error) {
	return s.media.GetByID(ctx, id)
}

// Delete removes the object and its document concurrently.
func (s *MediaService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if s.objects == nil {
		return errors.Wrap(apperr.ErrUnavailable, "media storage not configured")
	}
	m, err := s.media.GetByID(ctx, id)
	if err != nil {
		return err
	}
	errs := utils.RunParallel(ctx,
		func(ctx context.Context) error { return s.objects.Remove(ctx, m.Key) },
		func(ctx context.Context) error { return s.media.Delete(ctx, m.ID) },
	)
	return errors.Wrap(utils.FirstError(errs), "deleting media")
}

// PresignedURL returns a time-limited download link for a stored object.
func (s *MediaService) PresignedURL(ctx context.Context, id primitive.ObjectID, expiry time.Duration) (string, error) {
	if s.objects == nil {
		return "", errors.Wrap(apperr.ErrUnavailable, "media storage not configured")
	}
	m, err := s.media.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.objects.PresignedURL(ctx, m.Key, expiry)
	return url, errors.Wrap(err, "presigning media url")
}
