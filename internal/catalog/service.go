package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"cadenza/internal/cache"

	"github.com/sirupsen/logrus"
)

// Service implements the catalog operations on top of a Store. It is safe
// for concurrent use.
type Service struct {
	store      Store
	media      MediaStore
	prober     DurationProber
	categories *cache.CategoryCache
	logger     *logrus.Logger
}

// NewService wires a catalog service. prober may be nil, in which case song
// durations are only taken from client input.
func NewService(store Store, media MediaStore, prober DurationProber, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		store:      store,
		media:      media,
		prober:     prober,
		categories: cache.NewCategoryCache(),
		logger:     logger,
	}
}

// Close releases the category cache.
func (s *Service) Close() {
	s.categories.Close()
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

var (
	audioExtensions = map[string]bool{".mp3": true, ".wav": true, ".flac": true, ".m4a": true}
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}
)

func hasExtension(filename string, allowed map[string]bool) bool {
	return allowed[strings.ToLower(filepath.Ext(filename))]
}

// checkUpload validates the extension of an upload for the given kind.
func checkUpload(kind MediaKind, field string, upload *Upload) error {
	allowed := imageExtensions
	message := "Only image files (jpg, jpeg, png, gif) are allowed"
	if kind == MediaAudio {
		allowed = audioExtensions
		message = "Only audio files (mp3, wav, flac, m4a) are allowed"
	}
	if !hasExtension(upload.Filename, allowed) {
		return invalid(field, message)
	}
	return nil
}

// saveUpload validates the extension of an upload and stores it.
func (s *Service) saveUpload(kind MediaKind, field string, upload *Upload) (string, error) {
	if err := checkUpload(kind, field, upload); err != nil {
		return "", err
	}

	url, err := s.media.Save(kind, upload)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return "", &ValidationError{Field: field, Message: "File is too large", Err: err}
		}
		return "", err
	}
	return url, nil
}

// deriveDuration probes the stored audio. Failures are logged and yield 0.
func (s *Service) deriveDuration(ctx context.Context, audioURL string) int {
	if s.prober == nil {
		return 0
	}

	var (
		seconds int
		err     error
	)
	if path, ok := s.media.LocalPath(audioURL); ok {
		seconds, err = s.prober.ProbeFile(path)
	} else {
		seconds, err = s.prober.ProbeURL(ctx, audioURL)
	}
	if err != nil {
		s.logger.WithError(err).WithField("audio_url", audioURL).Warn("Failed to derive song duration")
		return 0
	}
	return seconds
}

// recompute refreshes album aggregates. Failures never reach the caller.
func (s *Service) recompute(ctx context.Context, albumID string) {
	if albumID == "" {
		return
	}
	agg, err := s.store.RecomputeAlbumAggregates(ctx, albumID)
	if err != nil {
		s.logger.WithError(err).WithField("album_id", albumID).Error("Failed to recompute album aggregates")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"album_id":       albumID,
		"songs":          agg.SongCount,
		"total_duration": agg.TotalDuration,
		"average_rating": agg.AverageRating,
	}).Debug("Recomputed album aggregates")
}
