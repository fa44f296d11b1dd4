package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cadenza/internal/catalog"
	"cadenza/internal/config"
	"cadenza/internal/metadata"
	"cadenza/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ImportedSuffix is appended to files once they are in the catalog.
const ImportedSuffix = ".imported"

// ErrNoImage is returned for a file without embedded art when no default
// image is configured.
var ErrNoImage = errors.New("no cover image available")

// Catalog is the part of the catalog service the importer drives
type Catalog interface {
	CreateSong(ctx context.Context, in catalog.SongInput) (*models.Song, error)
	FindAlbumByName(ctx context.Context, name string) (*models.Album, error)
}

// TagReader reads embedded tags from audio files
type TagReader interface {
	ReadTags(filePath string) (*metadata.Tags, error)
	IsAudioFile(filePath string) bool
}

// Importer turns audio files dropped into a folder into songs
type Importer struct {
	config  *config.ImportConfig
	catalog Catalog
	tags    TagReader
	logger  *logrus.Logger

	watcher *fsnotify.Watcher
	pending sync.WaitGroup
	active  sync.Map // path -> struct{}
	settle  time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an importer
func New(cfg *config.ImportConfig, cat Catalog, tags TagReader, logger *logrus.Logger) *Importer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Importer{
		config:  cfg,
		catalog: cat,
		tags:    tags,
		logger:  logger,
		settle:  500 * time.Millisecond,
	}
}

// Scan imports every audio file currently in the folder using a worker pool
// and returns how many songs were created.
func (im *Importer) Scan(ctx context.Context) (int, error) {
	im.logger.WithField("import_path", im.config.Path).Info("Scanning import folder")

	workers := im.config.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	var imported int64
	jobs := make(chan string, 100)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if err := im.ImportFile(ctx, path); err != nil {
					im.logger.WithError(err).WithField("file_path", path).Warn("Failed to import file")
					continue
				}
				atomic.AddInt64(&imported, 1)
			}
		}()
	}

	walkErr := filepath.WalkDir(im.config.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() && im.shouldImport(path) {
			jobs <- path
		}
		return nil
	})

	close(jobs)
	wg.Wait()

	im.logger.WithField("count", imported).Info("Import scan finished")
	return int(imported), walkErr
}

// ImportFile creates a song from one audio file and marks the file as
// imported. A file already being imported is skipped.
func (im *Importer) ImportFile(ctx context.Context, path string) error {
	if _, busy := im.active.LoadOrStore(path, struct{}{}); busy {
		return nil
	}
	defer im.active.Delete(path)

	tags, err := im.tags.ReadTags(path)
	if err != nil {
		return fmt.Errorf("failed to read tags: %w", err)
	}

	audio, err := os.Open(path)
	if err != nil {
		return err
	}
	defer audio.Close()

	stat, err := audio.Stat()
	if err != nil {
		return err
	}

	image, closeImage, err := im.coverImage(tags)
	if err != nil {
		return err
	}
	defer closeImage()

	input := catalog.SongInput{
		Name:   tags.Title,
		Artist: tags.Artist,
		Audio: &catalog.Upload{
			Filename: filepath.Base(path),
			Size:     stat.Size(),
			Body:     audio,
		},
		Image: image,
	}

	if tags.Album != "" {
		album, err := im.catalog.FindAlbumByName(ctx, tags.Album)
		switch {
		case err == nil:
			input.AlbumID = album.ID
		case errors.Is(err, catalog.ErrNotFound):
			im.logger.WithFields(logrus.Fields{
				"file_path": path,
				"album":     tags.Album,
			}).Debug("No album with this name, importing as single")
		default:
			return err
		}
	}

	song, err := im.catalog.CreateSong(ctx, input)
	if err != nil {
		return err
	}

	// Release the handle before renaming.
	audio.Close()
	if err := os.Rename(path, path+ImportedSuffix); err != nil {
		im.logger.WithError(err).WithField("file_path", path).Warn("Imported file could not be marked")
	}

	im.logger.WithFields(logrus.Fields{
		"song_id":  song.ID,
		"artist":   song.Artist,
		"name":     song.Name,
		"album_id": song.AlbumID,
		"duration": song.Duration,
	}).Info("Imported song")

	return nil
}

// coverImage returns the embedded picture, or the configured default image.
func (im *Importer) coverImage(tags *metadata.Tags) (*catalog.Upload, func(), error) {
	if tags.Picture != nil {
		return &catalog.Upload{
			Filename: "cover" + tags.Picture.Ext,
			Size:     int64(len(tags.Picture.Data)),
			Body:     bytes.NewReader(tags.Picture.Data),
		}, func() {}, nil
	}

	if im.config.DefaultImage == "" {
		return nil, nil, ErrNoImage
	}

	f, err := os.Open(im.config.DefaultImage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open default image: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return &catalog.Upload{
		Filename: filepath.Base(im.config.DefaultImage),
		Size:     stat.Size(),
		Body:     f,
	}, func() { f.Close() }, nil
}

func (im *Importer) shouldImport(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	return im.tags.IsAudioFile(path)
}

// Start watches the folder for new files until ctx ends or Close is called.
func (im *Importer) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := addDirectories(watcher, im.config.Path); err != nil {
		watcher.Close()
		return err
	}

	ctx, im.cancel = context.WithCancel(ctx)
	im.watcher = watcher
	im.done = make(chan struct{})

	go im.watch(ctx)

	im.logger.WithField("import_path", im.config.Path).Info("Import watcher started")
	return nil
}

// addDirectories recursively walks and adds subdirectories to the watcher.
func addDirectories(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func (im *Importer) watch(ctx context.Context) {
	defer close(im.done)
	defer im.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-im.watcher.Events:
			if !ok {
				return
			}
			im.handleEvent(ctx, event)

		case err, ok := <-im.watcher.Errors:
			if !ok {
				return
			}
			im.logger.WithError(err).Error("Import watcher error")
		}
	}
}

func (im *Importer) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if err := addDirectories(im.watcher, event.Name); err != nil {
			im.logger.WithError(err).WithField("directory", event.Name).Warn("Failed to watch directory")
			return
		}
		im.logger.WithField("directory", event.Name).Info("Watching new directory")
		return
	}

	if !im.shouldImport(event.Name) {
		return
	}

	im.pending.Add(1)
	go func(path string) {
		defer im.pending.Done()

		// Give the writer time to finish the file.
		select {
		case <-time.After(im.settle):
		case <-ctx.Done():
			return
		}

		if err := im.ImportFile(ctx, path); err != nil {
			im.logger.WithError(err).WithField("file_path", path).Warn("Failed to import file")
		}
	}(event.Name)
}

// Close stops the watcher and waits for imports in flight.
func (im *Importer) Close() error {
	if im.cancel == nil {
		return nil
	}
	im.cancel()
	<-im.done
	im.pending.Wait()
	return nil
}
