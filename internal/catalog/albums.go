package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// MaxAlbumDescription bounds Album.Description in characters.
const MaxAlbumDescription = 500

// AlbumInput is the data accepted when creating an album.
type AlbumInput struct {
	Name            string
	Description     string
	BackgroundColor string
	CategoryName    string
	Image           *Upload
}

func (in *AlbumInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.CategoryName = strings.TrimSpace(in.CategoryName)
	in.BackgroundColor = strings.TrimSpace(in.BackgroundColor)

	if in.Name == "" {
		return invalid("name", "Album name is required")
	}
	if in.CategoryName == "" {
		return invalid("categoryName", "Category name is required")
	}
	if utf8.RuneCountInString(in.Description) > MaxAlbumDescription {
		return invalid("description", fmt.Sprintf("Description cannot exceed %d characters", MaxAlbumDescription))
	}
	if in.BackgroundColor == "" {
		in.BackgroundColor = models.DefaultAlbumColor
	} else if !models.IsHexColor(in.BackgroundColor) {
		return invalid("backgroundColor", "Background color must be a hex color like #1db954")
	}
	return nil
}

// CreateAlbum validates the input, resolves or creates its category and
// stores the album. The returned album is populated with its category.
func (s *Service) CreateAlbum(ctx context.Context, in AlbumInput) (*models.Album, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, in.CategoryName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}

	album := &models.Album{
		Name:            in.Name,
		Description:     in.Description,
		BackgroundColor: in.BackgroundColor,
		CategoryID:      category.ID,
	}

	if in.Image != nil {
		album.Image, err = s.saveUpload(MediaImage, "image", in.Image)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateAlbum(ctx, album); err != nil {
		return nil, fmt.Errorf("failed to create album: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"album_id": album.ID,
		"name":     album.Name,
		"category": category.Name,
	}).Info("Album created")

	return s.GetAlbum(ctx, album.ID)
}

// GetAlbum returns an album populated with its category and songs.
func (s *Service) GetAlbum(ctx context.Context, id string) (*models.Album, error) {
	if !s.store.ValidID(id) {
		return nil, invalidID("id", "Invalid album ID format")
	}

	album, err := s.store.GetAlbum(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "Album not found")
	}

	if err := s.populateAlbum(ctx, album); err != nil {
		return nil, err
	}
	return album, nil
}

// ListAlbums returns every album populated with its category and songs.
func (s *Service) ListAlbums(ctx context.Context) ([]models.Album, error) {
	albums, err := s.store.ListAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	if len(albums) == 0 {
		return []models.Album{}, nil
	}

	songs, err := s.store.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	byAlbum := make(map[string][]models.Song)
	for _, song := range songs {
		if song.AlbumID != "" {
			byAlbum[song.AlbumID] = append(byAlbum[song.AlbumID], song)
		}
	}

	categories, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}

	for i := range albums {
		a := &albums[i]
		a.Visual = models.ResolveAlbumVisual(a.Image, a.BackgroundColor)
		a.Songs = nonNilSongs(byAlbum[a.ID])
		if c, ok := categories[a.CategoryID]; ok {
			a.Category = &c
		}
	}
	return albums, nil
}

// RecomputeAlbum rebuilds the aggregates of one album and returns it.
func (s *Service) RecomputeAlbum(ctx context.Context, id string) (*models.Album, error) {
	if !s.store.ValidID(id) {
		return nil, invalidID("id", "Invalid album ID format")
	}
	if _, err := s.store.RecomputeAlbumAggregates(ctx, id); err != nil {
		return nil, asNotFound(err, "Album not found")
	}
	return s.GetAlbum(ctx, id)
}

// FindAlbumByName returns the first album with the given name.
func (s *Service) FindAlbumByName(ctx context.Context, name string) (*models.Album, error) {
	album, err := s.store.FindAlbumByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, asNotFound(err, "Album not found")
	}
	return album, nil
}

func (s *Service) populateAlbum(ctx context.Context, album *models.Album) error {
	album.Visual = models.ResolveAlbumVisual(album.Image, album.BackgroundColor)

	if album.CategoryID != "" {
		category, err := s.store.GetCategory(ctx, album.CategoryID)
		switch {
		case err == nil:
			album.Category = category
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("failed to load album category: %w", err)
		}
	}

	songs, err := s.store.ListSongsByAlbum(ctx, album.ID)
	if err != nil {
		return fmt.Errorf("failed to load album songs: %w", err)
	}
	album.Songs = nonNilSongs(songs)
	return nil
}

func nonNilSongs(songs []models.Song) []models.Song {
	if songs == nil {
		return []models.Song{}
	}
	return songs
}
