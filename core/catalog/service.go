// Package catalog owns genres and songs: browsing, search and ingestion of
// uploaded audio.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"TuneBox/core/apperr"
	"TuneBox/core/audio"
	"TuneBox/logger"
	"TuneBox/model"
	"TuneBox/repository"
	"TuneBox/storage"
)

// 分页参数
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// DefaultURLPrefix is the public path audio files are served under.
const DefaultURLPrefix = "/audio/mp3/"

// Service 曲库服务
type Service struct {
	genres    repository.GenreRepository
	songs     repository.SongRepository
	store     storage.AudioStore
	prober    audio.DurationProber
	urlPrefix string
}

func NewService(genres repository.GenreRepository, songs repository.SongRepository,
	store storage.AudioStore, prober audio.DurationProber) *Service {
	return &Service{
		genres:    genres,
		songs:     songs,
		store:     store,
		prober:    prober,
		urlPrefix: DefaultURLPrefix,
	}
}

// AddGenre returns the genre with that name, creating it if needed.
func (s *Service) AddGenre(ctx context.Context, name string) (*model.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: genre name is required", apperr.ErrValidation)
	}
	return s.genres.FirstOrCreate(ctx, name)
}

func (s *Service) GetGenreByName(ctx context.Context, name string) (*model.Genre, error) {
	return s.genres.GetByName(ctx, name)
}

func (s *Service) GetAllGenres(ctx context.Context) ([]model.Genre, error) {
	return s.genres.List(ctx)
}

// DeleteGenre removes the genre from every song, then deletes it.
func (s *Service) DeleteGenre(ctx context.Context, name string) error {
	deleted, err := s.genres.DeleteByName(ctx, name)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: genre %q", apperr.ErrNotFound, name)
	}
	logger.Info("[Catalog] 删除风格", logger.String("genre", name))
	return nil
}

// GetSongsByGenre returns an empty list for an unknown genre.
func (s *Service) GetSongsByGenre(ctx context.Context, name string) ([]model.SongView, error) {
	songs, err := s.songs.ListByGenre(ctx, name)
	if err != nil {
		return nil, err
	}
	return model.NewSongViews(songs), nil
}

// SearchSongs matches term against name or author, ignoring case.
func (s *Service) SearchSongs(ctx context.Context, term string) ([]model.SongView, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []model.SongView{}, nil
	}
	songs, err := s.songs.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	return model.NewSongViews(songs), nil
}

// NormalizePage clamps paging input: negative skip becomes 0, a non-positive
// count falls back to DefaultPageSize and count is capped at MaxPageSize.
func NormalizePage(skip, count int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if count <= 0 {
		count = DefaultPageSize
	}
	if count > MaxPageSize {
		count = MaxPageSize
	}
	return skip, count
}

// GetAllSongs pages through songs ordered by id.
func (s *Service) GetAllSongs(ctx context.Context, skip, count int) ([]model.SongView, error) {
	skip, count = NormalizePage(skip, count)
	songs, err := s.songs.List(ctx, skip, count)
	if err != nil {
		return nil, err
	}
	return model.NewSongViews(songs), nil
}

// GetSongByID returns nil when the song does not exist.
func (s *Service) GetSongByID(ctx context.Context, id int64) (*model.SongView, error) {
	song, err := s.songs.GetByID(ctx, id)
	if err != nil || song == nil {
		return nil, err
	}
	view := model.NewSongView(*song)
	return &view, nil
}

// DeleteSong removes the song and its memberships, then its audio file.
// It reports false when the song did not exist.
func (s *Service) DeleteSong(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.songs.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted == nil {
		return false, nil
	}
	logger.Info("[Catalog] 删除歌曲", logger.Int64("songId", id), logger.String("name", deleted.Name))
	s.removeBlob(ctx, deleted.FilePath)
	return true, nil
}

// removeBlob deletes a stored file; failures are only logged.
func (s *Service) removeBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Remove(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("[Catalog] 删除音频文件失败", logger.String("key", key), logger.ErrorField(err))
	}
}
