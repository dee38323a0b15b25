package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"TuneBox/core/apperr"
	"TuneBox/logger"
	"TuneBox/model"

	"github.com/google/uuid"
)

// AddSongInput is one uploaded song. Size is -1 when unknown.
type AddSongInput struct {
	Name    string
	Author  string
	Genres  []string
	Audio   io.Reader
	Size    int64
	BaseURL string // scheme://host of the request
}

// NormalizeGenres trims names, drops blanks and collapses duplicates,
// keeping first-seen order.
func NormalizeGenres(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// AddSong stores the audio, measures it and records the song. If anything
// after the store write fails the file is removed again.
func (s *Service) AddSong(ctx context.Context, in AddSongInput) (*model.SongView, error) {
	name := strings.TrimSpace(in.Name)
	author := strings.TrimSpace(in.Author)
	if name == "" || author == "" {
		return nil, fmt.Errorf("%w: name and author are required", apperr.ErrValidation)
	}
	if in.Audio == nil || in.Size == 0 {
		return nil, fmt.Errorf("%w: audio file is required", apperr.ErrValidation)
	}
	genres := NormalizeGenres(in.Genres)

	key := uuid.NewString() + ".mp3"
	if err := s.store.Save(ctx, key, in.Audio, in.Size); err != nil {
		logger.Error("[Ingest] 保存音频文件失败", logger.String("key", key), logger.ErrorField(err))
		return nil, fmt.Errorf("%w: failed to store audio: %v", apperr.ErrIngestion, err)
	}

	duration, err := s.probe(ctx, key)
	if err != nil {
		s.removeBlob(ctx, key)
		logger.Warn("[Ingest] 无法解析音频时长", logger.String("key", key), logger.ErrorField(err))
		return nil, fmt.Errorf("%w: unreadable audio: %v", apperr.ErrIngestion, err)
	}

	song := &model.Song{
		Name:      name,
		Author:    author,
		Duration:  duration,
		FilePath:  key,
		AudioURL:  strings.TrimRight(in.BaseURL, "/") + s.urlPrefix + key,
		CreatedAt: time.Now(),
	}
	if err := s.songs.CreateWithGenres(ctx, song, genres); err != nil {
		s.removeBlob(ctx, key)
		return nil, err
	}

	logger.Info("[Ingest] 歌曲入库成功",
		logger.Int64("songId", song.ID),
		logger.String("name", song.Name),
		logger.Strings("genres", genres),
		logger.Duration("duration", duration))
	view := model.NewSongView(*song)
	return &view, nil
}

func (s *Service) probe(ctx context.Context, key string) (time.Duration, error) {
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	d, err := s.prober.Probe(ctx, rc)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("zero duration")
	}
	return d, nil
}
