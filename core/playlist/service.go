// Package playlist manages user playlists and their song memberships.
// Every mutation is gated on IsOwner.
package playlist

import (
	"context"
	"fmt"
	"strings"

	"TuneBox/core/apperr"
	"TuneBox/logger"
	"TuneBox/model"
	"TuneBox/repository"
)

// Service 歌单服务
type Service struct {
	playlists repository.PlaylistRepository
	songs     repository.SongRepository
}

func NewService(playlists repository.PlaylistRepository, songs repository.SongRepository) *Service {
	return &Service{playlists: playlists, songs: songs}
}

// CreatePlaylist creates an empty playlist owned by ownerID.
func (s *Service) CreatePlaylist(ctx context.Context, name, ownerID string) (*model.CreatePlaylistResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", apperr.ErrValidation)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: missing owner", apperr.ErrAuth)
	}

	p := &model.Playlist{Name: name, OwnerID: ownerID}
	if err := s.playlists.Create(ctx, p); err != nil {
		return nil, err
	}
	logger.Info("[Playlist] 创建歌单", logger.Int64("playlistId", p.ID), logger.String("ownerId", ownerID))
	return &model.CreatePlaylistResult{
		OwnerID:  ownerID,
		Playlist: model.NewPlaylistView(*p, nil),
	}, nil
}

// GetPlaylistByID returns nil when the playlist does not exist.
func (s *Service) GetPlaylistByID(ctx context.Context, id int64) (*model.PlaylistView, error) {
	p, err := s.playlists.GetByID(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	return s.view(ctx, p)
}

// GetUserPlaylists lists the playlists owned by userID, oldest first.
func (s *Service) GetUserPlaylists(ctx context.Context, userID string) ([]model.PlaylistView, error) {
	playlists, err := s.playlists.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]model.PlaylistView, 0, len(playlists))
	for i := range playlists {
		v, err := s.view(ctx, &playlists[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

// IsOwner reports whether userID owns the playlist; false when it does not exist.
func (s *Service) IsOwner(ctx context.Context, playlistID int64, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.playlists.IsOwner(ctx, playlistID, userID)
}

// RenamePlaylist changes the name; a blank name leaves it as is.
func (s *Service) RenamePlaylist(ctx context.Context, id int64, newName, callerID string) (*model.PlaylistView, error) {
	p, err := s.authorize(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(newName); name != "" && name != p.Name {
		if err := s.playlists.Rename(ctx, id, name); err != nil {
			return nil, err
		}
		p.Name = name
	}
	return s.view(ctx, p)
}

func (s *Service) DeletePlaylist(ctx context.Context, id int64, callerID string) error {
	if _, err := s.authorize(ctx, id, callerID); err != nil {
		return err
	}
	deleted, err := s.playlists.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: playlist %d", apperr.ErrNotFound, id)
	}
	logger.Info("[Playlist] 删除歌单", logger.Int64("playlistId", id))
	return nil
}

// AddSongToPlaylist adds songID; adding a song already present is a no-op.
func (s *Service) AddSongToPlaylist(ctx context.Context, id, songID int64, callerID string) error {
	if _, err := s.authorize(ctx, id, callerID); err != nil {
		return err
	}
	exists, err := s.songs.Exists(ctx, songID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: song %d", apperr.ErrNotFound, songID)
	}
	return s.playlists.AddSong(ctx, id, songID)
}

func (s *Service) RemoveSongFromPlaylist(ctx context.Context, id, songID int64, callerID string) error {
	if _, err := s.authorize(ctx, id, callerID); err != nil {
		return err
	}
	removed, err := s.playlists.RemoveSong(ctx, id, songID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: song %d is not in playlist %d", apperr.ErrNotFound, songID, id)
	}
	return nil
}

// authorize loads the playlist and checks that callerID owns it.
func (s *Service) authorize(ctx context.Context, id int64, callerID string) (*model.Playlist, error) {
	p, err := s.playlists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: playlist %d", apperr.ErrNotFound, id)
	}
	owner, err := s.IsOwner(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if !owner {
		logger.Warn("[Playlist] 非所有者尝试修改歌单",
			logger.Int64("playlistId", id), logger.String("callerId", callerID))
		return nil, fmt.Errorf("%w: playlist %d belongs to another user", apperr.ErrForbidden, id)
	}
	return p, nil
}

func (s *Service) view(ctx context.Context, p *model.Playlist) (*model.PlaylistView, error) {
	songs, err := s.playlists.Songs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	v := model.NewPlaylistView(*p, songs)
	return &v, nil
}
