package repository

import (
	"context"
	"fmt"

	"TuneBox/model"

	"gorm.io/gorm"
)

// PlaylistRepository 歌单数据访问接口
type PlaylistRepository interface {
	Create(ctx context.Context, playlist *model.Playlist) error
	GetByID(ctx context.Context, id int64) (*model.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Playlist, error)
	// Songs returns the member songs in the order they were added.
	Songs(ctx context.Context, playlistID int64) ([]model.Song, error)
	IsOwner(ctx context.Context, playlistID int64, userID string) (bool, error)
	Rename(ctx context.Context, id int64, name string) error
	// Delete removes the playlist and all of its memberships.
	Delete(ctx context.Context, id int64) (bool, error)
	// AddSong inserts a membership; adding an existing pair is a no-op.
	AddSong(ctx context.Context, playlistID, songID int64) error
	// RemoveSong deletes the earliest matching membership.
	RemoveSong(ctx context.Context, playlistID, songID int64) (bool, error)
}

type gormPlaylistRepository struct {
	db *gorm.DB
}

// NewGormPlaylistRepository 创建 GORM 歌单仓库
func NewGormPlaylistRepository(db *gorm.DB) PlaylistRepository {
	return &gormPlaylistRepository{db: db}
}

func (r *gormPlaylistRepository) Create(ctx context.Context, playlist *model.Playlist) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(playlist).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	return nil
}

func (r *gormPlaylistRepository) GetByID(ctx context.Context, id int64) (*model.Playlist, error) {
	var playlist model.Playlist
	err := r.db.WithContext(ctx).First(&playlist, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playlist %d: %w", id, err)
	}
	return &playlist, nil
}

func (r *gormPlaylistRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Playlist, error) {
	playlists := []model.Playlist{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&playlists).Error
	return playlists, err
}

func (r *gormPlaylistRepository) Songs(ctx context.Context, playlistID int64) ([]model.Song, error) {
	songs := []model.Song{}
	err := r.db.WithContext(ctx).
		Select("songs.*").
		Preload("Genres", orderGenres).
		Joins("JOIN playlist_songs ON playlist_songs.song_id = songs.id").
		Where("playlist_songs.playlist_id = ?", playlistID).
		Order("playlist_songs.id ASC").
		Find(&songs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load songs of playlist %d: %w", playlistID, err)
	}
	return songs, nil
}

func (r *gormPlaylistRepository) IsOwner(ctx context.Context, playlistID int64, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Playlist{}).
		Where("id = ? AND owner_id = ?", playlistID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormPlaylistRepository) Rename(ctx context.Context, id int64, name string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&model.Playlist{}).Where("id = ?", id).Update("name", name).Error
	})
	if err != nil {
		return fmt.Errorf("failed to rename playlist %d: %w", id, err)
	}
	return nil
}

func (r *gormPlaylistRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&model.PlaylistSong{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Playlist{}, id)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete playlist %d: %w", id, err)
	}
	return affected > 0, nil
}

func (r *gormPlaylistRepository) AddSong(ctx context.Context, playlistID, songID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.PlaylistSong{}).
			Where("playlist_id = ? AND song_id = ?", playlistID, songID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(&model.PlaylistSong{PlaylistID: playlistID, SongID: songID}).Error
	})
	// 并发插入同一对时由唯一索引兜底
	if err != nil && !isDuplicate(err) {
		return fmt.Errorf("failed to add song %d to playlist %d: %w", songID, playlistID, err)
	}
	return nil
}

func (r *gormPlaylistRepository) RemoveSong(ctx context.Context, playlistID, songID int64) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var membership model.PlaylistSong
		err := tx.Where("playlist_id = ? AND song_id = ?", playlistID, songID).
			Order("id ASC").
			First(&membership).Error
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		if err := tx.Delete(&membership).Error; err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove song %d from playlist %d: %w", songID, playlistID, err)
	}
	return removed, nil
}
