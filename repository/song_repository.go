package repository

import (
	"context"
	"fmt"

	"TuneBox/model"

	"gorm.io/gorm"
)

// SongRepository 歌曲数据访问接口，返回的歌曲都已预加载 Genres
type SongRepository interface {
	// CreateWithGenres looks up or creates each genre and inserts the song
	// with its genre links in one transaction.
	CreateWithGenres(ctx context.Context, song *model.Song, genreNames []string) error
	GetByID(ctx context.Context, id int64) (*model.Song, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, offset, limit int) ([]model.Song, error)
	Search(ctx context.Context, term string) ([]model.Song, error)
	ListByGenre(ctx context.Context, genreName string) ([]model.Song, error)
	// Delete removes the song with its genre links and playlist memberships
	// and returns the removed row, or nil when it did not exist.
	Delete(ctx context.Context, id int64) (*model.Song, error)
	Count(ctx context.Context) (int64, error)
}

type gormSongRepository struct {
	db *gorm.DB
}

// NewGormSongRepository 创建 GORM 歌曲仓库
func NewGormSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

func orderGenres(db *gorm.DB) *gorm.DB {
	return db.Order("genres.id ASC")
}

func (r *gormSongRepository) CreateWithGenres(ctx context.Context, song *model.Song, genreNames []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genres := make([]model.Genre, 0, len(genreNames))
		for _, name := range genreNames {
			genre, err := firstOrCreateGenre(tx, name)
			if err != nil {
				return err
			}
			genres = append(genres, *genre)
		}
		song.Genres = genres
		// genres already exist, only the join rows need inserting
		return tx.Omit("Genres.*").Create(song).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create song: %w", err)
	}
	return nil
}

func (r *gormSongRepository) GetByID(ctx context.Context, id int64) (*model.Song, error) {
	var song model.Song
	err := r.db.WithContext(ctx).Preload("Genres", orderGenres).First(&song, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get song %d: %w", id, err)
	}
	return &song, nil
}

func (r *gormSongRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Song{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List 分页获取歌曲，按 id 升序保证翻页稳定
func (r *gormSongRepository) List(ctx context.Context, offset, limit int) ([]model.Song, error) {
	songs := []model.Song{}
	err := r.db.WithContext(ctx).
		Preload("Genres", orderGenres).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&songs).Error
	return songs, err
}

// Search 按歌名或作者做大小写不敏感的子串匹配
func (r *gormSongRepository) Search(ctx context.Context, term string) ([]model.Song, error) {
	pattern := containsPattern(term)
	songs := []model.Song{}
	err := r.db.WithContext(ctx).
		Preload("Genres", orderGenres).
		Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(author) LIKE ? ESCAPE '!'", pattern, pattern).
		Order("id ASC").
		Find(&songs).Error
	return songs, err
}

func (r *gormSongRepository) ListByGenre(ctx context.Context, genreName string) ([]model.Song, error) {
	songs := []model.Song{}
	err := r.db.WithContext(ctx).
		Select("songs.*").
		Preload("Genres", orderGenres).
		Joins("JOIN "+model.SongGenreTable+" ON "+model.SongGenreTable+".song_id = songs.id").
		Joins("JOIN genres ON genres.id = "+model.SongGenreTable+".genre_id").
		Where("genres.name = ?", genreName).
		Order("songs.id ASC").
		Find(&songs).Error
	return songs, err
}

func (r *gormSongRepository) Delete(ctx context.Context, id int64) (*model.Song, error) {
	var deleted *model.Song
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var song model.Song
		if err := tx.First(&song, id).Error; err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		if err := tx.Where("song_id = ?", id).Delete(&model.PlaylistSong{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+model.SongGenreTable+" WHERE song_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&song).Error; err != nil {
			return err
		}
		deleted = &song
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete song %d: %w", id, err)
	}
	return deleted, nil
}

func (r *gormSongRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Song{}).Count(&count).Error
	return count, err
}
