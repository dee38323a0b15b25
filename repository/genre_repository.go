package repository

import (
	"context"
	"fmt"

	"TuneBox/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GenreRepository 风格数据访问接口
type GenreRepository interface {
	FirstOrCreate(ctx context.Context, name string) (*model.Genre, error)
	GetByName(ctx context.Context, name string) (*model.Genre, error)
	List(ctx context.Context) ([]model.Genre, error)
	// DeleteByName unlinks the genre from every song, then removes it.
	// Returns false when no genre has that name.
	DeleteByName(ctx context.Context, name string) (bool, error)
}

type gormGenreRepository struct {
	db *gorm.DB
}

// NewGormGenreRepository 创建 GORM 风格仓库
func NewGormGenreRepository(db *gorm.DB) GenreRepository {
	return &gormGenreRepository{db: db}
}

// firstOrCreateGenre looks a genre up by exact name and inserts it when missing.
// The insert ignores a unique conflict, so a concurrent insert of the same
// name never aborts the surrounding transaction; the row is then re-read.
func firstOrCreateGenre(tx *gorm.DB, name string) (*model.Genre, error) {
	genre, err := findGenre(tx, name)
	if err == nil && genre == nil {
		if err = insertGenreIfAbsent(tx, name); err == nil {
			genre, err = findGenre(tx, name)
		}
		if err == nil && genre == nil {
			err = gorm.ErrRecordNotFound
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get or create genre %q: %w", name, err)
	}
	return genre, nil
}

func findGenre(tx *gorm.DB, name string) (*model.Genre, error) {
	var genre model.Genre
	err := tx.Where("name = ?", name).Limit(1).Find(&genre).Error
	if err != nil {
		return nil, err
	}
	if genre.ID == 0 {
		return nil, nil
	}
	return &genre, nil
}

func insertGenreIfAbsent(tx *gorm.DB, name string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&model.Genre{Name: name}).Error
}

func (r *gormGenreRepository) FirstOrCreate(ctx context.Context, name string) (*model.Genre, error) {
	var genre *model.Genre
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		genre, err = firstOrCreateGenre(tx, name)
		return err
	})
	return genre, err
}

func (r *gormGenreRepository) GetByName(ctx context.Context, name string) (*model.Genre, error) {
	var genre model.Genre
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&genre).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get genre %q: %w", name, err)
	}
	return &genre, nil
}

func (r *gormGenreRepository) List(ctx context.Context) ([]model.Genre, error) {
	genres := []model.Genre{}
	err := r.db.WithContext(ctx).Order("id ASC").Find(&genres).Error
	return genres, err
}

func (r *gormGenreRepository) DeleteByName(ctx context.Context, name string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var genre model.Genre
		if err := tx.Where("name = ?", name).First(&genre).Error; err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		if err := tx.Exec("DELETE FROM "+model.SongGenreTable+" WHERE genre_id = ?", genre.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&genre).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete genre %q: %w", name, err)
	}
	return deleted, nil
}
