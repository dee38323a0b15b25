package model

import "time"

// SongGenreTable is the join table between songs and genres.
const SongGenreTable = "song_genres"

// Song represents an uploaded audio track in the catalog.
type Song struct {
	ID        int64         `gorm:"primaryKey;autoIncrement"`
	Name      string        `gorm:"size:255;not null;index"`
	Author    string        `gorm:"size:255;not null;index"`
	Duration  time.Duration `gorm:"not null"` // stored as nanoseconds
	Genres    []Genre       `gorm:"many2many:song_genres;"`
	FilePath  string        `gorm:"size:512;not null"` // storage key, internal only
	AudioURL  string        `gorm:"size:1024;not null"`
	CreatedAt time.Time
}

// TableName 指定表名
func (Song) TableName() string {
	return "songs"
}

// GenreNames flattens the genre association into names.
func (s *Song) GenreNames() []string {
	names := make([]string, 0, len(s.Genres))
	for _, g := range s.Genres {
		names = append(names, g.Name)
	}
	return names
}
