package model

import "time"

// Playlist 用户歌单
type Playlist struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:255;not null"`
	OwnerID   string    `gorm:"size:36;not null;index"` // 创建者，创建后不可修改
	CreatedAt time.Time
}

// TableName 指定表名
func (Playlist) TableName() string {
	return "playlists"
}

// PlaylistSong 歌单-歌曲关联，ID 自增即为加入顺序
type PlaylistSong struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	PlaylistID int64 `gorm:"not null;uniqueIndex:uq_playlist_song"`
	SongID     int64 `gorm:"not null;uniqueIndex:uq_playlist_song;index"`
	CreatedAt  time.Time
}

// TableName 指定表名
func (PlaylistSong) TableName() string {
	return "playlist_songs"
}
