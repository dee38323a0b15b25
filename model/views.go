package model

import (
	"fmt"
	"time"
)

// SongView is the public shape of a Song. The storage path is never part of it.
type SongView struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Author          string    `json:"author"`
	Duration        string    `json:"duration"` // hh:mm:ss
	DurationSeconds float64   `json:"durationSeconds"`
	Genres          []string  `json:"genres"`
	CreatedAt       time.Time `json:"createdAt"`
	AudioURL        string    `json:"audioUrl"`
}

// PlaylistView is the public shape of a Playlist with its songs in membership order.
type PlaylistView struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	OwnerID   string     `json:"ownerId"`
	CreatedAt time.Time  `json:"createdAt"`
	Songs     []SongView `json:"songs"`
}

// CreatePlaylistResult 创建歌单的响应
type CreatePlaylistResult struct {
	OwnerID  string       `json:"ownerId"`
	Playlist PlaylistView `json:"playlist"`
}

// FormatDuration renders d as hh:mm:ss, truncating sub-second parts.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// NewSongView projects a Song.
func NewSongView(s Song) SongView {
	return SongView{
		ID:              s.ID,
		Name:            s.Name,
		Author:          s.Author,
		Duration:        FormatDuration(s.Duration),
		DurationSeconds: s.Duration.Seconds(),
		Genres:          s.GenreNames(),
		CreatedAt:       s.CreatedAt,
		AudioURL:        s.AudioURL,
	}
}

// NewSongViews projects a slice of songs, never returning nil.
func NewSongViews(songs []Song) []SongView {
	views := make([]SongView, 0, len(songs))
	for _, s := range songs {
		views = append(views, NewSongView(s))
	}
	return views
}

// NewPlaylistView projects a playlist and its member songs, already in membership order.
func NewPlaylistView(p Playlist, songs []Song) PlaylistView {
	return PlaylistView{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt,
		Songs:     NewSongViews(songs),
	}
}
