// Package testutil contains shared testing helpers.
package testutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"TuneBox/config"
	"TuneBox/db"

	"gorm.io/gorm"
)

// OpenDB returns a migrated SQLite database living in the test's temp dir.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.Config{
		DBDriver: config.DriverSQLite,
		DBPath:   filepath.Join(t.TempDir(), "tunebox.db"),
	}
	gdb, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

// MP3 frame header: MPEG-1 Layer III, 128 kbit/s, 44.1 kHz, no CRC, no padding.
var mp3FrameHeader = []byte{0xFF, 0xFB, 0x90, 0x00}

// MP3FrameSize is the byte length of the frame produced by MP3Frames.
const MP3FrameSize = 417

// MP3Frames builds n silent MPEG-1 Layer III frames. Each lasts 1152/44100 s.
func MP3Frames(n int) []byte {
	frame := make([]byte, MP3FrameSize)
	copy(frame, mp3FrameHeader)
	return bytes.Repeat(frame, n)
}
