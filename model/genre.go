package model

// Genre 歌曲风格标签，Name 是自然键
type Genre struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"size:100;uniqueIndex;not null"`
}

// TableName 指定表名
func (Genre) TableName() string {
	return "genres"
}
