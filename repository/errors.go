package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrDuplicateUser 用户名或邮箱已存在
var ErrDuplicateUser = errors.New("user with this name or email already exists")

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern builds a lower-case LIKE pattern matching term anywhere; '!' is the escape char.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
