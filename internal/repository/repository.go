package repository

import (
	"github.com/prperemyshlev/slangdex/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User  UserRepository
	Token TokenRepository
	Word  WordRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Token: NewTokenRepository(db),
		Word:  NewWordRepository(db),
	}
}
