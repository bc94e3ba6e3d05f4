package services

import (
	"errors"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"
)

// Clock возвращает текущее время, подменяется в тестах.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// notFound переводит ErrNotFound репозитория в ответ 404.
func notFound(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewNotFound(message)
	}
	return err
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
