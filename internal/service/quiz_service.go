package service

import (
	"fmt"
	"strings"

	"github.com/prperemyshlev/slangdex/internal/domain"
)

// QuizService serves the bundled quiz catalog
type QuizService struct {
	quizzes []domain.Quiz
}

func NewQuizService(quizzes []domain.Quiz) *QuizService {
	return &QuizService{quizzes: quizzes}
}

// List returns the quizzes in category, or all of them for "" and "All"
func (s *QuizService) List(category string) []domain.Quiz {
	out := []domain.Quiz{}
	for _, q := range s.quizzes {
		if category == "" || strings.EqualFold(category, "all") || strings.EqualFold(q.Category, category) {
			out = append(out, q)
		}
	}
	return out
}

// Featured returns the quizzes flagged as featured
func (s *QuizService) Featured() []domain.Quiz {
	out := []domain.Quiz{}
	for _, q := range s.quizzes {
		if q.IsFeatured {
			out = append(out, q)
		}
	}
	return out
}

func (s *QuizService) Get(id string) (*domain.Quiz, error) {
	for _, q := range s.quizzes {
		if q.ID == id {
			return &q, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, id)
}
