package cats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrCatNotFound = errors.New("cat not found")
	ErrInvalidCat  = errors.New("invalid cat")
)

type CatService struct {
	db *gorm.DB
}

func NewCatService(db *gorm.DB) *CatService {
	return &CatService{db: db}
}

// List returns every cat, oldest first.
func (s *CatService) List(ctx context.Context) ([]Cat, error) {
	var list []Cat
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list cats: %w", err)
	}
	return list, nil
}

func (s *CatService) Create(ctx context.Context, req CreateCatRequest) (*Cat, error) {
	name := strings.TrimSpace(req.Name)
	breed := strings.TrimSpace(req.Breed)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCat)
	case breed == "":
		return nil, fmt.Errorf("%w: breed is required", ErrInvalidCat)
	case req.Age < 0 || req.Age > 40:
		return nil, fmt.Errorf("%w: age must be between 0 and 40", ErrInvalidCat)
	}

	cat := &Cat{ID: uuid.New(), Name: name, Age: req.Age, Breed: breed}
	if err := s.db.WithContext(ctx).Create(cat).Error; err != nil {
		return nil, fmt.Errorf("failed to create cat: %w", err)
	}
	return cat, nil
}

func (s *CatService) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Cat{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete cat: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCatNotFound
	}
	return nil
}
