package service

import (
	"context"
	"fmt"

	"nanum/internal/model"
	"nanum/internal/policy"
	"nanum/internal/repository"
)

// AccessReport is the read and write decision for one board category.
type AccessReport struct {
	Slug  string          `json:"slug"`
	Read  policy.Decision `json:"read"`
	Write policy.Decision `json:"write"`
}

// BoardService exposes board categories and their access decisions.
type BoardService interface {
	ListCategories(ctx context.Context) ([]model.BoardCategory, error)
	CheckAccess(ctx context.Context, slug string, user *model.User) (*AccessReport, error)
}

type boardService struct {
	categories repository.CategoryRepository
}

// NewBoardService creates a new board service.
func NewBoardService(categories repository.CategoryRepository) BoardService {
	return &boardService{categories: categories}
}

func (s *boardService) ListCategories(ctx context.Context) ([]model.BoardCategory, error) {
	list, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return list, nil
}

func (s *boardService) CheckAccess(ctx context.Context, slug string, user *model.User) (*AccessReport, error) {
	cat, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &AccessReport{
		Slug:  cat.Slug,
		Read:  policy.CanAccess(user, policy.ForRead(cat)),
		Write: policy.CanAccess(user, policy.ForWrite(cat)),
	}, nil
}
