package service

import (
	"context"

	"github.com/bluecatalog/directory-api/internal/dto"
	"github.com/bluecatalog/directory-api/internal/entity"
	"github.com/bluecatalog/directory-api/internal/repository"
)

// RecordsService exposes read operations for the directory.
type RecordsService struct {
	repo repository.RecordRepository
}

// NewRecordsService creates a new instance of RecordsService.
func NewRecordsService(repo repository.RecordRepository) *RecordsService {
	return &RecordsService{repo: repo}
}

// ListRecords returns records respecting pagination defaults.
func (s *RecordsService) ListRecords(ctx context.Context, filter dto.ListFilter) ([]entity.CompanyRecord, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}
	return s.repo.ListPage(ctx, filter)
}
