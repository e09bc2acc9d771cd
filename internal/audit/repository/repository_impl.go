package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/fieldbook/internal/audit/domain"
	"github.com/smallbiznis/fieldbook/pkg/db/option"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert appends entry. Audit rows are never updated.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// Find returns one page of entries plus one lookahead row, newest first.
func (r *repo) Find(ctx context.Context, db *gorm.DB, filter domain.Filter, page pagination.Pagination) ([]*domain.AuditLog, error) {
	stmt := option.Apply(db.WithContext(ctx).Model(&domain.AuditLog{}),
		option.WithEqual("action", strings.TrimSpace(filter.Action)),
		option.WithEqual("target_type", strings.TrimSpace(filter.TargetType)),
		option.WithEqual("target_id", strings.TrimSpace(filter.TargetID)),
		option.WithEqual("actor_type", strings.TrimSpace(filter.ActorType)),
		option.WithCreatedBetween(filter.Since, filter.Until),
		option.ApplyPagination(page),
		option.NewestFirst(),
	)

	var entries []*domain.AuditLog
	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
