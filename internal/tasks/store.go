package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/taskhub/internal/database/models"
	"gorm.io/gorm"
)

// Filter narrows a scoped query. Zero values match everything.
type Filter struct {
	Status   models.TaskStatus
	Priority models.TaskPriority
}

// Store persists tasks. Scoped queries apply the same rule as CanAccess.
type Store interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListInScope(ctx context.Context, actor Actor, filter Filter) ([]models.Task, error)
	EachInScope(ctx context.Context, actor Actor, filter Filter, fn func(models.Task) error) error
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Find(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding task %s: %w", id, err)
	}
	return &task, nil
}

func (s *GormStore) Create(ctx context.Context, task *models.Task) error {
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// Update writes the mutable columns only, so ownership can never change
// through an update.
func (s *GormStore) Update(ctx context.Context, task *models.Task) error {
	result := s.db.WithContext(ctx).
		Model(task).
		Select("title", "description", "status", "priority", "due_date", "updated_at").
		Updates(task)
	if result.Error != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return fmt.Errorf("deleting task %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListInScope(ctx context.Context, actor Actor, filter Filter) ([]models.Task, error) {
	var list []models.Task
	if err := s.scoped(ctx, actor, filter).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return list, nil
}

// EachInScope streams matching tasks, oldest first, without loading the
// whole result set.
func (s *GormStore) EachInScope(ctx context.Context, actor Actor, filter Filter, fn func(models.Task) error) error {
	q := s.scoped(ctx, actor, filter).Model(&models.Task{}).Order("created_at ASC")
	rows, err := q.Rows()
	if err != nil {
		return fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var task models.Task
		if err := s.db.ScanRows(rows, &task); err != nil {
			return fmt.Errorf("scanning task: %w", err)
		}
		if err := fn(task); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *GormStore) scoped(ctx context.Context, actor Actor, filter Filter) *gorm.DB {
	q := s.db.WithContext(ctx).
		Where("(user_id = ? OR company_id = ?)", actor.UserID, actor.CompanyID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	return q
}
