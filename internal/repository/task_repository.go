package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ngrabbs/schedule-manager/internal/model"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// TaskFilter narrows task listings. Zero fields are ignored.
type TaskFilter struct {
	Status   string
	Priority string
	From     *time.Time
	To       *time.Time
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
		}
		return nil, fmt.Errorf("find task %d: %w", taskID, err)
	}
	return &task, nil
}

// List returns tasks matching the filter, ordered by schedule time.
func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Model(&model.Task{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	if filter.From != nil {
		q = q.Where("scheduled_time >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("scheduled_time <= ?", *filter.To)
	}

	var tasks []model.Task
	if err := q.Order("scheduled_time ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListRecurring returns all recurring task templates.
func (r *TaskRepository) ListRecurring(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("is_recurring = ?", true).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}
	return tasks, nil
}

// Save persists modified fields of a loaded task.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task %d: %w", task.ID, err)
	}
	return nil
}

// Delete removes a task. Associated notifications go with it via the
// storage-level cascade.
func (r *TaskRepository) Delete(ctx context.Context, taskID uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, taskID)
	if res.Error != nil {
		return fmt.Errorf("delete task %d: %w", taskID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return nil
}
