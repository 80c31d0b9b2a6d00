package service

import (
	"context"
	"fmt"

	"time-tracker/internal/model"
	"time-tracker/internal/repository"
)

// TaskService wraps task-related read helpers.
type TaskService struct {
	taskRepo *repository.TaskRepository
}

func NewTaskService(taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

// DistinctByTitle returns the user's tasks with duplicate titles collapsed to
// the oldest task. It feeds the task picker only.
func (s *TaskService) DistinctByTitle(ctx context.Context, userID uint) ([]model.Task, error) {
	tasks, err := s.taskRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	seen := make(map[string]struct{}, len(tasks))
	unique := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if _, ok := seen[task.Title]; ok {
			continue
		}
		seen[task.Title] = struct{}{}
		unique = append(unique, task)
	}
	return unique, nil
}
