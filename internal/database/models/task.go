package models

import "github.com/google/uuid"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every accepted status in display order
var TaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

var TaskPriorities = []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh}

func (p TaskPriority) Valid() bool {
	for _, v := range TaskPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// MaxTitleLength is the column size of Task.Title
const MaxTitleLength = 255

type Task struct {
	Base
	// Owners are set once at creation and never updated
	CompanyID uuid.UUID `gorm:"type:uuid;index;not null" json:"company_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	Title       string       `gorm:"size:255;not null" json:"title"`
	Description *string      `gorm:"type:text" json:"description"`
	Status      TaskStatus   `gorm:"size:20;not null;index;default:'pending'" json:"status"`
	Priority    TaskPriority `gorm:"size:20;not null;index;default:'medium'" json:"priority"`
	DueDate     *Date        `gorm:"type:date;index" json:"due_date"`

	// Relationships
	Company *Company `gorm:"foreignKey:CompanyID" json:"-"`
	User    *User    `gorm:"foreignKey:UserID" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}
