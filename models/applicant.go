package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Роли пользователей портала
const (
	RoleApplicant = "applicant" // Заявитель
	RoleStaff     = "staff"     // Сотрудник
)

// Applicant представляет пользователя портала: заявителя или сотрудника
type Applicant struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	FirstName string    `gorm:"column:first_name;not null;size:50"`
	LastName  string    `gorm:"column:last_name;not null;size:50"`
	Email     string    `gorm:"column:email;unique;not null;size:100;index"`
	Password  string    `gorm:"column:password;not null;size:100"`
	Role      string    `gorm:"column:role;not null;size:20;default:'applicant'"`
	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (Applicant) TableName() string {
	return "users"
}

// BeforeCreate хук для валидации перед созданием
func (a *Applicant) BeforeCreate(tx *gorm.DB) error {
	if len(a.FirstName) < 2 || len(a.FirstName) > 50 {
		return errors.New("first name must be between 2 and 50 characters")
	}
	if len(a.LastName) < 2 || len(a.LastName) > 50 {
		return errors.New("last name must be between 2 and 50 characters")
	}
	if len(a.Email) < 3 || len(a.Email) > 100 {
		return errors.New("email must be between 3 and 100 characters")
	}
	if a.Role != RoleApplicant && a.Role != RoleStaff {
		return errors.New("unknown role")
	}
	return nil
}
