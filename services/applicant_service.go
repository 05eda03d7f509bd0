package services

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"loanPortal/config"
	"loanPortal/models"
)

// ApplicantService предоставляет методы для работы с пользователями портала
type ApplicantService struct {
	db      *gorm.DB
	catalog *config.LevelCatalog
}

// ApplicantDTO представляет публичные данные пользователя
type ApplicantDTO struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// CreateApplicantRequest представляет данные регистрации заявителя
type CreateApplicantRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

// NewApplicantService создает новый экземпляр ApplicantService
func NewApplicantService(db *gorm.DB, catalog *config.LevelCatalog) *ApplicantService {
	return &ApplicantService{db: db, catalog: catalog}
}

// RegisterApplicant создает нового заявителя вместе с его кредитной записью.
// Документ заявки создается сразу при регистрации: статус pending, уровень
// transfer, график платежей отсутствует.
func (s *ApplicantService) RegisterApplicant(req CreateApplicantRequest) (*models.Applicant, error) {
	// Проверяем, существует ли пользователь с таким email
	var existing models.Applicant
	if err := s.db.Where("LOWER(email) = LOWER(?)", req.Email).First(&existing).Error; err == nil {
		return nil, errors.New("пользователь с таким email уже существует")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Хешируем пароль
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	applicant := &models.Applicant{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  string(hashedPassword),
		Role:      models.RoleApplicant,
	}

	// Начальное сообщение заявителю берется из каталога уровней
	entry, err := s.catalog.Resolve(models.LoanLevelTransfer)
	if err != nil {
		return nil, err
	}

	// Пользователь и его заявка создаются в одной транзакции
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, errors.New("ошибка при начале транзакции")
	}

	if err := tx.Create(applicant).Error; err != nil {
		tx.Rollback()
		return nil, errors.New("ошибка при создании пользователя")
	}

	loan := &models.LoanApplication{
		ApplicantID:   applicant.ID,
		Status:        models.LoanStatusPending,
		Level:         models.LoanLevelTransfer,
		CustomMessage: entry.MessageTemplate,
		Fees:          models.FeeMap{},
		PersonalInfo:  models.AttributeMap{},
		BankInfo:      models.AttributeMap{},
	}

	if err := tx.Create(loan).Error; err != nil {
		tx.Rollback()
		return nil, errors.New("ошибка при создании заявки")
	}

	if err := tx.Commit().Error; err != nil {
		return nil, errors.New("ошибка при подтверждении транзакции")
	}

	return applicant, nil
}

// FindByEmail ищет пользователя по email
func (s *ApplicantService) FindByEmail(email string) (*models.Applicant, error) {
	var applicant models.Applicant
	if err := s.db.Where("LOWER(email) = LOWER(?)", email).First(&applicant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("пользователь не найден")
		}
		return nil, err
	}
	return &applicant, nil
}

// FindByID ищет пользователя по ID
func (s *ApplicantService) FindByID(id uint) (*models.Applicant, error) {
	var applicant models.Applicant
	if err := s.db.First(&applicant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("пользователь не найден")
		}
		return nil, err
	}
	return &applicant, nil
}

// ToApplicantDTO конвертирует модель в публичное DTO
func ToApplicantDTO(applicant *models.Applicant) ApplicantDTO {
	return ApplicantDTO{
		ID:        applicant.ID,
		FirstName: applicant.FirstName,
		LastName:  applicant.LastName,
		Email:     applicant.Email,
		Role:      applicant.Role,
	}
}
