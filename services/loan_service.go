package services

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"loanPortal/config"
	"loanPortal/models"
	"loanPortal/utils"
)

// WarningScheduleSkipped — мягкое предупреждение: статус обновлен, но график
// платежей не рассчитан из-за некорректного срока в записи
const WarningScheduleSkipped = "schedule_skipped"

// LoanRepository описывает операции хранилища, нужные сервису заявок.
// Хранилище всегда работает с одной записью по идентификатору.
type LoanRepository interface {
	FindLoanByID(id uint) (*models.LoanApplication, error)
	FindLoanByApplicantID(applicantID uint) (*models.LoanApplication, error)
	FindAllLoans() ([]models.LoanApplication, error)
	SaveLoan(loan *models.LoanApplication) error
}

// UpdateLoanDTO представляет частичное обновление заявки. Все поля
// необязательны: присутствующее поле перезаписывает значение в записи,
// отсутствующее не трогается.
type UpdateLoanDTO struct {
	Amount             *int64                 `json:"amount" validate:"omitempty,gt=0"`
	DurationMonths     *int                   `json:"duration_months" validate:"omitempty,gt=0"`
	MonthlyInstallment *int64                 `json:"monthly_installment" validate:"omitempty,gt=0"`
	Status             *string                `json:"status"`
	Level              *string                `json:"level"`
	AssignedTo         *string                `json:"assigned_to"`
	PayoutNumber       *string                `json:"payout_number"`
	Fees               map[string]float64     `json:"fees"`
	CustomMessage      *string                `json:"custom_message"`
	PersonalInfo       map[string]interface{} `json:"personal_info"`
	BankInfo           map[string]interface{} `json:"bank_info"`
}

// LoanResponseDTO представляет проекцию заявки, возвращаемую вызывающей стороне
type LoanResponseDTO struct {
	ID                  uint                   `json:"id"`
	ApplicantID         uint                   `json:"applicant_id"`
	Amount              int64                  `json:"amount"`
	DurationMonths      int                    `json:"duration_months"`
	MonthlyInstallment  int64                  `json:"monthly_installment"`
	Status              string                 `json:"status"`
	Level               string                 `json:"level"`
	Fees                map[string]float64     `json:"fees"`
	CustomMessage       string                 `json:"custom_message"`
	AssignedTo          string                 `json:"assigned_to"`
	PayoutNumber        string                 `json:"payout_number"`
	ApplicationDate     *time.Time             `json:"application_date,omitempty"`
	StatusUpdatedAt     *time.Time             `json:"status_updated_at,omitempty"`
	MonthlyPaymentDates []time.Time            `json:"monthly_payment_dates,omitempty"`
	LoanEndDate         *time.Time             `json:"loan_end_date,omitempty"`
	PersonalInfo        map[string]interface{} `json:"personal_info,omitempty"`
	BankInfo            map[string]interface{} `json:"bank_info,omitempty"`
	Warnings            []string               `json:"warnings,omitempty"`
}

// LoanService предоставляет методы для работы с заявками на кредит.
// Это единственная точка изменения записи заявки: один вызов — одна запись
// в хранилище.
type LoanService struct {
	repo      LoanRepository
	validator *validator.Validate
	catalog   *config.LevelCatalog
	statuses  *StatusService
	schedules *ScheduleService
	email     *EmailService
	now       func() time.Time
}

// NewLoanService создает новый экземпляр LoanService
func NewLoanService(repo LoanRepository, catalog *config.LevelCatalog, statuses *StatusService, email *EmailService) *LoanService {
	return &LoanService{
		repo:      repo,
		validator: validator.New(),
		catalog:   catalog,
		statuses:  statuses,
		schedules: NewScheduleService(),
		email:     email,
		now:       time.Now,
	}
}

// ApplyUpdate применяет частичное обновление к заявке и возвращает
// обновленную проекцию. Структурные ошибки (заявка не найдена, недопустимый
// статус, неизвестный уровень, отрицательный сбор) прерывают обновление до
// записи; некорректный срок при расчете графика деградирует до
// предупреждения, чтобы не блокировать остальные изменения.
func (s *LoanService) ApplyUpdate(loanID uint, dto UpdateLoanDTO) (*LoanResponseDTO, error) {
	// Валидируем DTO
	if err := s.validateUpdate(dto); err != nil {
		return nil, err
	}

	// Загружаем текущую запись
	loan, err := s.repo.FindLoanByID(loanID)
	if err != nil {
		return nil, err
	}

	var warnings []string

	// Скалярные поля перезаписываются напрямую: побеждает последний вызов
	if dto.Amount != nil {
		loan.Amount = *dto.Amount
	}
	if dto.DurationMonths != nil {
		loan.DurationMonths = *dto.DurationMonths
	}
	if dto.MonthlyInstallment != nil {
		loan.MonthlyInstallment = *dto.MonthlyInstallment
	}
	if dto.AssignedTo != nil {
		loan.AssignedTo = *dto.AssignedTo
	}
	if dto.PayoutNumber != nil {
		loan.PayoutNumber = *dto.PayoutNumber
	}
	if dto.CustomMessage != nil {
		loan.CustomMessage = *dto.CustomMessage
	}
	if dto.Fees != nil {
		if loan.Fees == nil {
			loan.Fees = models.FeeMap{}
		}
		for kind, amount := range dto.Fees {
			loan.Fees[kind] = amount
		}
	}

	// Уровень: сообщение заявителю берется из каталога, если сотрудник
	// не передал свое
	if dto.Level != nil {
		level := models.LoanLevel(*dto.Level)
		entry, err := s.catalog.Resolve(level)
		if err != nil {
			return nil, err
		}
		loan.Level = level
		if dto.CustomMessage == nil {
			loan.CustomMessage = entry.MessageTemplate
		}
	}

	// Статус: проверка перехода и, для платежных статусов, перерасчет графика
	statusChanged := false
	if dto.Status != nil {
		requested := models.LoanStatus(*dto.Status)
		if err := s.statuses.ValidateTransition(loan.Status, requested); err != nil {
			return nil, err
		}
		statusChanged = loan.Status != requested
		loan.Status = requested

		// Каждый вход в платежный статус заново привязывает график к
		// моменту этого вызова, даже если заявка уже была в платежном
		// статусе
		if requested.IsPaymentActive() {
			now := s.now()
			loan.StatusUpdatedAt = &now

			schedule, err := s.schedules.Compute(now, loan.DurationMonths)
			if err != nil {
				// Срок в записи поврежден: статус и остальные изменения
				// все равно фиксируются
				utils.LogWarn("заявка %d: график не рассчитан, срок %d: %v", loan.ID, loan.DurationMonths, err)
				warnings = append(warnings, WarningScheduleSkipped)
			} else {
				loan.MonthlyPaymentDates = schedule.MonthlyPaymentDates
				endDate := schedule.LoanEndDate
				loan.LoanEndDate = &endDate
			}
		}
	}

	// Анкетные данные объединяются по ключам, не перечисленные ключи сохраняются
	if dto.PersonalInfo != nil {
		loan.PersonalInfo = mergeAttributes(loan.PersonalInfo, dto.PersonalInfo)
	}
	if dto.BankInfo != nil {
		loan.BankInfo = mergeAttributes(loan.BankInfo, dto.BankInfo)
	}

	// Единственная запись в хранилище за вызов
	if err := s.repo.SaveLoan(loan); err != nil {
		return nil, err
	}

	// Уведомляем заявителя о решающих статусах. Ошибка отправки логируется,
	// но не прерывает обновление
	if statusChanged && s.email != nil &&
		(loan.Status == models.LoanStatusPayPass || loan.Status == models.LoanStatusRejected) {
		if loan.Applicant.Email != "" {
			if err := s.email.SendStatusNotification(loan.Applicant.Email, loan.ID, string(loan.Status)); err != nil {
				utils.LogError("заявка %d: ошибка отправки уведомления: %v", loan.ID, err)
			}
		}
	}

	response := s.toLoanResponse(loan)
	response.Warnings = warnings
	return response, nil
}

// SubmitApplicationDTO представляет данные подачи заявки
type SubmitApplicationDTO struct {
	Amount         int64 `json:"amount" validate:"required,gt=0"`
	DurationMonths int   `json:"duration_months" validate:"required,gt=0"`
}

// ErrAlreadySubmitted возвращается при повторной подаче заявки
var ErrAlreadySubmitted = errors.New("заявка уже подана")

// SubmitApplication фиксирует подачу заявки: сумма, срок, ежемесячный платеж
// и дата подачи устанавливаются ровно один раз и дальше сервисом не меняются
func (s *LoanService) SubmitApplication(applicantID uint, dto SubmitApplicationDTO) (*LoanResponseDTO, error) {
	if err := s.validator.Struct(dto); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMessages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				errorMessages = append(errorMessages, "поле "+e.Field()+" обязательно")
			case "gt":
				errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть больше 0")
			}
		}
		return nil, errors.New(strings.Join(errorMessages, "; "))
	}

	loan, err := s.repo.FindLoanByApplicantID(applicantID)
	if err != nil {
		return nil, err
	}

	// Дата подачи устанавливается один раз
	if loan.ApplicationDate != nil {
		return nil, ErrAlreadySubmitted
	}

	now := s.now()
	loan.Amount = dto.Amount
	loan.DurationMonths = dto.DurationMonths
	loan.MonthlyInstallment = roundedInstallment(dto.Amount, dto.DurationMonths)
	loan.ApplicationDate = &now

	if err := s.repo.SaveLoan(loan); err != nil {
		return nil, err
	}

	return s.toLoanResponse(loan), nil
}

// roundedInstallment возвращает amount/months с округлением до ближайшего целого
func roundedInstallment(amount int64, months int) int64 {
	m := int64(months)
	return (amount + m/2) / m
}

// GetLoanByID возвращает проекцию заявки по ID
func (s *LoanService) GetLoanByID(loanID uint) (*LoanResponseDTO, error) {
	loan, err := s.repo.FindLoanByID(loanID)
	if err != nil {
		return nil, err
	}
	return s.toLoanResponse(loan), nil
}

// GetLoanByApplicantID возвращает проекцию заявки по ID заявителя
func (s *LoanService) GetLoanByApplicantID(applicantID uint) (*LoanResponseDTO, error) {
	loan, err := s.repo.FindLoanByApplicantID(applicantID)
	if err != nil {
		return nil, err
	}
	return s.toLoanResponse(loan), nil
}

// GetLoans возвращает проекции всех заявок
func (s *LoanService) GetLoans() ([]LoanResponseDTO, error) {
	loans, err := s.repo.FindAllLoans()
	if err != nil {
		return nil, err
	}
	responses := make([]LoanResponseDTO, len(loans))
	for i := range loans {
		responses[i] = *s.toLoanResponse(&loans[i])
	}
	return responses, nil
}

// validateUpdate проверяет поля частичного обновления
func (s *LoanService) validateUpdate(dto UpdateLoanDTO) error {
	if err := s.validator.Struct(dto); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMessages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "gt":
				errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть больше 0")
			default:
				errorMessages = append(errorMessages, "поле "+e.Field()+" некорректно")
			}
		}
		return errors.New(strings.Join(errorMessages, "; "))
	}

	// Сборы: вид из закрытого набора, сумма не бывает отрицательной
	for kind, amount := range dto.Fees {
		if !models.AllLoanLevels[models.LoanLevel(kind)] {
			return errors.New("неизвестный вид сбора: " + kind)
		}
		if amount < 0 {
			return errors.New("сумма сбора " + kind + " не может быть отрицательной")
		}
	}

	return nil
}

// toLoanResponse конвертирует модель LoanApplication в DTO
func (s *LoanService) toLoanResponse(loan *models.LoanApplication) *LoanResponseDTO {
	return &LoanResponseDTO{
		ID:                  loan.ID,
		ApplicantID:         loan.ApplicantID,
		Amount:              loan.Amount,
		DurationMonths:      loan.DurationMonths,
		MonthlyInstallment:  loan.MonthlyInstallment,
		Status:              string(loan.Status),
		Level:               string(loan.Level),
		Fees:                loan.Fees,
		CustomMessage:       loan.CustomMessage,
		AssignedTo:          loan.AssignedTo,
		PayoutNumber:        loan.PayoutNumber,
		ApplicationDate:     loan.ApplicationDate,
		StatusUpdatedAt:     loan.StatusUpdatedAt,
		MonthlyPaymentDates: loan.MonthlyPaymentDates,
		LoanEndDate:         loan.LoanEndDate,
		PersonalInfo:        loan.PersonalInfo,
		BankInfo:            loan.BankInfo,
	}
}

// mergeAttributes объединяет анкетные атрибуты: новые ключи добавляются,
// существующие перезаписываются, остальные остаются нетронутыми. Запись
// целиком никогда не заменяется.
func mergeAttributes(existing models.AttributeMap, patch map[string]interface{}) models.AttributeMap {
	merged := make(models.AttributeMap, len(existing)+len(patch))
	for key, value := range existing {
		merged[key] = value
	}
	for key, value := range patch {
		merged[key] = value
	}
	return merged
}
