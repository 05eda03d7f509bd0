package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrLoanNotFound возвращается, если заявка с указанным ID не существует
var ErrLoanNotFound = errors.New("заявка на кредит не найдена")

// LoanStatus представляет статус заявки на кредит
type LoanStatus string

const (
	LoanStatusPending    LoanStatus = "pending"     // Заявка подана, ждет рассмотрения
	LoanStatusPass       LoanStatus = "pass"        // Заявка одобрена
	LoanStatusPayPending LoanStatus = "pay_pending" // Выплата оформляется, график активен
	LoanStatusPayPass    LoanStatus = "pay_pass"    // Выплата произведена, график активен
	LoanStatusRejected   LoanStatus = "rejected"    // Заявка отклонена
)

// AllLoanStatuses содержит закрытый набор допустимых статусов
var AllLoanStatuses = map[LoanStatus]bool{
	LoanStatusPending:    true,
	LoanStatusPass:       true,
	LoanStatusPayPending: true,
	LoanStatusPayPass:    true,
	LoanStatusRejected:   true,
}

// IsPaymentActive возвращает true, если статус подразумевает активный график платежей
func (s LoanStatus) IsPaymentActive() bool {
	return s == LoanStatusPayPending || s == LoanStatusPayPass
}

// LoanLevel представляет уровень обработки заявки, назначаемый сотрудником
type LoanLevel string

const (
	LoanLevelUnset       LoanLevel = ""            // Уровень еще не назначен
	LoanLevelTransfer    LoanLevel = "transfer"    // Этап перевода средств
	LoanLevelInsurance   LoanLevel = "insurance"   // Этап страхового взноса
	LoanLevelVIP         LoanLevel = "vip"         // VIP-обслуживание
	LoanLevelMaintenance LoanLevel = "maintenance" // Сервисный сбор
	LoanLevelFault       LoanLevel = "fault"       // Устранение ошибки в данных
	LoanLevelCustom      LoanLevel = "custom"      // Произвольное сообщение сотрудника
)

// AllLoanLevels содержит шесть распознаваемых уровней
var AllLoanLevels = map[LoanLevel]bool{
	LoanLevelTransfer:    true,
	LoanLevelInsurance:   true,
	LoanLevelVIP:         true,
	LoanLevelMaintenance: true,
	LoanLevelFault:       true,
	LoanLevelCustom:      true,
}

// FeeMap хранит суммы сборов по видам (transfer, insurance, vip, maintenance, fault, custom).
// Отсутствующий вид сбора трактуется как ноль.
type FeeMap map[string]float64

// AttributeMap хранит произвольные анкетные атрибуты (персональные или банковские данные)
type AttributeMap map[string]interface{}

// DateList хранит упорядоченный список дат платежей
type DateList []time.Time

// LoanApplication представляет заявку на кредит. Документ заявителя и есть
// кредитная запись: на одного заявителя приходится ровно одна заявка.
type LoanApplication struct {
	gorm.Model
	ApplicantID        uint       `gorm:"not null;uniqueIndex"`
	Applicant          Applicant  `gorm:"foreignKey:ApplicantID"`
	Amount             int64      `gorm:"not null;default:0"` // Запрошенная сумма
	DurationMonths     int        `gorm:"not null;default:0"` // Срок в месяцах
	MonthlyInstallment int64      `gorm:"not null;default:0"` // Ежемесячный платеж, amount/durationMonths с округлением
	Status             LoanStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	Level              LoanLevel  `gorm:"type:varchar(20);not null;default:''"`
	Fees               FeeMap     `gorm:"serializer:json;type:jsonb"`
	CustomMessage      string     `gorm:"type:text"` // Сообщение заявителю, заполняется из каталога уровней
	AssignedTo         string     `gorm:"size:100"`  // Ответственный сотрудник
	PayoutNumber       string     `gorm:"size:100"`  // Номер выплаты
	ApplicationDate    *time.Time // Дата подачи заявки, устанавливается ровно один раз
	StatusUpdatedAt    *time.Time // Момент последнего перехода в платежный статус
	MonthlyPaymentDates DateList  `gorm:"serializer:json;type:jsonb"` // Даты ежемесячных платежей
	LoanEndDate        *time.Time // Дата окончания кредита
	PersonalInfo       AttributeMap `gorm:"serializer:json;type:jsonb"`
	BankInfo           AttributeMap `gorm:"serializer:json;type:jsonb"`
}

// TableName возвращает имя таблицы для модели LoanApplication
func (LoanApplication) TableName() string {
	return "loan_applications"
}
