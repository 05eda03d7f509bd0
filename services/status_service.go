package services

import (
	"errors"

	"loanPortal/models"
)

// ErrIllegalTransition возвращается при недопустимом переходе статуса заявки
var ErrIllegalTransition = errors.New("недопустимый переход статуса заявки")

// StatusService проверяет переходы статусов заявки.
//
// В обычном режиме проверяется только принадлежность нового статуса
// закрытому набору из пяти значений: исходная система допускала движение
// в любом направлении, и это поведение сохранено. Жесткий режим включает
// проверку по графу переходов.
type StatusService struct {
	strict bool
}

// Граф переходов для жесткого режима: pending -> pass -> pay_pending ->
// pay_pass, rejected достижим из любого нетерминального статуса. Платежные
// статусы допускают повторный вход: каждый такой переход заново привязывает
// график платежей к моменту вызова.
var strictTransitions = map[models.LoanStatus][]models.LoanStatus{
	models.LoanStatusPending:    {models.LoanStatusPass, models.LoanStatusRejected},
	models.LoanStatusPass:       {models.LoanStatusPayPending, models.LoanStatusRejected},
	models.LoanStatusPayPending: {models.LoanStatusPayPending, models.LoanStatusPayPass, models.LoanStatusRejected},
	models.LoanStatusPayPass:    {models.LoanStatusPayPass}, // повторное применение идемпотентно
	models.LoanStatusRejected:   {},
}

// NewStatusService создает новый экземпляр StatusService
func NewStatusService(strict bool) *StatusService {
	return &StatusService{strict: strict}
}

// ValidateTransition проверяет, допустим ли переход из текущего статуса в запрошенный
func (s *StatusService) ValidateTransition(current, requested models.LoanStatus) error {
	// Запрошенный статус обязан входить в закрытый набор
	if !models.AllLoanStatuses[requested] {
		return ErrIllegalTransition
	}

	if !s.strict {
		return nil
	}

	// Неизвестный текущий статус (поврежденная запись) не блокирует
	// исправление: разрешаем любой допустимый целевой статус
	allowed, ok := strictTransitions[current]
	if !ok {
		return nil
	}

	for _, status := range allowed {
		if status == requested {
			return nil
		}
	}
	return ErrIllegalTransition
}
