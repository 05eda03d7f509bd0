package services

import (
	"errors"
	"time"

	"loanPortal/models"
)

// ErrInvalidDuration возвращается при попытке построить график для
// некорректного срока кредита
var ErrInvalidDuration = errors.New("некорректный срок кредита")

// PaymentSchedule представляет рассчитанный график платежей
type PaymentSchedule struct {
	MonthlyPaymentDates models.DateList
	LoanEndDate         time.Time
}

// ScheduleService рассчитывает график платежей по кредиту. Сервис чистый:
// результат полностью определяется моментом активации и сроком.
type ScheduleService struct{}

// NewScheduleService создает новый экземпляр ScheduleService
func NewScheduleService() *ScheduleService {
	return &ScheduleService{}
}

// Compute строит график платежей: i-й платеж (с нуля) приходится на
// activation + (i+1) календарных месяцев, дата окончания кредита — на
// activation + months месяцев, то есть совпадает с последним платежом.
// Если в целевом месяце нет такого числа, дата сдвигается на последний
// день месяца: активация 31 января дает платеж 28/29 февраля.
func (s *ScheduleService) Compute(activation time.Time, months int) (*PaymentSchedule, error) {
	if months <= 0 {
		return nil, ErrInvalidDuration
	}

	dates := make(models.DateList, months)
	for i := 0; i < months; i++ {
		dates[i] = addMonthsClamped(activation, i+1)
	}

	return &PaymentSchedule{
		MonthlyPaymentDates: dates,
		LoanEndDate:         addMonthsClamped(activation, months),
	}, nil
}

// addMonthsClamped прибавляет календарные месяцы с ограничением числа:
// time.AddDate переносит 31 января + 1 месяц на 2/3 марта, здесь же число
// прижимается к последнему дню целевого месяца.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, hour, min, sec, t.Nanosecond(), t.Location())
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// daysInMonth возвращает количество дней в месяце
func daysInMonth(year int, month time.Month) int {
	// Нулевой день следующего месяца — последний день текущего
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
