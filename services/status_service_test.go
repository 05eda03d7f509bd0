package services

import (
	"errors"
	"testing"

	"loanPortal/models"
)

func TestValidateTransitionClosedSet(t *testing.T) {
	s := NewStatusService(false)

	// Любое значение вне закрытого набора отклоняется
	for _, bad := range []models.LoanStatus{"", "approved", "PENDING", "pay", "done"} {
		if err := s.ValidateTransition(models.LoanStatusPending, bad); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("ValidateTransition(pending, %q): got %v, want ErrIllegalTransition", bad, err)
		}
	}
}

func TestValidateTransitionPermissiveMode(t *testing.T) {
	s := NewStatusService(false)

	// В обычном режиме допустимо движение в любом направлении внутри набора,
	// включая обратные и боковые переходы
	cases := [][2]models.LoanStatus{
		{models.LoanStatusPending, models.LoanStatusPass},
		{models.LoanStatusPass, models.LoanStatusPayPending},
		{models.LoanStatusPayPass, models.LoanStatusPending},
		{models.LoanStatusRejected, models.LoanStatusPass},
		{models.LoanStatusPayPending, models.LoanStatusPayPending},
	}
	for _, c := range cases {
		if err := s.ValidateTransition(c[0], c[1]); err != nil {
			t.Errorf("ValidateTransition(%s, %s): unexpected error: %v", c[0], c[1], err)
		}
	}
}

func TestValidateTransitionStrictMode(t *testing.T) {
	s := NewStatusService(true)

	allowed := [][2]models.LoanStatus{
		{models.LoanStatusPending, models.LoanStatusPass},
		{models.LoanStatusPending, models.LoanStatusRejected},
		{models.LoanStatusPass, models.LoanStatusPayPending},
		{models.LoanStatusPass, models.LoanStatusRejected},
		{models.LoanStatusPayPending, models.LoanStatusPayPass},
		{models.LoanStatusPayPending, models.LoanStatusPayPending}, // повторный вход перепривязывает график
		{models.LoanStatusPayPending, models.LoanStatusRejected},
		{models.LoanStatusPayPass, models.LoanStatusPayPass}, // идемпотентное повторение
	}
	for _, c := range allowed {
		if err := s.ValidateTransition(c[0], c[1]); err != nil {
			t.Errorf("strict ValidateTransition(%s, %s): unexpected error: %v", c[0], c[1], err)
		}
	}

	forbidden := [][2]models.LoanStatus{
		{models.LoanStatusPending, models.LoanStatusPayPending},
		{models.LoanStatusPending, models.LoanStatusPayPass},
		{models.LoanStatusPayPass, models.LoanStatusPending},
		{models.LoanStatusPayPass, models.LoanStatusRejected},
		{models.LoanStatusRejected, models.LoanStatusPending},
	}
	for _, c := range forbidden {
		if err := s.ValidateTransition(c[0], c[1]); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("strict ValidateTransition(%s, %s): got %v, want ErrIllegalTransition", c[0], c[1], err)
		}
	}
}

func TestValidateTransitionStrictModeUnknownCurrent(t *testing.T) {
	s := NewStatusService(true)

	// Поврежденный текущий статус не блокирует исправление записи
	if err := s.ValidateTransition("garbage", models.LoanStatusPending); err != nil {
		t.Errorf("ValidateTransition(garbage, pending): unexpected error: %v", err)
	}
}
