package services

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"loanPortal/config"
	"loanPortal/models"
)

// fakeLoanRepo — хранилище в памяти для тестов оркестратора
type fakeLoanRepo struct {
	loans map[uint]*models.LoanApplication
	saves int
}

func newFakeLoanRepo(loans ...*models.LoanApplication) *fakeLoanRepo {
	repo := &fakeLoanRepo{loans: make(map[uint]*models.LoanApplication)}
	for _, loan := range loans {
		repo.loans[loan.ID] = loan
	}
	return repo
}

func (r *fakeLoanRepo) FindLoanByID(id uint) (*models.LoanApplication, error) {
	loan, ok := r.loans[id]
	if !ok {
		return nil, models.ErrLoanNotFound
	}
	copied := *loan
	return &copied, nil
}

func (r *fakeLoanRepo) FindLoanByApplicantID(applicantID uint) (*models.LoanApplication, error) {
	for _, loan := range r.loans {
		if loan.ApplicantID == applicantID {
			copied := *loan
			return &copied, nil
		}
	}
	return nil, models.ErrLoanNotFound
}

func (r *fakeLoanRepo) FindAllLoans() ([]models.LoanApplication, error) {
	loans := make([]models.LoanApplication, 0, len(r.loans))
	for _, loan := range r.loans {
		loans = append(loans, *loan)
	}
	return loans, nil
}

func (r *fakeLoanRepo) SaveLoan(loan *models.LoanApplication) error {
	copied := *loan
	r.loans[loan.ID] = &copied
	r.saves++
	return nil
}

func newTestLoanService(t *testing.T, repo LoanRepository, strict bool) (*LoanService, *config.LevelCatalog) {
	t.Helper()
	catalog, err := config.NewLevelCatalog()
	if err != nil {
		t.Fatalf("NewLevelCatalog: %v", err)
	}
	return NewLoanService(repo, catalog, NewStatusService(strict), nil), catalog
}

func testLoan(id uint) *models.LoanApplication {
	return &models.LoanApplication{
		Model:          gorm.Model{ID: id},
		ApplicantID:    id,
		Amount:         100000,
		DurationMonths: 12,
		Status:         models.LoanStatusPending,
		Level:          models.LoanLevelTransfer,
		Fees:           models.FeeMap{},
		PersonalInfo:   models.AttributeMap{"nidNumber": "1234567890"},
		BankInfo:       models.AttributeMap{},
	}
}

func strPtr(s string) *string { return &s }

func TestApplyUpdateNotFound(t *testing.T) {
	svc, _ := newTestLoanService(t, newFakeLoanRepo(), false)

	if _, err := svc.ApplyUpdate(42, UpdateLoanDTO{Status: strPtr("pass")}); !errors.Is(err, models.ErrLoanNotFound) {
		t.Errorf("got %v, want ErrLoanNotFound", err)
	}
}

func TestApplyUpdatePaymentActivation(t *testing.T) {
	repo := newFakeLoanRepo(testLoan(1))
	svc, _ := newTestLoanService(t, repo, false)

	now := time.Date(2024, time.June, 10, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	result, err := svc.ApplyUpdate(1, UpdateLoanDTO{Status: strPtr("pay_pending")})
	if err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}

	if result.Status != "pay_pending" {
		t.Errorf("Status = %q, want pay_pending", result.Status)
	}
	if result.StatusUpdatedAt == nil || !result.StatusUpdatedAt.Equal(now) {
		t.Errorf("StatusUpdatedAt = %v, want %v", result.StatusUpdatedAt, now)
	}
	if len(result.MonthlyPaymentDates) != 12 {
		t.Fatalf("got %d payment dates, want 12", len(result.MonthlyPaymentDates))
	}
	if want := now.AddDate(0, 1, 0); !result.MonthlyPaymentDates[0].Equal(want) {
		t.Errorf("first payment = %v, want %v", result.MonthlyPaymentDates[0], want)
	}
	if want := now.AddDate(0, 12, 0); result.LoanEndDate == nil || !result.LoanEndDate.Equal(want) {
		t.Errorf("LoanEndDate = %v, want %v", result.LoanEndDate, want)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
}

func TestApplyUpdateReanchorsSchedule(t *testing.T) {
	repo := newFakeLoanRepo(testLoan(1))
	svc, _ := newTestLoanService(t, repo, false)

	first := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }
	if _, err := svc.ApplyUpdate(1, UpdateLoanDTO{Status: strPtr("pay_pending")}); err != nil {
		t.Fatal(err)
	}

	// Повторное применение того же статуса позже перепривязывает график
	// к моменту второго вызова
	second := time.Date(2024, time.September, 3, 15, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return second }
	result, err := svc.ApplyUpdate(1, UpdateLoanDTO{Status: strPtr("pay_pending")})
	if err != nil {
		t.Fatal(err)
	}

	if !result.StatusUpdatedAt.Equal(second) {
		t.Errorf("StatusUpdatedAt = %v, want %v", result.StatusUpdatedAt, second)
	}
	if want := second.AddDate(0, 1, 0); !result.MonthlyPaymentDates[0].Equal(want) {
		t.Errorf("first payment = %v, want re-anchored %v", result.MonthlyPaymentDates[0], want)
	}
}

func TestApplyUpdateScheduleSkipped(t *testing.T) {
	loan := testLoan(1)
	loan.DurationMonths = 0 // поврежденная запись
	repo := newFakeLoanRepo(loan)
	svc, _ := newTestLoanService(t, repo, false)

	result, err := svc.ApplyUpdate(1, UpdateLoanDTO{
		Status: strPtr("pay_pending"),
		Fees:   map[string]float64{"transfer": 500},
	})
	if err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}

	// Статус и сборы зафиксированы, график деградировал до предупреждения
	if result.Status != "pay_pending" {
		t.Errorf("Status = %q, want pay_pending", result.Status)
	}
	if result.Fees["transfer"] != 500 {
		t.Errorf("Fees[transfer] = %v, want 500", result.Fees["transfer"])
	}
	if len(result.MonthlyPaymentDates) != 0 {
		t.Errorf("unexpected payment dates: %v", result.MonthlyPaymentDates)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != WarningScheduleSkipped {
		t.Errorf("Warnings = %v, want [%s]", result.Warnings, WarningScheduleSkipped)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
}

func TestApplyUpdateLevelSetsMessage(t *testing.T) {
	loan := testLoan(1)
	loan.CustomMessage = ""
	repo := newFakeLoanRepo(loan)
	svc, catalog := newTestLoanService(t, repo, false)

	result, err := svc.ApplyUpdate(1, UpdateLoanDTO{Level: strPtr("insurance")})
	if err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}

	entry, err := catalog.Resolve(models.LoanLevelInsurance)
	if err != nil {
		t.Fatal(err)
	}
	if result.CustomMessage != entry.MessageTemplate {
		t.Errorf("CustomMessage = %q, want catalog template %q", result.CustomMessage, entry.MessageTemplate)
	}
	if result.Level != "insurance" {
		t.Errorf("Level = %q, want insurance", result.Level)
	}
}

func TestApplyUpdateLevelKeepsSuppliedMessage(t *testing.T) {
	repo := newFakeLoanRepo(testLoan(1))
	svc, _ := newTestLoanService(t, repo, false)

	result, err := svc.ApplyUpdate(1, UpdateLoanDTO{
		Level:         strPtr("vip"),
		CustomMessage: strPtr("Индивидуальные условия для вас"),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Сообщение сотрудника не затирается шаблоном каталога
	if result.CustomMessage != "Индивидуальные условия для вас" {
		t.Errorf("CustomMessage = %q, want supplied message", result.CustomMessage)
	}
}

func TestApplyUpdateUnknownLevelAborts(t *testing.T) {
	repo := newFakeLoanRepo(testLoan(1))
	svc, _ := newTestLoanService(t, repo, false)

	_, err := svc.ApplyUpdate(1, UpdateLoanDTO{
		Level:      strPtr("platinum"),
		AssignedTo: strPtr("manager1"),
	})
	if !errors.Is(err, config.ErrUnknownLevel) {
		t.Fatalf("got %v, want ErrUnknownLevel", err)
	}

	// Структурная ошибка прерывает обновление до записи
	if repo.saves != 0 {
		t.Errorf("saves = %d, want 0", repo.saves)
	}
	stored, _ := repo.FindLoanByID(1)
	if stored.AssignedTo != "" {
		t.Errorf("AssignedTo = %q, want empty", stored.AssignedTo)
	}
}

func TestApplyUpdateIllegalStatusAborts(t *testing.T) {
	repo := newFakeLoanRepo(testLoan(1))
	svc, _ := newTestLoanService(t, repo, false)

	if _, err := svc.ApplyUpdate(1, UpdateLoanDTO{Status: strPtr("approved")}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("got %v, want ErrIllegalTransition", err)
	}
	if repo.saves != 0 {
		t.Errorf("saves = %d, want 0", repo.saves)
	}
}

func TestApplyUpdateStrictModeBlocksSkippingStages(t *testing.T) {
	repo := newFakeLoanRepo(testLoan(1))
	svc, _ := newTestLoanService(t, repo, true)

	// В жестком режиме pending не переходит сразу в pay_pending
	if _, err := svc.ApplyUpdate(1, UpdateLoanDTO{Status: strPtr("pay_pending")}); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("got %v, want ErrIllegalTransition", err)
	}

	if _, err := svc.ApplyUpdate(1, UpdateLoanDTO{Status: strPtr("pass")}); err != nil {
		t.Fatalf("pending -> pass: %v", err)
	}
	if _, err := svc.ApplyUpdate(1, UpdateLoanDTO{Status: strPtr("pay_pending")}); err != nil {
		t.Fatalf("pass -> pay_pending: %v", err)
	}
}

func TestApplyUpdateMergePreservesKeys(t *testing.T) {
	repo := newFakeLoanRepo(testLoan(1))
	svc, _ := newTestLoanService(t, repo, false)

	patch := UpdateLoanDTO{PersonalInfo: map[string]interface{}{"occupation": "engineer"}}

	first, err := svc.ApplyUpdate(1, patch)
	if err != nil {
		t.Fatal(err)
	}
	// Существующие ключи сохраняются
	if first.PersonalInfo["nidNumber"] != "1234567890" {
		t.Errorf("nidNumber lost after merge: %v", first.PersonalInfo)
	}
	if first.PersonalInfo["occupation"] != "engineer" {
		t.Errorf("occupation = %v, want engineer", first.PersonalInfo["occupation"])
	}

	// Повторное применение того же патча идемпотентно
	second, err := svc.ApplyUpdate(1, patch)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.PersonalInfo) != len(first.PersonalInfo) {
		t.Errorf("merge is not idempotent: %v vs %v", second.PersonalInfo, first.PersonalInfo)
	}
	if second.PersonalInfo["nidNumber"] != "1234567890" {
		t.Errorf("nidNumber lost after repeated merge: %v", second.PersonalInfo)
	}
}

func TestApplyUpdateFeesMergeAndValidation(t *testing.T) {
	loan := testLoan(1)
	loan.Fees = models.FeeMap{"transfer": 1000}
	repo := newFakeLoanRepo(loan)
	svc, _ := newTestLoanService(t, repo, false)

	// Разные виды сборов заполняются независимо
	result, err := svc.ApplyUpdate(1, UpdateLoanDTO{Fees: map[string]float64{"insurance": 2500}})
	if err != nil {
		t.Fatal(err)
	}
	if result.Fees["transfer"] != 1000 || result.Fees["insurance"] != 2500 {
		t.Errorf("Fees = %v, want transfer=1000 insurance=2500", result.Fees)
	}

	// Отрицательный сбор отклоняется до записи
	if _, err := svc.ApplyUpdate(1, UpdateLoanDTO{Fees: map[string]float64{"vip": -5}}); err == nil {
		t.Error("negative fee accepted, want error")
	}

	// Неизвестный вид сбора отклоняется
	if _, err := svc.ApplyUpdate(1, UpdateLoanDTO{Fees: map[string]float64{"penalty": 10}}); err == nil {
		t.Error("unknown fee kind accepted, want error")
	}
}

func TestSubmitApplication(t *testing.T) {
	loan := testLoan(1)
	loan.Amount = 0
	loan.DurationMonths = 0
	repo := newFakeLoanRepo(loan)
	svc, _ := newTestLoanService(t, repo, false)

	now := time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	result, err := svc.SubmitApplication(1, SubmitApplicationDTO{Amount: 100000, DurationMonths: 12})
	if err != nil {
		t.Fatalf("SubmitApplication: %v", err)
	}

	if result.Amount != 100000 || result.DurationMonths != 12 {
		t.Errorf("Amount/Duration = %d/%d, want 100000/12", result.Amount, result.DurationMonths)
	}
	// 100000/12 = 8333.33, округляется до ближайшего целого
	if result.MonthlyInstallment != 8333 {
		t.Errorf("MonthlyInstallment = %d, want 8333", result.MonthlyInstallment)
	}
	if result.ApplicationDate == nil || !result.ApplicationDate.Equal(now) {
		t.Errorf("ApplicationDate = %v, want %v", result.ApplicationDate, now)
	}
	// График при подаче не строится
	if len(result.MonthlyPaymentDates) != 0 {
		t.Errorf("unexpected payment dates at submission: %v", result.MonthlyPaymentDates)
	}

	// Повторная подача отклоняется: дата подачи устанавливается один раз
	if _, err := svc.SubmitApplication(1, SubmitApplicationDTO{Amount: 5000, DurationMonths: 2}); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("got %v, want ErrAlreadySubmitted", err)
	}
}

func TestSubmitApplicationRoundsToNearest(t *testing.T) {
	cases := []struct {
		amount int64
		months int
		want   int64
	}{
		{100000, 12, 8333}, // 8333.33 вниз
		{100000, 3, 33333}, // 33333.33 вниз
		{50000, 12, 4167},  // 4166.67 вверх
		{100, 3, 33},       // 33.33 вниз
		{12000, 12, 1000},  // ровно
	}
	for _, c := range cases {
		if got := roundedInstallment(c.amount, c.months); got != c.want {
			t.Errorf("roundedInstallment(%d, %d) = %d, want %d", c.amount, c.months, got, c.want)
		}
	}
}
