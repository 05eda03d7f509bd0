package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"loanPortal/config"
	"loanPortal/database"
	"loanPortal/models"
	"loanPortal/services"
	"loanPortal/utils"
)

// LoanController обрабатывает запросы, связанные с заявками на кредит
type LoanController struct {
	db          *database.Database
	loanService *services.LoanService
	receipts    *services.ReceiptService
}

// NewLoanController создает новый экземпляр LoanController
func NewLoanController(db *database.Database, catalog *config.LevelCatalog, statuses *services.StatusService, email *services.EmailService) *LoanController {
	return &LoanController{
		db:          db,
		loanService: services.NewLoanService(db, catalog, statuses, email),
		receipts:    services.NewReceiptService(),
	}
}

// SubmitApplication обрабатывает подачу заявки заявителем
func (c *LoanController) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(uint)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var dto services.SubmitApplicationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	loan, err := c.loanService.SubmitApplication(userID, dto)
	if err != nil {
		if errors.Is(err, services.ErrAlreadySubmitted) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if errors.Is(err, models.ErrLoanNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loan)
}

// GetMyLoan возвращает заявителю проекцию его собственной заявки
func (c *LoanController) GetMyLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(uint)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	loan, err := c.loanService.GetLoanByApplicantID(userID)
	if err != nil {
		if errors.Is(err, models.ErrLoanNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loan)
}

// GetLoans возвращает сотруднику список всех заявок
func (c *LoanController) GetLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := c.loanService.GetLoans()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loans)
}

// GetLoan возвращает сотруднику заявку по ID
func (c *LoanController) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := c.loanIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	loan, err := c.loanService.GetLoanByID(loanID)
	if err != nil {
		if errors.Is(err, models.ErrLoanNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loan)
}

// UpdateLoan применяет частичное обновление заявки (статус, уровень, сборы,
// анкетные данные) через оркестратор
func (c *LoanController) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := c.loanIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	var dto services.UpdateLoanDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	loan, err := c.loanService.ApplyUpdate(loanID, dto)

	// Обновляем метрики заявок
	targetStatus := ""
	if dto.Status != nil {
		targetStatus = *dto.Status
	}
	scheduleComputed := err == nil && loan != nil && len(loan.Warnings) == 0 && models.LoanStatus(targetStatus).IsPaymentActive()
	scheduleSkipped := err == nil && loan != nil && len(loan.Warnings) > 0
	utils.GetMetrics().RecordLoanUpdate(targetStatus, scheduleComputed, scheduleSkipped, err)

	if err != nil {
		switch {
		case errors.Is(err, models.ErrLoanNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrIllegalTransition), errors.Is(err, config.ErrUnknownLevel):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loan)
}

// GetReceipt возвращает XML-квитанцию о выдаче кредита
func (c *LoanController) GetReceipt(w http.ResponseWriter, r *http.Request) {
	loanID, err := c.loanIDFromPath(r)
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	loan, err := c.db.FindLoanByID(loanID)
	if err != nil {
		if errors.Is(err, models.ErrLoanNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	receipt, err := c.receipts.BuildReceipt(loan)
	if err != nil {
		if errors.Is(err, services.ErrReceiptUnavailable) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.GetMetrics().RecordReceipt()

	w.Header().Set("Content-Type", "application/xml")
	w.Write(receipt)
}

// GetMetrics возвращает снимок метрик приложения
func (c *LoanController) GetMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(utils.GetMetrics().GetMetricsSnapshot())
}

// loanIDFromPath извлекает ID заявки из URL
func (c *LoanController) loanIDFromPath(r *http.Request) (uint, error) {
	vars := mux.Vars(r)
	loanID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(loanID), nil
}
