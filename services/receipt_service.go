package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/beevik/etree"

	"loanPortal/models"
)

// ErrReceiptUnavailable возвращается при попытке построить квитанцию для
// заявки без активного графика платежей
var ErrReceiptUnavailable = errors.New("квитанция доступна только для заявок с активной выплатой")

// ReceiptService формирует документ-квитанцию о выдаче кредита
type ReceiptService struct{}

// NewReceiptService создает новый экземпляр ReceiptService
func NewReceiptService() *ReceiptService {
	return &ReceiptService{}
}

// BuildReceipt строит XML-документ квитанции по заявке. Квитанция существует
// только для заявок в платежном статусе.
func (s *ReceiptService) BuildReceipt(loan *models.LoanApplication) ([]byte, error) {
	if !loan.Status.IsPaymentActive() {
		return nil, ErrReceiptUnavailable
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	receipt := doc.CreateElement("receipt")
	receipt.CreateAttr("generated_at", time.Now().Format(time.RFC3339))

	loanEl := receipt.CreateElement("loan")
	loanEl.CreateElement("id").SetText(fmt.Sprintf("%d", loan.ID))
	loanEl.CreateElement("amount").SetText(fmt.Sprintf("%d", loan.Amount))
	loanEl.CreateElement("duration_months").SetText(fmt.Sprintf("%d", loan.DurationMonths))
	loanEl.CreateElement("monthly_installment").SetText(fmt.Sprintf("%d", loan.MonthlyInstallment))
	loanEl.CreateElement("status").SetText(string(loan.Status))
	if loan.PayoutNumber != "" {
		loanEl.CreateElement("payout_number").SetText(loan.PayoutNumber)
	}

	applicantEl := receipt.CreateElement("applicant")
	applicantEl.CreateElement("id").SetText(fmt.Sprintf("%d", loan.ApplicantID))
	if loan.Applicant.ID != 0 {
		applicantEl.CreateElement("name").SetText(loan.Applicant.FirstName + " " + loan.Applicant.LastName)
		applicantEl.CreateElement("email").SetText(loan.Applicant.Email)
	}

	scheduleEl := receipt.CreateElement("payment_schedule")
	for i, date := range loan.MonthlyPaymentDates {
		paymentEl := scheduleEl.CreateElement("payment")
		paymentEl.CreateAttr("number", fmt.Sprintf("%d", i+1))
		paymentEl.CreateElement("due_date").SetText(date.Format("2006-01-02"))
		paymentEl.CreateElement("amount").SetText(fmt.Sprintf("%d", loan.MonthlyInstallment))
	}
	if loan.LoanEndDate != nil {
		receipt.CreateElement("loan_end_date").SetText(loan.LoanEndDate.Format("2006-01-02"))
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}
