package utils

import (
	"sync"
	"time"
)

// Metrics содержит метрики приложения
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики заявок
	LoanUpdates          int64
	StatusTransitions    map[string]int64 // количество переходов по целевому статусу
	SchedulesComputed    int64
	SchedulesSkipped     int64
	ReceiptsGenerated    int64
	LastLoanOperation    time.Time

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics возвращает экземпляр метрик
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			StatusTransitions: make(map[string]int64),
			ErrorTypes:        make(map[string]int64),
		}
	})
	return metrics
}

// RecordRequest записывает метрики запроса
func (m *Metrics) RecordRequest(duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()

	if failed {
		m.FailedRequests++
	}
}

// RecordLoanUpdate записывает метрики обновления заявки
func (m *Metrics) RecordLoanUpdate(targetStatus string, scheduleComputed, scheduleSkipped bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoanUpdates++
	m.LastLoanOperation = time.Now()

	if targetStatus != "" {
		m.StatusTransitions[targetStatus]++
	}
	if scheduleComputed {
		m.SchedulesComputed++
	}
	if scheduleSkipped {
		m.SchedulesSkipped++
	}
	if err != nil {
		m.recordErrorLocked(err)
	}
}

// RecordReceipt записывает метрики генерации квитанции
func (m *Metrics) RecordReceipt() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReceiptsGenerated++
	m.LastLoanOperation = time.Now()
}

// RecordError записывает метрики ошибки
func (m *Metrics) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordErrorLocked(err)
}

func (m *Metrics) recordErrorLocked(err error) {
	m.ErrorCount++
	m.LastErrorTime = time.Now()

	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}
	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	transitions := make(map[string]int64, len(m.StatusTransitions))
	for status, count := range m.StatusTransitions {
		transitions[status] = count
	}

	return map[string]interface{}{
		"total_requests":     m.TotalRequests,
		"failed_requests":    m.FailedRequests,
		"average_latency":    m.AverageLatency.String(),
		"loan_updates":       m.LoanUpdates,
		"status_transitions": transitions,
		"schedules_computed": m.SchedulesComputed,
		"schedules_skipped":  m.SchedulesSkipped,
		"receipts_generated": m.ReceiptsGenerated,
		"error_count":        m.ErrorCount,
		"last_error_time":    m.LastErrorTime,
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.LoanUpdates = 0
	m.StatusTransitions = make(map[string]int64)
	m.SchedulesComputed = 0
	m.SchedulesSkipped = 0
	m.ReceiptsGenerated = 0
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}
