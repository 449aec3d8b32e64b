package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	TotalNewsProcessed   int64
	NewsAccepted         int64
	DuplicatesFiltered   int64
	Rejections           map[string]int64
	PriceFetchErrors     int64
	SummariesGenerated   int64
	TelegramMessagesSent int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunID     string
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true, Rejections: make(map[string]int64)}
}

func (m *Metrics) AddNewsProcessed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalNewsProcessed += int64(n)
}

func (m *Metrics) AddAccepted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NewsAccepted += int64(n)
}

// RecordRejections adds per-reason counts. Reasons for which isDuplicate
// reports true are also summed into DuplicatesFiltered.
func (m *Metrics) RecordRejections(byReason map[string]int, isDuplicate func(reason string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for reason, n := range byReason {
		m.Rejections[reason] += int64(n)
		if isDuplicate != nil && isDuplicate(reason) {
			m.DuplicatesFiltered += int64(n)
		}
	}
}

func (m *Metrics) IncrementPriceFetchErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PriceFetchErrors++
}

func (m *Metrics) IncrementSummariesGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesGenerated++
}

func (m *Metrics) IncrementTelegramMessagesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TelegramMessagesSent++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunID = runID
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rejections := make(map[string]int64, len(m.Rejections))
	for k, v := range m.Rejections {
		rejections[k] = v
	}

	return map[string]interface{}{
		"total_news_processed":       m.TotalNewsProcessed,
		"news_accepted":              m.NewsAccepted,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"rejections":                 rejections,
		"price_fetch_errors":         m.PriceFetchErrors,
		"summaries_generated":        m.SummariesGenerated,
		"telegram_messages_sent":     m.TelegramMessagesSent,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_id":                m.LastRunID,
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
