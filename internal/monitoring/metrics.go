// Package monitoring exposes request metrics and health probes.
package monitoring

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Metrics aggregates request counters and the scheduler's validation
// rejections.
type Metrics struct {
	mu             sync.RWMutex
	requestCount   int64
	activeRequests int64
	errorCount     int64
	totalDuration  time.Duration
	statusCodes    map[string]int64
	endpoints      map[string]int64
	rejections     map[string]int64
	startTime      time.Time
	lastRequest    time.Time
}

// Snapshot is the JSON view of Metrics.
type Snapshot struct {
	RequestCount       int64            `json:"request_count"`
	AvgRequestDuration float64          `json:"avg_request_duration_ms"`
	ActiveRequests     int64            `json:"active_requests"`
	ErrorCount         int64            `json:"error_count"`
	StatusCodes        map[string]int64 `json:"status_codes"`
	Endpoints          map[string]int64 `json:"endpoint_calls"`
	Rejections         map[string]int64 `json:"validation_rejections"`
	StartTime          time.Time        `json:"start_time"`
	LastRequest        time.Time        `json:"last_request"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		statusCodes: make(map[string]int64),
		endpoints:   make(map[string]int64),
		rejections:  make(map[string]int64),
		startTime:   time.Now(),
	}
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mu.Lock()
		m.activeRequests++
		m.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()

		m.mu.Lock()
		defer m.mu.Unlock()
		m.requestCount++
		m.activeRequests--
		m.totalDuration += duration
		m.lastRequest = time.Now()
		if status >= 400 {
			m.errorCount++
		}
		m.statusCodes[strconv.Itoa(status)]++
		m.endpoints[endpoint]++
	}
}

// RecordRejection counts a task write rejected on field for reason code.
func (m *Metrics) RecordRejection(field, code string) {
	m.mu.Lock()
	m.rejections[field+":"+code]++
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		RequestCount:   m.requestCount,
		ActiveRequests: m.activeRequests,
		ErrorCount:     m.errorCount,
		StatusCodes:    copyCounts(m.statusCodes),
		Endpoints:      copyCounts(m.endpoints),
		Rejections:     copyCounts(m.rejections),
		StartTime:      m.startTime,
		LastRequest:    m.lastRequest,
	}
	if m.requestCount > 0 {
		s.AvgRequestDuration = float64(m.totalDuration.Milliseconds()) / float64(m.requestCount)
	}
	return s
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc_mb"`
	TotalAlloc uint64 `json:"total_alloc_mb"`
	Sys        uint64 `json:"sys_mb"`
	NumGC      uint32 `json:"num_gc"`
}

func (m *Metrics) System() SystemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return SystemMetrics{
		Uptime: m.Uptime().String(),
		MemoryUsage: MemoryStats{
			Alloc:      bToMb(ms.Alloc),
			TotalAlloc: bToMb(ms.TotalAlloc),
			Sys:        bToMb(ms.Sys),
			NumGC:      ms.NumGC,
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

// Handler serves the metrics snapshot. extra adds sections such as cache
// statistics.
func (m *Metrics) Handler(extra func() gin.H) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"application": m.Snapshot(),
			"system":      m.System(),
			"timestamp":   time.Now(),
		}
		if extra != nil {
			for k, v := range extra() {
				response[k] = v
			}
		}
		c.JSON(http.StatusOK, response)
	}
}
