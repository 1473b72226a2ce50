// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやミドルウェアから利用する。
type MetricsCollector interface {
	// RecordIntent はインテントの処理結果を記録する。outcomeは "success" / "invalid" / "unauthorized" / "error" 等。
	RecordIntent(intent, outcome string)
	// RecordLogin はログイン試行を記録する。methodは "github" / "password" / "register"。
	RecordLogin(method, outcome string)
	// RecordSessionBackendError はセッションストアの操作失敗を記録する。
	RecordSessionBackendError(op string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	intents        *prometheus.CounterVec
	logins         *prometheus.CounterVec
	sessionErrors  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guestbook_intents_total",
			Help: "インテント別・結果別の処理数",
		}, []string{"intent", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guestbook_logins_total",
			Help: "認証方式別・結果別のログイン試行数",
		}, []string{"method", "outcome"}),
		sessionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guestbook_session_backend_errors_total",
			Help: "セッションストア操作の失敗数",
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guestbook_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "guestbook_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.intents,
		c.logins,
		c.sessionErrors,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordIntent はインテントの処理結果を記録する。
func (c *Collector) RecordIntent(intent, outcome string) {
	c.intents.WithLabelValues(intent, outcome).Inc()
}

// RecordLogin はログイン試行を記録する。
func (c *Collector) RecordLogin(method, outcome string) {
	c.logins.WithLabelValues(method, outcome).Inc()
}

// RecordSessionBackendError はセッションストアの操作失敗を記録する。
func (c *Collector) RecordSessionBackendError(op string) {
	c.sessionErrors.WithLabelValues(op).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordIntent(string, string)         {}
func (NopCollector) RecordLogin(string, string)          {}
func (NopCollector) RecordSessionBackendError(string)    {}
func (NopCollector) RecordHTTPStatus(int)                {}
func (NopCollector) RecordRequestLatency(time.Duration) {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
