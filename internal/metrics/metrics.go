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
// サービス層やミドルウェアから利用する。
type MetricsCollector interface {
	RecordEnrollSuccess()
	RecordEnrollFailure(reason string)
	RecordTokenVerifyFailure()
	RecordHTTPStatus(statusCode int)
	RecordEnrollLatency(duration time.Duration)
	RecordThumbnailBlocked()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	enrollSuccess    prometheus.Counter
	enrollFail       *prometheus.CounterVec
	tokenVerifyFail  prometheus.Counter
	httpStatus       *prometheus.CounterVec
	enrollLatency    prometheus.Histogram
	thumbnailBlocked prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		enrollSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "techknots_enroll_success_total",
			Help: "受講登録成功の合計数",
		}),
		enrollFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "techknots_enroll_fail_total",
			Help: "理由別の受講登録失敗数",
		}, []string{"reason"}),
		tokenVerifyFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "techknots_token_verify_fail_total",
			Help: "IDトークン検証失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "techknots_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		enrollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "techknots_enroll_latency_seconds",
			Help:    "受講登録処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		thumbnailBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "techknots_thumbnail_blocked_total",
			Help: "セキュリティポリシーでブロックされたサムネイル取得数",
		}),
	}

	reg.MustRegister(
		c.enrollSuccess,
		c.enrollFail,
		c.tokenVerifyFail,
		c.httpStatus,
		c.enrollLatency,
		c.thumbnailBlocked,
	)

	return c
}

// RecordEnrollSuccess は受講登録成功を記録する。
func (c *Collector) RecordEnrollSuccess() {
	c.enrollSuccess.Inc()
}

// RecordEnrollFailure は受講登録失敗を理由付きで記録する。
func (c *Collector) RecordEnrollFailure(reason string) {
	c.enrollFail.WithLabelValues(reason).Inc()
}

// RecordTokenVerifyFailure はIDトークン検証失敗を記録する。
func (c *Collector) RecordTokenVerifyFailure() {
	c.tokenVerifyFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordEnrollLatency は受講登録処理のレイテンシを記録する。
func (c *Collector) RecordEnrollLatency(duration time.Duration) {
	c.enrollLatency.Observe(duration.Seconds())
}

// RecordThumbnailBlocked はブロックされたサムネイル取得を記録する。
func (c *Collector) RecordThumbnailBlocked() {
	c.thumbnailBlocked.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var _ MetricsCollector = (*Collector)(nil)
