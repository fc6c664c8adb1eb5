package metrics

// HTTP request metrics as a gin middleware, derived from
// github.com/zsais/go-gin-prometheus with the push gateway, basic auth and
// referer label removed and logging moved to zap.

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var httpLabels = []string{"code", "method", "route"}

var (
	reqCnt = &Metric{
		ID:          "reqCnt",
		Name:        "req_total",
		Description: "HTTP requests processed, by status code, method and route.",
		Type:        "counter_vec",
		Args:        httpLabels,
	}
	reqDur = &Metric{
		ID:          "reqDur",
		Name:        "req_dur_ms",
		Description: "HTTP request latencies in milliseconds.",
		Type:        "histogram_vec",
		Args:        httpLabels,
	}
	resSz = &Metric{
		ID:          "resSz",
		Name:        "resp_sz_bytes",
		Description: "HTTP response sizes in bytes.",
		Type:        "summary_vec",
		Args:        httpLabels,
	}
	reqSz = &Metric{
		ID:          "reqSz",
		Name:        "req_sz_bytes",
		Description: "HTTP request sizes in bytes.",
		Type:        "summary_vec",
		Args:        httpLabels,
	}
)

const defaultMetricPath = "/metrics"

// RouteLabelFn maps a request to its "route" label. Returning the route
// template rather than the raw path keeps tenant and course ids out of the
// label set.
type RouteLabelFn func(c *gin.Context) string

// Prometheus records request metrics and serves them on a separate listener.
type Prometheus struct {
	reqCnt       *prometheus.CounterVec
	reqDur       *prometheus.HistogramVec
	reqSz, resSz *prometheus.SummaryVec

	metricsPath string
	routeLabel  RouteLabelFn
	log         *zap.SugaredLogger
}

type NewPrometheusOptions struct {
	Subsystem   string
	MetricsPath string
	RouteLabel  RouteLabelFn
	Logger      *zap.SugaredLogger
	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// NewPrometheus builds and registers the HTTP collectors under subsystem.
// A collector that is already registered is reused.
func NewPrometheus(opts NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		metricsPath: opts.MetricsPath,
		routeLabel:  opts.RouteLabel,
		log:         opts.Logger,
	}
	if p.metricsPath == "" {
		p.metricsPath = defaultMetricPath
	}
	if p.routeLabel == nil {
		p.routeLabel = func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return "unmatched"
		}
	}
	if p.log == nil {
		p.log = zap.NewNop().Sugar()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p.reqCnt = register(reg, NewMetric(reqCnt, opts.Subsystem), p.log).(*prometheus.CounterVec)
	p.reqDur = register(reg, NewMetric(reqDur, opts.Subsystem), p.log).(*prometheus.HistogramVec)
	p.resSz = register(reg, NewMetric(resSz, opts.Subsystem), p.log).(*prometheus.SummaryVec)
	p.reqSz = register(reg, NewMetric(reqSz, opts.Subsystem), p.log).(*prometheus.SummaryVec)
	return p
}

func register(reg prometheus.Registerer, c prometheus.Collector, log *zap.SugaredLogger) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		log.Errorw("metrics_register_failed", "err", err)
	}
	return c
}

// Use installs the middleware on e.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.HandlerFunc())
}

// Server returns an unstarted server exposing the default gatherer on addr.
// Scrapes on their own listener stay out of the access log.
func (p *Prometheus) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(p.metricsPath, promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func (p *Prometheus) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqBytes := computeApproximateRequestSize(c.Request)

		c.Next()

		labels := []string{strconv.Itoa(c.Writer.Status()), c.Request.Method, p.routeLabel(c)}
		p.reqDur.WithLabelValues(labels...).Observe(MillisecondsSince(start))
		p.reqCnt.WithLabelValues(labels...).Inc()
		p.reqSz.WithLabelValues(labels...).Observe(float64(reqBytes))
		p.resSz.WithLabelValues(labels...).Observe(float64(c.Writer.Size()))
	}
}

// MillisecondsSince returns the elapsed time since start in fractional milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func computeApproximateRequestSize(r *http.Request) int {
	s := 0
	if r.URL != nil {
		s = len(r.URL.Path)
	}
	s += len(r.Method)
	s += len(r.Proto)
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	s += len(r.Host)
	if r.ContentLength != -1 {
		s += int(r.ContentLength)
	}
	return s
}
