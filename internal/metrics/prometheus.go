package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacebio_questions_total",
			Help: "Total questions answered, by outcome",
		},
		[]string{"status"},
	)

	QuestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spacebio_question_duration_seconds",
			Help:    "Question answering duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	ModelAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spacebio_model_fallback_attempts",
			Help:    "Generation attempts per question before success or exhaustion",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spacebio_retrieval_results",
			Help:    "Unique publications retrieved per query",
			Buckets: []float64{0, 1, 2, 5, 10},
		},
	)

	EmbeddingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacebio_embeddings_total",
			Help: "Chunks embedded by the bulk job, by outcome",
		},
		[]string{"status"},
	)

	PublicationsLoaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spacebio_publications_loaded_total",
			Help: "Publications admitted during bulk load",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacebio_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacebio_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(QuestionsTotal)
	prometheus.MustRegister(QuestionDuration)
	prometheus.MustRegister(ModelAttempts)
	prometheus.MustRegister(RetrievalResults)
	prometheus.MustRegister(EmbeddingsTotal)
	prometheus.MustRegister(PublicationsLoaded)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
