package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	previewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_import_previews_total",
		Help: "Import previews built",
	})

	importsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_imports_total",
			Help: "Import commits by outcome",
		},
		[]string{"outcome"},
	)

	importRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_import_rows_total",
			Help: "Imported rows by result",
		},
		[]string{"result"},
	)
)

func observeImport(outcome string, s Summary) {
	importsTotal.WithLabelValues(outcome).Inc()
	importRowsTotal.WithLabelValues("created").Add(float64(s.Created))
	importRowsTotal.WithLabelValues("updated").Add(float64(s.Updated))
	importRowsTotal.WithLabelValues("skipped").Add(float64(s.Skipped))
	importRowsTotal.WithLabelValues("invalid").Add(float64(s.InvalidRows))
}
