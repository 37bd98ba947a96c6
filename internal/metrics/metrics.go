package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the gradebook business counters.
type Metrics struct {
	studentsCreated       metric.Int64Counter
	subjectsCreated       metric.Int64Counter
	marksRecorded         metric.Int64Counter
	marksImported         metric.Int64Counter
	reportCardsGenerated  metric.Int64Counter
	classReportsGenerated metric.Int64Counter
	exportsGenerated      metric.Int64Counter
	ingestRejected        metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.studentsCreated, err = meter.Int64Counter("gradebook.students.created",
		metric.WithDescription("Total number of students created"),
		metric.WithUnit("{student}"),
	); err != nil {
		return nil, err
	}
	if m.subjectsCreated, err = meter.Int64Counter("gradebook.subjects.created",
		metric.WithDescription("Total number of subjects created"),
		metric.WithUnit("{subject}"),
	); err != nil {
		return nil, err
	}
	if m.marksRecorded, err = meter.Int64Counter("gradebook.marks.recorded",
		metric.WithDescription("Total number of marks recorded"),
		metric.WithUnit("{mark}"),
	); err != nil {
		return nil, err
	}
	if m.marksImported, err = meter.Int64Counter("gradebook.marks.imported",
		metric.WithDescription("Total number of marks recorded through CSV import"),
		metric.WithUnit("{mark}"),
	); err != nil {
		return nil, err
	}
	if m.reportCardsGenerated, err = meter.Int64Counter("gradebook.report_cards.generated",
		metric.WithDescription("Total number of report cards generated"),
		metric.WithUnit("{report}"),
	); err != nil {
		return nil, err
	}
	if m.classReportsGenerated, err = meter.Int64Counter("gradebook.class_reports.generated",
		metric.WithDescription("Total number of class reports generated"),
		metric.WithUnit("{report}"),
	); err != nil {
		return nil, err
	}
	if m.exportsGenerated, err = meter.Int64Counter("gradebook.exports.generated",
		metric.WithDescription("Total number of CSV and PDF exports"),
		metric.WithUnit("{export}"),
	); err != nil {
		return nil, err
	}
	if m.ingestRejected, err = meter.Int64Counter("gradebook.ingest.rejected",
		metric.WithDescription("Total number of ingested mark submissions rejected"),
		metric.WithUnit("{submission}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NewMock returns metrics whose Record methods do nothing.
func NewMock() *Metrics {
	return &Metrics{}
}

func add(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if c == nil || n == 0 {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordStudentCreated(ctx context.Context) {
	if m == nil {
		return
	}
	add(ctx, m.studentsCreated, 1)
}

func (m *Metrics) RecordSubjectsCreated(ctx context.Context, n int) {
	if m == nil {
		return
	}
	add(ctx, m.subjectsCreated, int64(n))
}

// RecordMarksRecorded counts marks stored through source ("api", "bulk",
// "nats" or "kafka").
func (m *Metrics) RecordMarksRecorded(ctx context.Context, source string, n int) {
	if m == nil {
		return
	}
	add(ctx, m.marksRecorded, int64(n), attribute.String("source", source))
}

func (m *Metrics) RecordMarksImported(ctx context.Context, n int) {
	if m == nil {
		return
	}
	add(ctx, m.marksImported, int64(n))
}

func (m *Metrics) RecordReportCard(ctx context.Context, format string) {
	if m == nil {
		return
	}
	add(ctx, m.reportCardsGenerated, 1, attribute.String("format", format))
}

func (m *Metrics) RecordClassReport(ctx context.Context, format string) {
	if m == nil {
		return
	}
	add(ctx, m.classReportsGenerated, 1, attribute.String("format", format))
}

func (m *Metrics) RecordExport(ctx context.Context, kind, format string) {
	if m == nil {
		return
	}
	add(ctx, m.exportsGenerated, 1, attribute.String("kind", kind), attribute.String("format", format))
}

func (m *Metrics) RecordIngestRejected(ctx context.Context, transport string) {
	if m == nil {
		return
	}
	add(ctx, m.ingestRejected, 1, attribute.String("transport", transport))
}
