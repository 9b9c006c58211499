package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "canban"

// Metrics holds all canban metric instruments.
type Metrics struct {
	PrioritizeRuns     metric.Int64Counter
	CardsReprioritized metric.Int64Counter
	TasksExtracted     metric.Int64Counter
	BriefingFallbacks  metric.Int64Counter
	LLMCalls           metric.Int64Counter
	LLMFailures        metric.Int64Counter
	LLMDuration        metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.PrioritizeRuns, err = meter.Int64Counter("canban.prioritize.runs",
		metric.WithDescription("Number of prioritization passes"))
	if err != nil {
		return nil, err
	}

	m.CardsReprioritized, err = meter.Int64Counter("canban.prioritize.cards_changed",
		metric.WithDescription("Number of cards whose priority changed"))
	if err != nil {
		return nil, err
	}

	m.TasksExtracted, err = meter.Int64Counter("canban.extract.tasks",
		metric.WithDescription("Number of tasks extracted from free text"))
	if err != nil {
		return nil, err
	}

	m.BriefingFallbacks, err = meter.Int64Counter("canban.briefing.fallbacks",
		metric.WithDescription("Number of briefings served from the static fallback"))
	if err != nil {
		return nil, err
	}

	m.LLMCalls, err = meter.Int64Counter("canban.llm.calls",
		metric.WithDescription("Number of chat-completion calls"))
	if err != nil {
		return nil, err
	}

	m.LLMFailures, err = meter.Int64Counter("canban.llm.failures",
		metric.WithDescription("Number of failed chat-completion calls"))
	if err != nil {
		return nil, err
	}

	m.LLMDuration, err = meter.Float64Histogram("canban.llm.duration_seconds",
		metric.WithDescription("Chat-completion round-trip time in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
