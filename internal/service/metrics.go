package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	oracleCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editorial_oracle_calls_total",
			Help: "Classification oracle calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	imageAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editorial_image_attempts_total",
			Help: "Image candidate attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	personaDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editorial_persona_dispatch_total",
			Help: "Persona backend dispatches by persona and outcome",
		},
		[]string{"persona", "outcome"},
	)

	gateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "editorial_publish_gate_total",
			Help: "Publish gate decisions",
		},
		[]string{"result"},
	)
)
