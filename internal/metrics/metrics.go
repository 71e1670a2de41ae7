// Package metrics holds the Prometheus collectors for the tavern service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
)

var (
	InteractionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tavern_interactions_started_total",
			Help: "Total number of interactions started, by bartender and whether the bartender was blocked.",
		},
		[]string{"bartender", "blocked"},
	)

	OptionsSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tavern_options_selected_total",
			Help: "Total number of options selected, by bartender and option kind.",
		},
		[]string{"bartender", "option"},
	)

	TransactionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tavern_transactions_completed_total",
			Help: "Total number of bartender transactions that ran out of gameplay options.",
		},
		[]string{"bartender"},
	)

	ProtocolViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tavern_protocol_violations_total",
		Help: "Total number of inputs rejected because the option was not offered or the interaction was closed.",
	})
)

// OptionLabel collapses flavor option ids so label cardinality stays bounded
func OptionLabel(id dialogue.OptionID) string {
	switch {
	case id.IsFlavor():
		return "flavor"
	case id == dialogue.OptionHeal, id == dialogue.OptionSecond, id == dialogue.OptionDecline:
		return string(id)
	default:
		return "other"
	}
}
