package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatwork_moderator_commands_total",
	Help: "Admin commands seen, by command and outcome.",
}, []string{"command", "outcome"})

var moderationActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatwork_moderator_downgrades_total",
	Help: "Permission downgrades attempted, by reason and result.",
}, []string{"reason", "result"})

var activityCounted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatwork_moderator_activity_counted_total",
	Help: "Stamps and personal mentions counted in enabled rooms.",
}, []string{"kind"})
