package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatwork_moderator_cycles_total",
	Help: "Polling cycles run, by result.",
}, []string{"result"})

var roomSkips = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatwork_moderator_room_skips_total",
	Help: "Rooms skipped within a cycle, by failing stage.",
}, []string{"stage"})

var messagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatwork_moderator_messages_processed_total",
	Help: "Messages dispatched to the command and moderation handlers.",
})

var roomCursor = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "chatwork_moderator_room_cursor",
	Help: "Id of the last processed message per room.",
}, []string{"room"})

var lastCycleTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "chatwork_moderator_last_cycle_timestamp_seconds",
	Help: "Unix time the last polling cycle finished.",
})

var trackedCounters = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "chatwork_moderator_activity_counters",
	Help: "Activity counters held in memory, one per (room, account).",
})
