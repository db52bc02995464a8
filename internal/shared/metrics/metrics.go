package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas do motor de resolução. Registradas no registry default e expostas
// pelo servidor de /metrics de cada binário.
var (
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betengine_transitions_total",
		Help: "Transições de estado aplicadas, por tipo e resultado.",
	}, []string{"transition", "outcome"})

	SweepPassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betengine_sweep_passes_total",
		Help: "Passadas completas do deadline-sweeper.",
	})

	SweepRaceLossesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betengine_sweep_race_losses_total",
		Help: "Transições da varredura descartadas porque outro ator resolveu antes (corrida benigna).",
	})

	NotifyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betengine_notify_failures_total",
		Help: "Falhas ao publicar notificações (nunca revertem uma transição).",
	})
)
