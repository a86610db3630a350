package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "lumina_"

const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultTimeout   = "timeout"
)

var (
	registerOnce sync.Once

	relayCommandsQueued prometheus.Counter
	relayCommandResults *prometheus.CounterVec

	bridgeCommands   *prometheus.CounterVec
	bridgePollCycles prometheus.Counter

	framesSent     prometheus.Counter
	frameSendDrops prometheus.Counter
)

// Init registers the core metrics once; safe to call from every entry
// point that might be first.
func Init() {
	registerOnce.Do(func() {
		relayCommandsQueued = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "relay_commands_queued_total",
			Help: "Commands written to the relay queue",
		})
		relayCommandResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "relay_command_results_total",
			Help: "Relay command outcomes observed by the queueing side",
		}, []string{"result"})
		bridgeCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "bridge_commands_total",
			Help: "Commands executed by the bridge daemon by result",
		}, []string{"result"})
		bridgePollCycles = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "bridge_poll_cycles_total",
			Help: "Queue poll cycles run by the bridge daemon",
		})
		framesSent = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "stream_frames_sent_total",
			Help: "UDP pixel frames handed to the socket",
		})
		frameSendDrops = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "stream_frame_drops_total",
			Help: "Frames the sink refused or dropped locally",
		})

		prometheus.MustRegister(
			relayCommandsQueued, relayCommandResults,
			bridgeCommands, bridgePollCycles,
			framesSent, frameSendDrops,
		)
	})
}

func RelayCommandQueued() {
	if relayCommandsQueued != nil {
		relayCommandsQueued.Inc()
	}
}

func RelayCommandResult(result string) {
	if relayCommandResults != nil {
		relayCommandResults.WithLabelValues(result).Inc()
	}
}

func BridgeCommand(result string) {
	if bridgeCommands != nil {
		bridgeCommands.WithLabelValues(result).Inc()
	}
}

func BridgePollCycle() {
	if bridgePollCycles != nil {
		bridgePollCycles.Inc()
	}
}

func FrameSent() {
	if framesSent != nil {
		framesSent.Inc()
	}
}

func FrameDropped() {
	if frameSendDrops != nil {
		frameSendDrops.Inc()
	}
}
