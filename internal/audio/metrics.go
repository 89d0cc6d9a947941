package audio

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Focus arbitration metrics
	focusActivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiopolicy_focus_activations_total",
			Help: "Total number of successful audio focus activations",
		},
	)

	focusDeactivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiopolicy_focus_deactivations_total",
			Help: "Total number of audio focus deactivations",
		},
	)

	focusDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiopolicy_focus_denied_total",
			Help: "Total number of rejected audio focus requests",
		},
	)

	interruptEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiopolicy_interrupt_events_total",
			Help: "Total number of interrupt events dispatched, by hint",
		},
		[]string{"hint"},
	)

	// Device registry metrics
	deviceConnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiopolicy_device_connects_total",
			Help: "Total number of device connect events",
		},
	)

	deviceDisconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiopolicy_device_disconnects_total",
			Help: "Total number of device disconnect events",
		},
	)

	connectedDevicesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audiopolicy_connected_devices",
			Help: "Number of currently connected audio devices",
		},
	)

	// Reconciliation metrics
	deviceSwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiopolicy_device_switches_total",
			Help: "Total number of live device switches, by reason",
		},
		[]string{"reason"},
	)

	fetchNoopTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiopolicy_fetch_noop_total",
			Help: "Total number of fetch passes short-circuited by the idempotence guard",
		},
	)

	pipesOpenGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audiopolicy_pipes_open",
			Help: "Number of registered HAL pipes",
		},
	)

	halPortOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiopolicy_hal_port_ops_total",
			Help: "Total number of HAL port operations, by op and outcome",
		},
		[]string{"op", "outcome"},
	)

	offloadCloseAbortsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiopolicy_offload_close_aborts_total",
			Help: "Total number of deferred offload pipe closes aborted by pipe reuse",
		},
	)

	bluetoothRetriggersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiopolicy_bluetooth_retriggers_total",
			Help: "Total number of device fetches retriggered by Bluetooth activation failure",
		},
	)
)
