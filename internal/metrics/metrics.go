// Package metrics declares Prometheus collectors named after the proxy's
// internal counters (the same ones infos.Store tracks under the "proxy"
// topic group) and registers them in init. No package of the proxy
// imports it and nothing updates these collectors, so they do not appear
// on the admin HTTP server's /metrics route.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	InvalidMsgFormat = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tsunproxy",
		Name:      "invalid_msg_format_total",
		Help:      "Frames dropped for a bad checksum or stop byte.",
	})
	UnknownMsg = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tsunproxy",
		Name:      "unknown_msg_total",
		Help:      "Frames received with no dispatch handler for their control code.",
	})
	UnknownSNR = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tsunproxy",
		Name:      "unknown_serial_total",
		Help:      "Device-indication frames whose logger serial didn't match the connection's.",
	})
	InvalidDataType = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tsunproxy",
		Name:      "invalid_data_type_total",
		Help:      "Register values that failed to decode against the dictionary's expected format.",
	})
	SWException = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tsunproxy",
		Name:      "software_exception_total",
		Help:      "Unexpected errors caught in a connection's processing loop.",
	})
	ATCommandBlocked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tsunproxy",
		Name:      "at_command_blocked_total",
		Help:      "AT commands rejected by the ACL.",
	})
	ATCommand = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tsunproxy",
		Name:      "at_command_total",
		Help:      "AT commands forwarded to a logger.",
	})
	ModbusCommand = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tsunproxy",
		Name:      "modbus_command_total",
		Help:      "Modbus requests issued to a logger.",
	})
	InverterCnt = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tsunproxy",
		Name:      "connected_inverters",
		Help:      "Number of currently connected inverter-facing sessions.",
	})
)

func init() {
	prometheus.MustRegister(
		InvalidMsgFormat, UnknownMsg, UnknownSNR, InvalidDataType,
		SWException, ATCommandBlocked, ATCommand, ModbusCommand, InverterCnt,
	)
}
