package model

// BridgeConfig configures the executing-side bridge daemon: where the
// command queue lives, which controller it serves, and how it polls.
type BridgeConfig struct {
	ControllerID string `yaml:"controller_id" json:"controller_id"`
	DeviceHost   string `yaml:"device_host" json:"device_host"`

	AWSRegion     string `yaml:"aws_region" json:"aws_region"`
	CommandsTable string `yaml:"commands_table" json:"commands_table"`

	PollIntervalMS int    `yaml:"poll_interval_ms" json:"poll_interval_ms"`
	MaxPerPoll     int    `yaml:"max_per_poll" json:"max_per_poll"`
	ListenAddr     string `yaml:"listen_addr" json:"listen_addr"`
}

// DefaultBridgeConfig mirrors the firmware defaults: 2s poll, five
// commands per cycle.
func DefaultBridgeConfig() *BridgeConfig {
	return &BridgeConfig{
		PollIntervalMS: 2000,
		MaxPerPoll:     5,
		ListenAddr:     ":9090",
	}
}
