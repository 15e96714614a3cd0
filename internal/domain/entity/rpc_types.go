package entity

// APIStatus holds the result of probing a network's chain API.
type APIStatus struct {
	Network        Network `json:"network"`
	URL            string  `json:"url"`
	IsWorking      *bool   `json:"isWorking"`
	LatencyMs      *int64  `json:"latencyMs,omitempty"`
	ServerVersion  string  `json:"serverVersion,omitempty"`
	ChainTipHeight uint64  `json:"chainTipHeight,omitempty"`
}
