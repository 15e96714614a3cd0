package entity

import "stacks-dao-reader/internal/clarity"

// ReadOnlyCall describes a read-only contract function invocation.
// Args are hex-encoded serialized values. Sender defaults to the contract address.
type ReadOnlyCall struct {
	ContractAddress string
	ContractName    string
	FunctionName    string
	Args            []string
	Sender          string
	Network         Network
}

// CallResult is the outcome of a successful read-only call. Raw always holds the hex
// payload; Value is nil when it could not be decoded.
type CallResult struct {
	Value *clarity.Value
	Raw   string
}

// Decoded reports whether the result payload was decoded.
func (r *CallResult) Decoded() bool {
	return r != nil && r.Value != nil
}
