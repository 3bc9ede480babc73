package walletmiddleware

import (
	"time"

	"github.com/bartossh/MetroWallet/httpclient"
)

const (
	defaultTimeout     = time.Second * 30
	defaultMaxFileSize = 42 * 1024
)

// MaxPhasingDuration is the longest phasing in blocks allowed by the node.
const MaxPhasingDuration = 20160

// Config contains the request pipeline configuration.
type Config struct {
	Timeout              time.Duration `yaml:"timeout"`                // request timeout, 30 seconds when zero
	MaxFileSize          int           `yaml:"max_file_size"`          // largest file attached to a request
	DisabledRequestTypes []string      `yaml:"disabled_request_types"` // request types rejected without contacting the node
	ProxyMode            bool          `yaml:"proxy_mode"`             // send requests to /metro-proxy
	RemoteNodes          bool          `yaml:"remote_nodes"`           // nodes are untrusted, transactions are anchored to the last known block
	AdminPassword        string        `yaml:"admin_password"`         // sent with broadcasts when the node requires it
}

// Options are the per request options.
type Options struct {
	Async       bool             // run the pipeline in its own goroutine
	NoProxy     bool             // send to /metro even in proxy mode
	RemoteNode  string           // node url to use instead of the selected one
	Timeout     time.Duration    // overrides the configured timeout
	DoNotEscape bool             // deliver response strings without HTML escaping
	File        *httpclient.File // file attached to the request, sent as multipart form
}

// AccountControl is the mandatory phasing control of the account.
// Every transaction but approveTransaction is phased with these parameters.
type AccountControl struct {
	VotingModel     int      `json:"votingModel"     yaml:"voting_model"`
	Quorum          uint64   `json:"quorum"          yaml:"quorum"`
	MinBalance      uint64   `json:"minBalance"      yaml:"min_balance"`
	MinBalanceModel int      `json:"minBalanceModel" yaml:"min_balance_model"`
	Holding         uint64   `json:"holding"         yaml:"holding"`
	Whitelisted     []string `json:"whitelisted"     yaml:"whitelisted"`
	MaxFees         int64    `json:"maxFees"         yaml:"max_fees"`     // MQT, zero means no limit
	MinDuration     int32    `json:"minDuration"     yaml:"min_duration"` // blocks
	MaxDuration     int32    `json:"maxDuration"     yaml:"max_duration"` // blocks, zero means MaxPhasingDuration
}
