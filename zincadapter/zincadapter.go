package zincadapter

import (
	"errors"
	"fmt"
	"time"

	"github.com/bartossh/MetroWallet/httpclient"
)

const (
	healthz        = "/healthz"
	createDocument = "/api/%s/_doc"
)

const timeout = time.Second * 5

var (
	ErrZincServerNotResponding = errors.New("zinc server not responding on given address")
	ErrZincServerWriteFailed   = errors.New("zinc server write failed")
	ErrEmptyIndex              = errors.New("zinc index name is empty")
)

// Config contains configuration for the zinc logging back-end.
type Config struct {
	Address string `yaml:"address"` // zinc server address
	Index   string `yaml:"index"`   // index per service, logs of the wallet and the emulator are searched separately
	Token   string `yaml:"token"`   // basic authorization token, may be given in the environment
}

type document struct {
	Log string `json:"log"`
}

// ZincClient sends logs to the zincsearch back-end.
type ZincClient struct {
	client  httpclient.Client
	address string
	index   string
	token   string
}

// New creates a new ZincClient, checking that the server is alive.
func New(cfg Config, client httpclient.Client) (ZincClient, error) {
	if cfg.Index == "" {
		return ZincClient{}, ErrEmptyIndex
	}
	if err := client.GetJSON(timeout, cfg.Token, cfg.Address+healthz, nil); err != nil {
		return ZincClient{}, errors.Join(ErrZincServerNotResponding, err)
	}
	return ZincClient{client: client, address: cfg.Address, index: cfg.Index, token: cfg.Token}, nil
}

// Write satisfies io.Writer abstraction.
func (z *ZincClient) Write(p []byte) (n int, err error) {
	url := z.address + fmt.Sprintf(createDocument, z.index)
	if err := z.client.PostJSON(timeout, z.token, url, document{Log: string(p)}, nil); err != nil {
		return 0, errors.Join(ErrZincServerWriteFailed, err)
	}
	return len(p), nil
}
