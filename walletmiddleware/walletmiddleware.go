package walletmiddleware

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bartossh/MetroWallet/chainstate"
	"github.com/bartossh/MetroWallet/httpclient"
	"github.com/bartossh/MetroWallet/logger"
	"github.com/bartossh/MetroWallet/remotenode"
	"github.com/bartossh/MetroWallet/telemetry"
	"github.com/bartossh/MetroWallet/transaction"
	"github.com/bartossh/MetroWallet/wallet"
)

const (
	pathAPI   = "/metro"
	pathProxy = "/metro-proxy"
)

const (
	metricRequests          = "metro_wallet_requests_total"
	metricRequestTime       = "metro_wallet_request_time"
	metricValidationFailure = "metro_wallet_bytes_validation_failures_total"
	metricTransportFailure  = "metro_wallet_transport_failures_total"
	metricBroadcasts        = "metro_wallet_broadcasts_total"
)

var (
	ErrMissingArgument = errors.New("request type, data and callback are required")
	ErrUnexpectedData  = errors.New("node returned unexpected data")
)

// Callback receives the response and the request that was sent, without the secret phrase.
type Callback func(Response, transaction.Request)

// Client is the request pipeline talking to the Metro node.
// Unit conversion, account control checks, local signing and verification of the
// unsigned bytes run before any transaction is broadcast.
type Client struct {
	cfg     Config
	http    httpclient.Client
	nodes   *remotenode.Manager
	blocks  *chainstate.Reference
	log     logger.Logger
	metrics *telemetry.Measurements
	helper  wallet.Helper

	disabled map[string]struct{}

	mu         sync.RWMutex
	accountID  uint64
	publicKey  string
	remembered string
	control    *AccountControl
}

// NewClient creates a new Client. The metrics may be nil.
func NewClient(
	cfg Config, http httpclient.Client, nodes *remotenode.Manager,
	blocks *chainstate.Reference, log logger.Logger, metrics *telemetry.Measurements,
) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	disabled := make(map[string]struct{}, len(cfg.DisabledRequestTypes))
	for _, rt := range cfg.DisabledRequestTypes {
		disabled[rt] = struct{}{}
	}
	if metrics != nil {
		metrics.CreateUpdateCounter(metricRequests, "Number of requests sent through the pipeline.")
		metrics.CreateUpdateObservableHistogram(metricRequestTime, "Pipeline request time in microseconds.")
		metrics.CreateUpdateCounter(metricValidationFailure, "Number of transactions discarded because the bytes did not match the request.")
		metrics.CreateUpdateCounter(metricTransportFailure, "Number of requests that failed on transport.")
		metrics.CreateUpdateCounter(metricBroadcasts, "Number of broadcast transactions.")
	}
	return &Client{
		cfg:      cfg,
		http:     http,
		nodes:    nodes,
		blocks:   blocks,
		log:      log,
		metrics:  metrics,
		helper:   wallet.NewVerifier(),
		disabled: disabled,
	}
}

// SetAccount sets the logged in account by its public key.
func (c *Client) SetAccount(public ed25519.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publicKey = hex.EncodeToString(public)
	c.accountID = wallet.AccountIDFromPublicKey(public)
}

// Account returns the logged in account id and hex public key.
func (c *Client) Account() (uint64, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID, c.publicKey
}

// RememberPassword keeps the secret phrase in memory and logs in its account.
// Requests carrying the secretPhrase parameter use the remembered phrase.
func (c *Client) RememberPassword(secretPhrase string) {
	w := wallet.FromSecretPhrase(secretPhrase)
	c.SetAccount(w.Public)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remembered = secretPhrase
}

// ForgetPassword removes the remembered secret phrase.
func (c *Client) ForgetPassword() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remembered = ""
}

// SetAccountControl sets the mandatory phasing control of the account, nil removes it.
func (c *Client) SetAccountControl(ctl *AccountControl) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.control = ctl
}

// SendRequest runs the pipeline for one request. The data is not modified.
// The only error returned is ErrMissingArgument, every other failure is delivered to the callback.
// A disabled request type is answered synchronously even with the Async option.
func (c *Client) SendRequest(ctx context.Context, requestType string, data transaction.Request, callback Callback, opts Options) error {
	if requestType == "" || data == nil || callback == nil {
		c.log.Error(fmt.Sprintf("send request [%s]: %s", requestType, ErrMissingArgument))
		return ErrMissingArgument
	}
	if _, ok := c.disabled[requestType]; ok {
		callback(errorResponse(CodeRequest, DescriptionDisabled), withoutSecret(data))
		return nil
	}

	req := data.Clone()
	if opts.Async {
		go c.process(ctx, requestType, req, callback, opts)
		return nil
	}
	c.process(ctx, requestType, req, callback, opts)
	return nil
}

// Broadcast sends the signed transaction to the selected node.
func (c *Client) Broadcast(ctx context.Context, signedHex, prunableJSON string) (Response, error) {
	return c.broadcast(ctx, signedHex, prunableJSON, Options{})
}

// BlockchainStatus reads the last block of the selected node.
func (c *Client) BlockchainStatus(ctx context.Context) (chainstate.Block, error) {
	var res Response
	err := c.send(ctx, "getBlockchainStatus", transaction.Request{}, methodGet, Options{NoProxy: true}, &res)
	if err != nil {
		return chainstate.Block{}, err
	}
	if res.IsError() {
		return chainstate.Block{}, fmt.Errorf("%w: %s", ErrUnexpectedData, res.ErrorDescription())
	}
	id, err := strconv.ParseUint(res.String("lastBlock"), 10, 64)
	if err != nil {
		return chainstate.Block{}, errors.Join(ErrUnexpectedData, err)
	}
	blocks, ok := toInt(res["numberOfBlocks"])
	if !ok || blocks < 1 {
		return chainstate.Block{}, fmt.Errorf("%w: number of blocks", ErrUnexpectedData)
	}
	return chainstate.Block{ID: id, Height: int32(blocks - 1)}, nil
}

func (c *Client) timeout(opts Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return c.cfg.Timeout
}

func (c *Client) node(opts Options) string {
	if opts.RemoteNode != "" {
		return opts.RemoteNode
	}
	return c.nodes.Current()
}

func (c *Client) path(opts Options) string {
	if c.cfg.ProxyMode && !opts.NoProxy {
		return pathProxy
	}
	return pathAPI
}

// send dispatches the request, empty method means GET.
func (c *Client) send(ctx context.Context, requestType string, req transaction.Request, method string, opts Options, out *Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if method == "" {
		method = methodGet
	}
	form := httpclient.Form{
		Method: method,
		URL:    c.node(opts) + c.path(opts) + "?requestType=" + requestType,
		Values: req.Encode(),
		File:   opts.File,
	}
	return c.http.SendForm(form, c.timeout(opts), out)
}

func withoutSecret(data transaction.Request) transaction.Request {
	out := data.Clone()
	out.Del("secretPhrase")
	return out
}
