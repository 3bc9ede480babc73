package walletapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bartossh/MetroWallet/logger"
	"github.com/bartossh/MetroWallet/transaction"
	"github.com/bartossh/MetroWallet/wallet"
	"github.com/bartossh/MetroWallet/walletmiddleware"
)

const (
	Header     = "MetroWallet"
	APIVersion = "1.0"
)

const (
	MetricsURL = "/metrics"              // URL serves service metrics.
	Alive      = "/alive"                // URL allows to check if server is alive.
	Account    = "/account"              // URL allows to read the logged in account.
	Request    = "/request/:requestType" // URL runs the request through the wallet pipeline.
	Types      = "/transaction-types"    // URL lists the transaction request types the wallet can verify.
)

// Config is the configuration of the wallet API.
type Config struct {
	Port int `yaml:"port"`
}

// Pipeline runs requests to the Metro node.
type Pipeline interface {
	SendRequest(ctx context.Context, requestType string, data transaction.Request,
		callback walletmiddleware.Callback, opts walletmiddleware.Options) error
	Account() (uint64, string)
}

type app struct {
	log      logger.Logger
	pipeline Pipeline
}

// New creates the wallet API router.
func New(log logger.Logger, pipeline Pipeline) *fiber.App {
	a := app{log: log, pipeline: pipeline}

	router := fiber.New(fiber.Config{
		Prefork:               false,
		DisableStartupMessage: true,
		CaseSensitive:         true,
		StrictRouting:         true,
		ReadTimeout:           time.Second * 5,
		WriteTimeout:          time.Minute,
		ServerHeader:          Header,
		AppName:               APIVersion,
		Concurrency:           1024,
	})
	router.Use(recover.New())
	router.Get(MetricsURL, monitor.New(monitor.Config{Title: "Metro Wallet API"}))

	router.Get(Alive, a.alive)
	router.Get(Account, a.account)
	router.Get(Types, a.transactionTypes)
	router.Post(Request, a.request)

	return router
}

// Run runs the wallet API that passes requests through the pipeline.
// This blocks until the context is canceled.
func Run(ctx context.Context, cfg Config, log logger.Logger, pipeline Pipeline) error {
	ctxx, cancel := context.WithCancel(ctx)
	defer cancel()

	router := New(log, pipeline)

	var err error
	go func() {
		err = router.Listen(fmt.Sprintf("0.0.0.0:%v", cfg.Port))
		if err != nil {
			log.Error(fmt.Sprintf("wallet api listen: %s", err))
			cancel()
		}
	}()

	<-ctxx.Done()

	if er := router.Shutdown(); er != nil {
		return errors.Join(err, er)
	}
	return err
}

// AliveResponse is containing server alive data such as APIVersion and APIHeader.
type AliveResponse struct {
	Alive      bool   `json:"alive"`
	APIVersion string `json:"api_version"`
	APIHeader  string `json:"api_header"`
}

func (a *app) alive(c *fiber.Ctx) error {
	return c.JSON(
		AliveResponse{
			Alive:      true,
			APIVersion: APIVersion,
			APIHeader:  Header,
		})
}

// AccountResponse is the logged in account.
type AccountResponse struct {
	Account   string `json:"account"`
	AccountRS string `json:"account_rs"`
	PublicKey string `json:"public_key"`
}

func (a *app) account(c *fiber.Ctx) error {
	id, publicKey := a.pipeline.Account()
	if publicKey == "" {
		return fiber.ErrNotFound
	}
	return c.JSON(
		AccountResponse{
			Account:   strconv.FormatUint(id, 10),
			AccountRS: wallet.FormatAccountID(id),
			PublicKey: publicKey,
		})
}

// TypesResponse lists the transaction request types.
type TypesResponse struct {
	Types []string `json:"types"`
}

func (a *app) transactionTypes(c *fiber.Ctx) error {
	return c.JSON(TypesResponse{Types: transaction.RequestTypes()})
}

// RequestOptions are the pipeline options of a single request.
type RequestOptions struct {
	NoProxy        bool   `json:"no_proxy"`
	RemoteNode     string `json:"remote_node"`
	DoNotEscape    bool   `json:"do_not_escape"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// RequestBody holds the request parameters and options.
type RequestBody struct {
	Data    map[string][]string `json:"data"`
	Options RequestOptions      `json:"options"`
}

// RequestResponse holds the pipeline response and the request that was sent without the secret phrase.
type RequestResponse struct {
	Response walletmiddleware.Response `json:"response"`
	Request  transaction.Request       `json:"request"`
}

func (a *app) request(c *fiber.Ctx) error {
	var req RequestBody
	if err := c.BodyParser(&req); err != nil {
		err := fmt.Errorf("error reading data: %v", err)
		a.log.Error(err.Error())
		return errors.Join(fiber.ErrBadRequest, err)
	}
	if req.Data == nil {
		req.Data = map[string][]string{}
	}

	opts := walletmiddleware.Options{
		NoProxy:     req.Options.NoProxy,
		RemoteNode:  req.Options.RemoteNode,
		DoNotEscape: req.Options.DoNotEscape,
		Timeout:     time.Duration(req.Options.TimeoutSeconds) * time.Second,
	}

	var res RequestResponse
	err := a.pipeline.SendRequest(c.UserContext(), c.Params("requestType"), transaction.Request(req.Data),
		func(r walletmiddleware.Response, sent transaction.Request) {
			res = RequestResponse{Response: r, Request: sent}
		}, opts)
	if err != nil {
		return errors.Join(fiber.ErrBadRequest, err)
	}
	return c.JSON(res)
}
