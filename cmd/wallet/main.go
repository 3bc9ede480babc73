package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/bartossh/MetroWallet/aeswrapper"
	"github.com/bartossh/MetroWallet/chainstate"
	"github.com/bartossh/MetroWallet/configuration"
	"github.com/bartossh/MetroWallet/fileoperations"
	"github.com/bartossh/MetroWallet/httpclient"
	"github.com/bartossh/MetroWallet/logger"
	"github.com/bartossh/MetroWallet/logging"
	"github.com/bartossh/MetroWallet/logo"
	"github.com/bartossh/MetroWallet/natsclient"
	"github.com/bartossh/MetroWallet/remotenode"
	"github.com/bartossh/MetroWallet/stdoutwriter"
	"github.com/bartossh/MetroWallet/telemetry"
	"github.com/bartossh/MetroWallet/transaction"
	"github.com/bartossh/MetroWallet/wallet"
	"github.com/bartossh/MetroWallet/walletapi"
	"github.com/bartossh/MetroWallet/walletmiddleware"
	"github.com/bartossh/MetroWallet/zincadapter"
)

const usage = `Wallet signs Metro transactions locally and checks that the bytes returned by the node
encode exactly the request before anything is broadcast. The secret phrase is kept in an AES sealed file.`

func main() {
	logo.Display()

	var file, env string
	configurator := func() (configuration.Configuration, error) {
		if file == "" {
			return configuration.Configuration{}, errors.New("please specify configuration file path with -c <path to file>")
		}
		if env != "" {
			return configuration.ReadWithEnv(file, env)
		}
		return configuration.ReadWithEnv(file)
	}

	app := &cli.App{
		Name:  "wallet",
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Load configuration from `FILE`",
				Destination: &file,
			},
			&cli.StringFlag{
				Name:        "env",
				Aliases:     []string{"e"},
				Usage:       "Load secrets from the env `FILE`",
				Destination: &env,
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "seal",
				Aliases: []string{"s"},
				Usage:   "Reads the secret phrase from the standard input and saves it to the sealed file.",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					return seal(cfg)
				},
			},
			{
				Name:      "send",
				Aliases:   []string{"r"},
				Usage:     "Sends a single request through the pipeline, parameters are given as key=value.",
				ArgsUsage: "<requestType> [key=value ...]",
				Action: func(cCtx *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					return send(cCtx.Args().First(), cCtx.Args().Tail(), cfg)
				},
			},
			{
				Name:      "verify",
				Aliases:   []string{"v"},
				Usage:     "Verifies hex transaction bytes against the request parameters given as key=value.",
				ArgsUsage: "<requestType> <hex bytes> [key=value ...]",
				Action: func(cCtx *cli.Context) error {
					args := cCtx.Args().Slice()
					if len(args) < 2 {
						return errors.New("request type and transaction bytes are required")
					}
					return verify(args[0], args[1], args[2:])
				},
			},
			{
				Name:    "serve",
				Aliases: []string{"w"},
				Usage:   "Runs the wallet API.",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					return serve(cfg)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		pterm.Error.Println(err.Error())
	}
}

func parseParams(args []string) (transaction.Request, error) {
	req := transaction.Request{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("parameter %q is not key=value", a)
		}
		req.Add(k, v)
	}
	return req, nil
}

func newLogger(cfg configuration.Configuration) (logger.Logger, error) {
	callbackOnErr := func(err error) {
		fmt.Println("error with logger: ", err)
	}
	callbackOnFatal := func(err error) {
		panic(fmt.Sprintf("error with logger: %s", err))
	}

	writers := []io.Writer{stdoutwriter.Logger{}}
	if cfg.Zinc.Address != "" {
		zinc, err := zincadapter.New(cfg.Zinc, httpclient.New(nil))
		if err != nil {
			return nil, err
		}
		writers = append(writers, &zinc)
	}
	return logging.New("metro-wallet", callbackOnErr, callbackOnFatal, writers...), nil
}

type components struct {
	log     logger.Logger
	client  *walletmiddleware.Client
	blocks  *chainstate.Reference
	metrics *telemetry.Measurements
}

func build(cfg configuration.Configuration) (components, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return components{}, err
	}
	nodes, err := remotenode.New(cfg.RemoteNodes)
	if err != nil {
		return components{}, err
	}
	blocks := chainstate.New()
	metrics := telemetry.New()
	client := walletmiddleware.NewClient(cfg.Wallet, httpclient.New(nil), nodes, blocks, log, metrics)
	client.SetAccountControl(cfg.AccountControl)

	fo := fileoperations.New(cfg.FileOperator, aeswrapper.New())
	if _, phrase, err := fo.ReadWallet(); err == nil {
		client.RememberPassword(phrase)
	} else {
		log.Warn(fmt.Sprintf("sealed secret phrase not loaded: %s", err))
	}
	return components{log: log, client: client, blocks: blocks, metrics: metrics}, nil
}

func seal(cfg configuration.Configuration) error {
	pterm.Info.Println("Type the secret phrase and press enter:")
	raw, err := io.ReadAll(io.LimitReader(os.Stdin, 4096))
	if err != nil {
		return err
	}
	phrase := strings.TrimRight(string(raw), "\r\n")
	fo := fileoperations.New(cfg.FileOperator, aeswrapper.New())
	if err := fo.SaveSecretPhrase(phrase); err != nil {
		return err
	}
	w := wallet.FromSecretPhrase(phrase)
	pterm.Success.Printf("Sealed secret phrase of account [ %s ]\n", w.Address())
	return nil
}

func send(requestType string, args []string, cfg configuration.Configuration) error {
	req, err := parseParams(args)
	if err != nil {
		return err
	}
	c, err := build(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if b, err := c.client.BlockchainStatus(ctx); err == nil {
		c.blocks.Set(b)
	}

	var res walletmiddleware.Response
	if err := c.client.SendRequest(ctx, requestType, req, func(r walletmiddleware.Response, _ transaction.Request) {
		res = r
	}, walletmiddleware.Options{DoNotEscape: true}); err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("error code %d: %s", res.ErrorCode(), res.ErrorDescription())
	}
	for k, v := range res {
		pterm.Info.Printf("%s: %v\n", k, v)
	}
	return nil
}

func verify(requestType, bytesHex string, args []string) error {
	req, err := parseParams(args)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(bytesHex)
	if err != nil {
		return err
	}
	v := transaction.Verifier{AccountPublicKey: req.Get("publicKey")}
	if err := v.Check(raw, requestType, req, nil, false); err != nil {
		return err
	}
	pterm.Success.Println("Transaction bytes match the request.")
	return nil
}

func serve(cfg configuration.Configuration) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		cancel()
	}()

	comp, err := build(cfg)
	if err != nil {
		return err
	}

	go func() {
		if err := comp.metrics.Run(ctx, cancel, cfg.Telemetry); err != nil {
			comp.log.Error(err.Error())
		}
	}()

	tracker := chainstate.NewTracker(comp.blocks, comp.client, comp.log, cfg.BlockInterval)
	go tracker.Run(ctx)

	if cfg.Nats.Address != "" {
		sub, err := natsclient.SubscriberConnect(cfg.Nats)
		if err != nil {
			return err
		}
		defer sub.Disconnect()
		go func() {
			if err := sub.SubscribeNewBlock(ctx, comp.blocks, comp.log); err != nil {
				comp.log.Error(err.Error())
			}
		}()
	}

	return walletapi.Run(ctx, cfg.WalletAPI, comp.log, comp.client)
}
