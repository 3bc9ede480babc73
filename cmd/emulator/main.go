package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/bartossh/MetroWallet/configuration"
	"github.com/bartossh/MetroWallet/emulator"
	"github.com/bartossh/MetroWallet/logging"
	"github.com/bartossh/MetroWallet/logo"
	"github.com/bartossh/MetroWallet/natsclient"
	"github.com/bartossh/MetroWallet/stdoutwriter"
)

func main() {
	logo.Display()

	var file string
	var tamper bool
	configurator := func() (configuration.Configuration, error) {
		if file == "" {
			return configuration.Configuration{}, errors.New("please specify configuration file path with -c <path to file>")
		}
		return configuration.ReadWithEnv(file)
	}

	app := &cli.App{
		Name:  "emulator",
		Usage: "Emulates the Metro node API used by the wallet.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Load configuration from `FILE`",
				Destination: &file,
			},
			&cli.BoolFlag{
				Name:        "tamper",
				Aliases:     []string{"t"},
				Usage:       "Return transaction bytes with a changed amount",
				Destination: &tamper,
			},
		},
		Action: func(_ *cli.Context) error {
			cfg, err := configurator()
			if err != nil {
				return err
			}
			cfg.Emulator.Tamper = cfg.Emulator.Tamper || tamper
			return run(cfg)
		},
	}

	if err := app.Run(os.Args); err != nil {
		pterm.Error.Println(err.Error())
	}
}

func run(cfg configuration.Configuration) error {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		cancel()
	}()

	log := logging.New("metro-emulator", func(err error) {
		fmt.Println("error with logger: ", err)
	}, func(err error) {
		panic(fmt.Sprintf("error with logger: %s", err))
	}, stdoutwriter.Logger{})

	var pub emulator.BlockPublisher
	if cfg.Nats.Address != "" {
		p, err := natsclient.PublisherConnect(cfg.Nats)
		if err != nil {
			cancel()
			return err
		}
		defer p.Disconnect()
		pub = p
	}

	return emulator.Run(ctx, cancel, cfg.Emulator, pub, log)
}
