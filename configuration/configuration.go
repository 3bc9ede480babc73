package configuration

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/bartossh/MetroWallet/emulator"
	"github.com/bartossh/MetroWallet/fileoperations"
	"github.com/bartossh/MetroWallet/natsclient"
	"github.com/bartossh/MetroWallet/remotenode"
	"github.com/bartossh/MetroWallet/telemetry"
	"github.com/bartossh/MetroWallet/walletapi"
	"github.com/bartossh/MetroWallet/walletmiddleware"
	"github.com/bartossh/MetroWallet/zincadapter"
)

// Environment variables overriding the secrets of the configuration file.
const (
	EnvSecretPasswd  = "METRO_SECRET_PASSWD"
	EnvAdminPassword = "METRO_ADMIN_PASSWORD"
	EnvNatsToken     = "METRO_NATS_TOKEN"
	EnvZincToken     = "METRO_ZINC_TOKEN"
)

// Configuration is the main configuration of the application that corresponds to the *.yaml file
// that holds the configuration.
type Configuration struct {
	Wallet         walletmiddleware.Config          `yaml:"wallet"`
	RemoteNodes    remotenode.Config                `yaml:"remote_nodes"`
	AccountControl *walletmiddleware.AccountControl `yaml:"account_control"`
	BlockInterval  time.Duration                    `yaml:"block_interval"`
	Nats           natsclient.Config                `yaml:"nats"`
	Zinc           zincadapter.Config               `yaml:"zinc"`
	Telemetry      telemetry.Config                 `yaml:"telemetry"`
	WalletAPI      walletapi.Config                 `yaml:"wallet_api"`
	FileOperator   fileoperations.Config            `yaml:"file_operator"`
	Emulator       emulator.Config                  `yaml:"emulator"`
}

// Read reads the configuration from the file and returns the Configuration with set fields according to the yaml setup.
func Read(path string) (Configuration, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, err
	}

	var main Configuration
	err = yaml.Unmarshal(buf, &main)
	if err != nil {
		return Configuration{}, fmt.Errorf("in file %q: %w", path, err)
	}

	return main, err
}

// ReadWithEnv reads the configuration file and overrides the secrets with the environment.
// The env files are loaded first, variables already set in the environment are kept.
func ReadWithEnv(path string, envFiles ...string) (Configuration, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Configuration{}, err
		}
	}

	override(&cfg.FileOperator.SecretPasswd, EnvSecretPasswd)
	override(&cfg.Wallet.AdminPassword, EnvAdminPassword)
	override(&cfg.Nats.Token, EnvNatsToken)
	override(&cfg.Zinc.Token, EnvZincToken)
	return cfg, nil
}

func override(field *string, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*field = v
	}
}
