package natsclient

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject new blocks are published on when the config names none.
const DefaultSubject = "metro.block.new"

const reconnectWait = time.Second * 2

var (
	ErrEmptyAddress  = errors.New("nats server address is empty")
	ErrAddressScheme = errors.New("nats server address scheme is not supported")
)

// Config contains the nats server connection of the new block feed.
type Config struct {
	Address string `yaml:"server_address"`
	Name    string `yaml:"client_name"`
	Token   string `yaml:"token"`
	Subject string `yaml:"subject"`
}

// subject returns the configured subject or DefaultSubject.
func (c Config) subject() string {
	if c.Subject == "" {
		return DefaultSubject
	}
	return c.Subject
}

// validate checks the server address before dialing.
func (c Config) validate() error {
	if c.Address == "" {
		return ErrEmptyAddress
	}
	u, err := url.Parse(c.Address)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrAddressScheme, u.Scheme)
	}
}

func (c Config) options() []nats.Option {
	opts := []nats.Option{nats.Name(c.Name), nats.MaxReconnects(-1), nats.ReconnectWait(reconnectWait)}
	if c.Token != "" {
		opts = append(opts, nats.Token(c.Token))
	}
	return opts
}

type socket struct {
	conn    *nats.Conn
	subject string
}

func connect(cfg Config) (*socket, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	conn, err := nats.Connect(cfg.Address, cfg.options()...)
	if err != nil {
		return nil, err
	}
	return &socket{conn: conn, subject: cfg.subject()}, nil
}

// Disconnect drains the block subscription or pending block publications and closes the connection.
func (s *socket) Disconnect() error {
	return s.conn.Drain()
}
