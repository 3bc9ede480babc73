package natsclient

import (
	"github.com/bartossh/MetroWallet/chainstate"
)

// Publisher provides functionality to push messages to the pub/sub queue
type Publisher struct {
	*socket
}

// PublisherConnect connects the block publisher to the nats server of the config.
func PublisherConnect(cfg Config) (*Publisher, error) {
	s, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return &Publisher{socket: s}, nil
}

// PublishNewBlock publishes the reference to the newly forged block.
func (p *Publisher) PublishNewBlock(b chainstate.Block) error {
	msg, err := encodeBlock(b)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, msg)
}
