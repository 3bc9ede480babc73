package natsclient

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/bartossh/MetroWallet/chainstate"
	"github.com/bartossh/MetroWallet/logger"
)

// Subscriber provides functionality to pull messages from the pub/sub queue.
type Subscriber struct {
	*socket
}

// SubscriberConnect connects the block subscriber to the nats server of the config.
func SubscriberConnect(cfg Config) (*Subscriber, error) {
	s, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return &Subscriber{socket: s}, nil
}

// SubscribeNewBlock keeps the reference at the newest published block until the context is done.
// Blocks lower than the known one are ignored.
func (s *Subscriber) SubscribeNewBlock(ctx context.Context, ref *chainstate.Reference, log logger.Logger) error {
	sub, err := s.conn.Subscribe(s.subject, newBlockHandler(ref, log))
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func newBlockHandler(ref *chainstate.Reference, log logger.Logger) nats.MsgHandler {
	return func(msg *nats.Msg) {
		b, err := decodeBlock(msg.Data)
		if err != nil {
			log.Error(fmt.Sprintf("nats subscriber: %s", err))
			return
		}
		if last, ok := ref.LastBlock(); ok && last.Height > b.Height {
			return
		}
		ref.Set(b)
		log.Debug(fmt.Sprintf("nats subscriber: new block [ %d ]", b.Height))
	}
}
