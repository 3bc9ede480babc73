package natsclient

import (
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bartossh/MetroWallet/chainstate"
)

var ErrMalformedBlock = errors.New("malformed block message")

const (
	keyID     = "id"
	keyHeight = "height"
)

// encodeBlock marshals the block reference to the protobuf wire format.
// The id travels as a decimal string, a double cannot hold every uint64.
func encodeBlock(b chainstate.Block) ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]any{
		keyID:     b.IDString(),
		keyHeight: float64(b.Height),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(msg)
}

func decodeBlock(raw []byte) (chainstate.Block, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(raw, &msg); err != nil {
		return chainstate.Block{}, errors.Join(ErrMalformedBlock, err)
	}
	fields := msg.GetFields()
	id, err := strconv.ParseUint(fields[keyID].GetStringValue(), 10, 64)
	if err != nil {
		return chainstate.Block{}, errors.Join(ErrMalformedBlock, err)
	}
	height, ok := fields[keyHeight]
	if !ok || height.GetNumberValue() < 0 {
		return chainstate.Block{}, fmt.Errorf("%w: height", ErrMalformedBlock)
	}
	return chainstate.Block{ID: id, Height: int32(height.GetNumberValue())}, nil
}
