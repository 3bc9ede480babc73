package emulator

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bartossh/MetroWallet/chainstate"
	"github.com/bartossh/MetroWallet/logger"
	"github.com/bartossh/MetroWallet/transaction"
	"github.com/bartossh/MetroWallet/wallet"
)

const (
	header     = "MetroNodeEmulator"
	apiVersion = "1.0"
)

const (
	PathAPI   = "/metro"
	PathProxy = "/metro-proxy"
)

// epochBeginning is the unix time of the genesis block.
const epochBeginning = 1615766400

const (
	defaultFee         = 1_000_000
	amountOffset       = 56
	errorIncorrectType = 1
	errorMissingParam  = 3
	errorNotAccepted   = 4
)

var ErrInvalidConfig = errors.New("invalid emulator configuration")

// Config contains configuration of the node emulator.
type Config struct {
	Port         int   `yaml:"port"`
	BlockSeconds int64 `yaml:"block_seconds"`
	StartHeight  int32 `yaml:"start_height"`
	Tamper       bool  `yaml:"tamper"`
}

// BlockPublisher publishes every forged block.
type BlockPublisher interface {
	PublishNewBlock(b chainstate.Block) error
}

// Node emulates the Metro node API used by the wallet.
// Transactions are built from the request the way the node does it,
// a tampering node changes the amount in the returned bytes.
type Node struct {
	mu          sync.Mutex
	blocks      *chainstate.Reference
	pub         BlockPublisher
	log         logger.Logger
	tamper      bool
	requests    int
	broadcasted [][]byte
	app         *fiber.App
}

// New creates the emulated node with the chain at the configured start height.
// The publisher may be nil.
func New(cfg Config, pub BlockPublisher, log logger.Logger) *Node {
	n := &Node{
		blocks: chainstate.New(),
		pub:    pub,
		log:    log,
		tamper: cfg.Tamper,
	}
	n.blocks.Set(chainstate.Block{ID: rand.Uint64(), Height: cfg.StartHeight})

	n.app = fiber.New(fiber.Config{
		Prefork:               false,
		DisableStartupMessage: true,
		CaseSensitive:         true,
		StrictRouting:         true,
		ServerHeader:          header,
		AppName:               apiVersion,
		Concurrency:           64,
	})
	n.app.Use(recover.New())
	n.app.All(PathAPI, n.handle)
	n.app.All(PathProxy, n.handle)
	return n
}

// Serve serves the node API on the listener until the listener is closed.
func (n *Node) Serve(ln net.Listener) error {
	return n.app.Listener(ln)
}

// Shutdown stops the node server.
func (n *Node) Shutdown() error {
	return n.app.Shutdown()
}

// SetTamper switches tampering of the returned transaction bytes.
func (n *Node) SetTamper(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tamper = v
}

// LastBlock returns the last block of the emulated chain.
func (n *Node) LastBlock() chainstate.Block {
	b, _ := n.blocks.LastBlock()
	return b
}

// Forge appends a new block to the chain and publishes it.
func (n *Node) Forge() chainstate.Block {
	b := chainstate.Block{ID: rand.Uint64(), Height: n.blocks.Height() + 1}
	n.blocks.Set(b)
	if n.pub != nil {
		if err := n.pub.PublishNewBlock(b); err != nil {
			n.log.Error(fmt.Sprintf("emulator publish block %d failed: %s", b.Height, err))
		}
	}
	return b
}

// Requests returns the number of requests served.
func (n *Node) Requests() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.requests
}

// Broadcasted returns the signed transactions accepted by the node.
func (n *Node) Broadcasted() [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([][]byte, len(n.broadcasted))
	copy(out, n.broadcasted)
	return out
}

// Run runs the emulated node on the configured port and forges blocks every BlockSeconds.
// To stop the node cancel the context.
func Run(ctx context.Context, cancel context.CancelFunc, cfg Config, pub BlockPublisher, log logger.Logger) error {
	defer cancel()

	if cfg.BlockSeconds < 1 || cfg.BlockSeconds > 600 {
		return fmt.Errorf("%w: block_seconds expected between 1 and 600 inclusive", ErrInvalidConfig)
	}
	if cfg.Port == 0 {
		return fmt.Errorf("%w: port is required", ErrInvalidConfig)
	}

	n := New(cfg, pub, log)
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", cfg.Port))
	if err != nil {
		return err
	}

	go func() {
		if err := n.Serve(ln); err != nil {
			log.Error(fmt.Sprintf("emulator server stopped: %s", err))
			cancel()
		}
	}()
	defer func() {
		if err := n.Shutdown(); err != nil {
			log.Error(fmt.Sprintf("emulator shutdown: %s", err))
		}
	}()

	t := time.NewTicker(time.Duration(cfg.BlockSeconds) * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			b := n.Forge()
			log.Info(fmt.Sprintf("emulator forged block [ %d ] id [ %s ]", b.Height, b.IDString()))
		}
	}
}

func (n *Node) handle(c *fiber.Ctx) error {
	n.mu.Lock()
	n.requests++
	n.mu.Unlock()

	params, err := readParams(c)
	if err != nil {
		return c.JSON(nodeError(errorMissingParam, err.Error()))
	}
	requestType := c.Query("requestType")

	switch requestType {
	case "getBlockchainStatus":
		b := n.LastBlock()
		return c.JSON(fiber.Map{
			"lastBlock":      b.IDString(),
			"numberOfBlocks": b.Height + 1,
			"time":           time.Now().Unix() - epochBeginning,
		})
	case "getAccount":
		return c.JSON(n.account(params))
	case "broadcastTransaction":
		return c.JSON(n.broadcast(params))
	}
	if transaction.IsTransactionRequest(requestType) {
		return c.JSON(n.createTransaction(requestType, params))
	}
	return c.JSON(nodeError(errorIncorrectType, "Incorrect request"))
}

func readParams(c *fiber.Ctx) (transaction.Request, error) {
	params := transaction.Request{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		params.Add(string(k), string(v))
	})
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		for k, vs := range form.Value {
			for _, v := range vs {
				params.Add(k, v)
			}
		}
		return params, nil
	}
	c.Context().PostArgs().VisitAll(func(k, v []byte) {
		params.Add(string(k), string(v))
	})
	return params, nil
}

func nodeError(code int, description string) fiber.Map {
	return fiber.Map{"errorCode": code, "errorDescription": description}
}

func (n *Node) account(params transaction.Request) fiber.Map {
	id, err := wallet.ParseAccount(params.Get("account"))
	if err != nil {
		return nodeError(errorMissingParam, "Incorrect \"account\"")
	}
	return fiber.Map{
		"account":   strconv.FormatUint(id, 10),
		"accountRS": wallet.FormatAccountID(id),
	}
}

func (n *Node) broadcast(params transaction.Request) fiber.Map {
	signed, err := hex.DecodeString(params.Get("transactionBytes"))
	if err != nil || len(signed) < wallet.SignatureOffset+wallet.SignatureLength {
		return nodeError(errorMissingParam, "Incorrect \"transactionBytes\"")
	}
	public := ed25519.PublicKey(signed[12:44])
	if err := wallet.NewVerifier().VerifyTransaction(signed, public); err != nil {
		return nodeError(errorNotAccepted, "Incorrect transaction signature")
	}
	n.mu.Lock()
	n.broadcasted = append(n.broadcasted, signed)
	n.mu.Unlock()

	return fiber.Map{
		"transaction": transactionID(signed),
		"fullHash":    fullHash(signed),
	}
}

func (n *Node) createTransaction(requestType string, params transaction.Request) fiber.Map {
	var signer *wallet.Wallet
	if secret := params.Get("secretPhrase"); secret != "" {
		w := wallet.FromSecretPhrase(secret)
		signer = &w
		params.Set("publicKey", w.PublicKeyHex())
	}

	h, err := transaction.HeaderFromRequest(params)
	if err != nil {
		return nodeError(errorMissingParam, err.Error())
	}
	h.Timestamp = uint64(time.Now().Unix() - epochBeginning)
	if h.Fee == 0 {
		h.Fee = defaultFee
	}
	if !params.Has("ecBlockId") {
		b := n.LastBlock()
		h.ECBlockHeight, h.ECBlockID = b.Height, b.ID
	}

	unsigned, err := transaction.Build(requestType, h, params)
	if err != nil {
		return nodeError(errorMissingParam, err.Error())
	}

	n.mu.Lock()
	tamper := n.tamper
	n.mu.Unlock()
	if tamper {
		amount := binary.LittleEndian.Uint64(unsigned[amountOffset:])
		binary.LittleEndian.PutUint64(unsigned[amountOffset:], amount+1)
	}

	res := fiber.Map{
		"unsignedTransactionBytes": hex.EncodeToString(unsigned),
		"transactionJSON":          transactionJSON(requestType, h, params),
		"broadcasted":              false,
		"requestProcessingTime":    0,
	}
	if signer == nil || params.IsTrue("calculateFee") || params.Get("broadcast") == "false" {
		return res
	}

	signed, err := signer.SignTransaction(unsigned)
	if err != nil {
		return nodeError(errorNotAccepted, err.Error())
	}
	n.mu.Lock()
	n.broadcasted = append(n.broadcasted, signed)
	n.mu.Unlock()
	res["transactionBytes"] = hex.EncodeToString(signed)
	res["fullHash"] = fullHash(signed)
	res["transaction"] = transactionID(signed)
	res["broadcasted"] = true
	return res
}

func transactionJSON(requestType string, h transaction.Header, params transaction.Request) fiber.Map {
	kind, _ := transaction.KindOf(requestType)
	attachment := fiber.Map{}
	flags := transaction.ExpectedFlags(params)
	if flags&transaction.FlagMessage != 0 {
		attachment["message"] = params.Get("message")
		attachment["messageIsText"] = params.Get("messageIsText") != "false"
	}
	if flags&transaction.FlagPrunablePlainMessage != 0 {
		isText := params.Get("messageIsText") != "false"
		content := []byte(params.Get("message"))
		if !isText {
			content, _ = hex.DecodeString(params.Get("message"))
		}
		attachment["messageHash"] = transaction.PlainMessageHash(content, isText)
	}
	if flags&transaction.FlagPrunableEncryptedMessage != 0 {
		data, _ := hex.DecodeString(params.Get("encryptedMessageData"))
		nonce, _ := hex.DecodeString(params.Get("encryptedMessageNonce"))
		attachment["encryptedMessageHash"] = transaction.EncryptedMessageHash(data, nonce,
			params.Get("messageToEncryptIsText") != "false",
			params.Get("compressMessageToEncrypt") != "false")
	}
	return fiber.Map{
		"type":            kind.Type,
		"subtype":         kind.Subtype,
		"version":         h.Version,
		"timestamp":       h.Timestamp,
		"deadline":        h.Deadline,
		"senderPublicKey": hex.EncodeToString(h.PublicKey),
		"recipient":       strconv.FormatUint(h.Recipient, 10),
		"amountMQT":       strconv.FormatUint(h.Amount, 10),
		"feeMQT":          strconv.FormatUint(h.Fee, 10),
		"ecBlockHeight":   h.ECBlockHeight,
		"ecBlockId":       strconv.FormatUint(h.ECBlockID, 10),
		"attachment":      attachment,
	}
}

func fullHash(signed []byte) string {
	sum := sha256.Sum256(signed)
	return hex.EncodeToString(sum[:])
}

func transactionID(signed []byte) string {
	sum := sha256.Sum256(signed)
	return strconv.FormatUint(binary.LittleEndian.Uint64(sum[:8]), 10)
}
