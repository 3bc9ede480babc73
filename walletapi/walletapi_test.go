package walletapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/bartossh/MetroWallet/chainstate"
	"github.com/bartossh/MetroWallet/emulator"
	"github.com/bartossh/MetroWallet/httpclient"
	"github.com/bartossh/MetroWallet/logging"
	"github.com/bartossh/MetroWallet/remotenode"
	"github.com/bartossh/MetroWallet/stdoutwriter"
	"github.com/bartossh/MetroWallet/transaction"
	"github.com/bartossh/MetroWallet/wallet"
	"github.com/bartossh/MetroWallet/walletmiddleware"
)

const secret = "basket mouse clever rare ocean fever"

func newApp(t *testing.T) (*fiber.App, *walletmiddleware.Client, *emulator.Node) {
	log := logging.New("wallet-api-test", func(error) {}, func(error) {}, stdoutwriter.Logger{})
	node := emulator.New(emulator.Config{StartHeight: 50}, nil, log)
	ln := fasthttputil.NewInmemoryListener()
	go node.Serve(ln)
	t.Cleanup(func() { node.Shutdown() })

	nodes, err := remotenode.New(remotenode.Config{Nodes: []string{"http://node"}})
	assert.Nil(t, err)
	blocks := chainstate.New()
	blocks.Set(node.LastBlock())
	http := httpclient.New(&fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }})
	client := walletmiddleware.NewClient(walletmiddleware.Config{}, http, nodes, blocks, log, nil)
	return New(log, client), client, node
}

func decode(t *testing.T, body io.Reader, v any) {
	raw, err := io.ReadAll(body)
	assert.Nil(t, err)
	assert.Nil(t, json.Unmarshal(raw, v))
}

func TestAlive(t *testing.T) {
	app, _, _ := newApp(t)
	res, err := app.Test(httptest.NewRequest(fiber.MethodGet, Alive, nil), -1)
	assert.Nil(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var alive AliveResponse
	decode(t, res.Body, &alive)
	assert.Equal(t, AliveResponse{Alive: true, APIVersion: APIVersion, APIHeader: Header}, alive)
}

func TestAccount(t *testing.T) {
	app, client, _ := newApp(t)
	res, err := app.Test(httptest.NewRequest(fiber.MethodGet, Account, nil), -1)
	assert.Nil(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)

	client.RememberPassword(secret)
	res, err = app.Test(httptest.NewRequest(fiber.MethodGet, Account, nil), -1)
	assert.Nil(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var acc AccountResponse
	decode(t, res.Body, &acc)
	w := wallet.FromSecretPhrase(secret)
	assert.Equal(t, w.Address(), acc.AccountRS)
	assert.Equal(t, w.PublicKeyHex(), acc.PublicKey)
}

func TestTransactionTypes(t *testing.T) {
	app, _, _ := newApp(t)
	res, err := app.Test(httptest.NewRequest(fiber.MethodGet, Types, nil), -1)
	assert.Nil(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var out TypesResponse
	decode(t, res.Body, &out)
	assert.Equal(t, transaction.RequestTypes(), out.Types)
	assert.True(t, sort.StringsAreSorted(out.Types))
	for _, rt := range []string{"sendMoney", "sendMessage", "setPhasingOnlyControl", "shufflingCreate"} {
		t.Run(rt, func(t *testing.T) {
			assert.Contains(t, out.Types, rt)
			_, ok := transaction.KindOf(rt)
			assert.True(t, ok)
		})
	}
	assert.NotContains(t, out.Types, "getAccount")
}

func TestRequestRoundTrip(t *testing.T) {
	app, client, node := newApp(t)
	client.RememberPassword(secret)

	body, err := json.Marshal(RequestBody{
		Data: map[string][]string{
			"secretPhrase": {""},
			"recipient":    {"123456789"},
			"amountMTR":    {"2.5"},
		},
		Options: RequestOptions{DoNotEscape: true},
	})
	assert.Nil(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/request/sendMoney", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	res, err := app.Test(req, -1)
	assert.Nil(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var out RequestResponse
	decode(t, res.Body, &out)
	assert.False(t, out.Response.IsError(), out.Response.ErrorDescription())
	assert.NotEmpty(t, out.Response.String("fullHash"))
	assert.Equal(t, "250000000", out.Request.Get("amountMQT"))
	_, ok := out.Request["secretPhrase"]
	assert.False(t, ok)
	assert.Len(t, node.Broadcasted(), 1)
}

func TestRequestErrors(t *testing.T) {
	app, _, _ := newApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/request/sendMoney", bytes.NewReader([]byte("{not json")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	res, err := app.Test(req, -1)
	assert.Nil(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	body, _ := json.Marshal(RequestBody{Data: map[string][]string{"recipient": {"1"}, "amountMTR": {"x"}}})
	req = httptest.NewRequest(fiber.MethodPost, "/request/sendMoney", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	res, err = app.Test(req, -1)
	assert.Nil(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	var out RequestResponse
	decode(t, res.Body, &out)
	assert.Equal(t, walletmiddleware.CodeRequest, out.Response.ErrorCode())
}
