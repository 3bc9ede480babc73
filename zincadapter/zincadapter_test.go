package zincadapter

import (
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/bartossh/MetroWallet/httpclient"
)

type fakeZinc struct {
	docs  chan document
	token string
}

func (f *fakeZinc) handle(ctx *fasthttp.RequestCtx) {
	if string(ctx.Request.Header.Peek("Authorization")) != f.token {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		return
	}
	switch string(ctx.Path()) {
	case healthz:
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"ok"}`)
	case "/api/metro_wallet/_doc":
		var d document
		if err := json.Unmarshal(ctx.PostBody(), &d); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		f.docs <- d
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"id":"1"}`)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func newClient(t *testing.T, f *fakeZinc) httpclient.Client {
	ln := fasthttputil.NewInmemoryListener()
	go fasthttp.Serve(ln, f.handle)
	t.Cleanup(func() { ln.Close() })
	return httpclient.New(&fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }})
}

func TestWrite(t *testing.T) {
	f := &fakeZinc{docs: make(chan document, 1), token: "Basic dGVzdA=="}
	z, err := New(Config{Address: "http://zinc", Index: "metro_wallet", Token: f.token}, newClient(t, f))
	assert.Nil(t, err)

	n, err := z.Write([]byte(`{"msg":"hello"}`))
	assert.Nil(t, err)
	assert.Equal(t, 15, n)

	d := <-f.docs
	assert.Equal(t, `{"msg":"hello"}`, d.Log)
}

func TestNewFailsWithWrongToken(t *testing.T) {
	f := &fakeZinc{docs: make(chan document, 1), token: "Basic dGVzdA=="}
	_, err := New(Config{Address: "http://zinc", Index: "metro_wallet", Token: "wrong"}, newClient(t, f))
	assert.True(t, errors.Is(err, ErrZincServerNotResponding))
}

func TestNewFailsWithEmptyIndex(t *testing.T) {
	_, err := New(Config{Address: "http://zinc"}, httpclient.New(nil))
	assert.ErrorIs(t, err, ErrEmptyIndex)
}
