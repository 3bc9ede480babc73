package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"
)

var (
	ErrStatusCodeMismatch  = errors.New("status code mismatch")
	ErrContentTypeMismatch = errors.New("content type mismatch")
	ErrTimeout             = errors.New("request timed out")
	ErrNetwork             = errors.New("network error")
)

const contentTypeJSON = "application/json"

// Doer performs a single HTTP round trip.
// *fasthttp.Client and *fasthttp.HostClient satisfy Doer.
type Doer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

// File is a file attached to a multipart form.
type File struct {
	Field string
	Name  string
	Data  []byte
}

// Form describes a form request to the node API.
// GET forms carry the values in the query string, POST forms in the body,
// multipart encoded when the File is present.
type Form struct {
	Method string
	URL    string
	Values url.Values
	File   *File
}

// Client sends requests through the Doer.
type Client struct {
	doer Doer
}

// New creates a new Client, nil doer means the default fasthttp client.
func New(d Doer) Client {
	if d == nil {
		d = &fasthttp.Client{NoDefaultUserAgentHeader: true}
	}
	return Client{doer: d}
}

// PostJSON posts 'out' as json and decodes the json answer into 'in'.
func (c Client) PostJSON(timeout time.Duration, token, url string, out, in any) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(contentTypeJSON)
	req.Header.Set("accept", contentTypeJSON)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	req.SetBody(raw)

	return c.do(req, timeout, in)
}

// GetJSON gets the 'url' and decodes the json answer into 'in'.
func (c Client) GetJSON(timeout time.Duration, token, url string, in any) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("accept", contentTypeJSON)
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	return c.do(req, timeout, in)
}

// SendForm sends the form and decodes the json answer into 'in'.
// A GET form that fails on transport is tried once more, POST forms are never repeated.
func (c Client) SendForm(f Form, timeout time.Duration, in any) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.Header.Set("accept", contentTypeJSON)

	switch f.Method {
	case fasthttp.MethodGet:
		req.Header.SetMethod(fasthttp.MethodGet)
		req.SetRequestURI(withQuery(f.URL, f.Values))
		err := c.do(req, timeout, in)
		if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork) {
			err = c.do(req, timeout, in)
		}
		return err
	case fasthttp.MethodPost:
		req.Header.SetMethod(fasthttp.MethodPost)
		req.SetRequestURI(f.URL)
		if f.File == nil {
			req.Header.SetContentType("application/x-www-form-urlencoded")
			req.SetBodyString(f.Values.Encode())
			return c.do(req, timeout, in)
		}
		body, contentType, err := multipartBody(f.Values, f.File)
		if err != nil {
			return err
		}
		req.Header.SetContentType(contentType)
		req.SetBody(body)
		return c.do(req, timeout, in)
	default:
		return fmt.Errorf("unsupported method %q", f.Method)
	}
}

func (c Client) do(req *fasthttp.Request, timeout time.Duration, in any) error {
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := c.doer.DoTimeout(req, resp, timeout); err != nil {
		return classify(err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK, fasthttp.StatusCreated, fasthttp.StatusAccepted:
	case fasthttp.StatusNoContent:
		return nil
	default:
		return errors.Join(
			ErrStatusCodeMismatch,
			fmt.Errorf("expected status code %d but got %d", fasthttp.StatusOK, resp.StatusCode()))
	}

	contentType := resp.Header.Peek("Content-Type")
	if bytes.Index(contentType, []byte(contentTypeJSON)) != 0 {
		return errors.Join(
			ErrContentTypeMismatch,
			fmt.Errorf("expected content type application/json but got %s", contentType))
	}

	if in == nil {
		return nil
	}
	return json.Unmarshal(resp.Body(), in)
}

func classify(err error) error {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) {
		return errors.Join(ErrTimeout, err)
	}
	return errors.Join(ErrNetwork, err)
}

func withQuery(rawURL string, values url.Values) string {
	if len(values) == 0 {
		return rawURL
	}
	if bytes.IndexByte([]byte(rawURL), '?') >= 0 {
		return rawURL + "&" + values.Encode()
	}
	return rawURL + "?" + values.Encode()
}

func multipartBody(values url.Values, file *File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range values {
		for _, v := range vs {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}
	field := file.Field
	if field == "" {
		field = "file"
	}
	fw, err := w.CreateFormFile(field, file.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
