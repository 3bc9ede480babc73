package walletmiddleware

import (
	"encoding/json"
	"html"
	"strconv"
)

// Error codes delivered in the errorCode field.
const (
	CodeNetwork      = -1
	CodeRequest      = 1
	CodeFileTooLarge = 3
)

// Error descriptions of the errors raised by the pipeline.
const (
	DescriptionDisabled           = "request type is disabled"
	DescriptionPassphraseMismatch = "incorrect passphrase"
	DescriptionBytesValidation    = "bytes validation failed, the transaction was discarded"
	DescriptionSignature          = "signature verification failed"
	DescriptionInvalidHash        = "invalid referenced transaction full hash"
	DescriptionTimeout            = "the node did not answer in time"
	DescriptionNetwork            = "cannot connect to the node"
	DescriptionCanceled           = "request canceled"
	DescriptionUnknownServerError = "unknown server error"
)

// Response is the JSON object answered by the node or synthesized by the pipeline.
// Error responses hold exactly errorCode and errorDescription.
type Response map[string]any

func errorResponse(code int, description string) Response {
	return Response{"errorCode": code, "errorDescription": description}
}

// IsError tells if the response reports an error.
func (r Response) IsError() bool {
	_, code := r["errorCode"]
	_, description := r["errorDescription"]
	return code || description
}

// ErrorCode returns the error code, zero when the response is not an error.
func (r Response) ErrorCode() int {
	if !r.IsError() {
		return 0
	}
	code, ok := toInt(r["errorCode"])
	if !ok {
		return CodeNetwork
	}
	return code
}

// ErrorDescription returns the error description.
func (r Response) ErrorDescription() string {
	s, _ := r["errorDescription"].(string)
	return s
}

// String returns the string value of the field.
func (r Response) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// normalizeError reduces the node error to errorCode and errorDescription.
func normalizeError(r Response) Response {
	code, ok := toInt(r["errorCode"])
	if !ok {
		code = CodeNetwork
	}
	description := r.ErrorDescription()
	if description == "" {
		description = DescriptionUnknownServerError
	}
	return errorResponse(code, description)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

// escape escapes HTML in every string of the response.
func escape(r Response) Response {
	out := make(Response, len(r))
	for k, v := range r {
		out[k] = escapeValue(v)
	}
	return out
}

func escapeValue(v any) any {
	switch t := v.(type) {
	case string:
		return html.EscapeString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = escapeValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = escapeValue(vv)
		}
		return out
	}
	return v
}
