package walletmiddleware

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bartossh/MetroWallet/encryption"
	"github.com/bartossh/MetroWallet/httpclient"
	"github.com/bartossh/MetroWallet/transaction"
	"github.com/bartossh/MetroWallet/units"
	"github.com/bartossh/MetroWallet/wallet"
)

const (
	methodGet  = "GET"
	methodPost = "POST"
)

var referencedHash = regexp.MustCompile(`^[a-f0-9]{64}$`)

// postOnly lists the request types that are not transactions but must be posted.
var postOnly = map[string]struct{}{
	"broadcastTransaction": {},
	"startForging":         {},
	"stopForging":          {},
	"getForging":           {},
	"decryptFrom":          {},
	"readMessage":          {},
	"markHost":             {},
}

// flow is the state of one request going through the pipeline.
type flow struct {
	requestType    string
	req            transaction.Request
	callback       Callback
	opts           Options
	secret         string
	localSign      bool
	checkFreshness bool
}

func (f *flow) deliver(r Response) {
	f.callback(r, withoutSecret(f.req))
}

// deliverSuccess delivers a node answer, HTML escaped unless the caller asked otherwise.
func (f *flow) deliverSuccess(r Response) {
	if f.opts.DoNotEscape {
		f.deliver(r)
		return
	}
	f.deliver(escape(r))
}

func (c *Client) process(ctx context.Context, requestType string, req transaction.Request, callback Callback, opts Options) {
	start := time.Now()
	c.metrics.IncrementCounter(metricRequests)
	defer func() { c.metrics.RecordHistogramTime(metricRequestTime, time.Since(start)) }()

	f := &flow{requestType: requestType, req: req, callback: callback, opts: opts}

	trim(f.req)

	if err := units.ConvertFields(f.req); err != nil {
		f.deliver(errorResponse(CodeRequest, err.Error()))
		return
	}
	if h := f.req.Get("referencedTransactionFullHash"); h != "" && !referencedHash.MatchString(h) {
		f.deliver(errorResponse(CodeNetwork, DescriptionInvalidHash))
		return
	}
	if transaction.IsTransactionRequest(requestType) && !f.req.Has("deadline") {
		f.req.Set("deadline", strconv.Itoa(transaction.DefaultDeadline))
	}

	if r := c.applyAccountControl(f); r != nil {
		f.deliver(r)
		return
	}

	method := c.method(f)
	if method == methodGet {
		f.req.Set("random", strconv.FormatFloat(rand.Float64(), 'f', -1, 64))
	}

	if r := c.resolveSecret(f); r != nil {
		f.deliver(r)
		return
	}

	if r := c.prepareLocalSigning(f); r != nil {
		f.deliver(r)
		return
	}

	if opts.File != nil && len(opts.File.Data) > c.cfg.MaxFileSize {
		f.deliver(errorResponse(CodeFileTooLarge, fmt.Sprintf("file is too big, the maximum is %d bytes", c.cfg.MaxFileSize)))
		return
	}

	var res Response
	if err := c.send(ctx, requestType, f.req, method, opts, &res); err != nil {
		f.deliver(c.transportFailure(err, opts))
		return
	}
	c.handleResponse(ctx, f, res)
}

// trim trims every value except the secret phrase.
func trim(req transaction.Request) {
	for k, vs := range req {
		if k == "secretPhrase" {
			continue
		}
		for i := range vs {
			vs[i] = strings.TrimSpace(vs[i])
		}
	}
}

func (c *Client) method(f *flow) string {
	_, post := postOnly[f.requestType]
	if post || f.opts.File != nil || transaction.IsTransactionRequest(f.requestType) {
		return methodPost
	}
	for _, k := range []string{"secretPhrase", "doNotSign", "adminPassword"} {
		if _, ok := f.req[k]; ok {
			return methodPost
		}
	}
	return methodGet
}

// applyAccountControl enforces and injects the mandatory phasing of the account.
func (c *Client) applyAccountControl(f *flow) Response {
	c.mu.RLock()
	ctl := c.control
	c.mu.RUnlock()
	if ctl == nil || f.requestType == "approveTransaction" || !transaction.IsTransactionRequest(f.requestType) {
		return nil
	}

	fee, err := strconv.ParseInt(orZero(f.req.Get("feeMQT")), 10, 64)
	if err != nil {
		return errorResponse(CodeRequest, fmt.Sprintf("field feeMQT: %s", units.ErrMalformedAmount))
	}
	if ctl.MaxFees > 0 && fee > ctl.MaxFees {
		return errorResponse(CodeRequest, fmt.Sprintf(
			"fee %s MTR exceeds the maximum of %s MTR allowed by the account control",
			units.FromBase(fee), units.FromBase(ctl.MaxFees)))
	}

	finish, err := strconv.ParseInt(f.req.Get("phasingFinishHeight"), 10, 32)
	if err != nil {
		return errorResponse(CodeRequest, "the account control requires a phasing finish height")
	}
	maxDuration := int64(ctl.MaxDuration)
	if maxDuration <= 0 {
		maxDuration = MaxPhasingDuration
	}
	duration := finish - int64(c.blocks.Height())
	if duration < int64(ctl.MinDuration) || duration > maxDuration {
		return errorResponse(CodeRequest, fmt.Sprintf(
			"phasing duration %d is outside of the range %d to %d blocks allowed by the account control",
			duration, ctl.MinDuration, maxDuration))
	}

	f.req.Set("phasing", "true")
	f.req.Set("phasingVotingModel", strconv.Itoa(ctl.VotingModel))
	f.req.Set("phasingQuorum", strconv.FormatUint(ctl.Quorum, 10))
	f.req.Set("phasingMinBalance", strconv.FormatUint(ctl.MinBalance, 10))
	f.req.Set("phasingMinBalanceModel", strconv.Itoa(ctl.MinBalanceModel))
	f.req.Set("phasingHolding", strconv.FormatUint(ctl.Holding, 10))
	f.req.Del("phasingWhitelisted")
	for _, a := range ctl.Whitelisted {
		f.req.Add("phasingWhitelisted", a)
	}
	return nil
}

// resolveSecret substitutes the remembered secret phrase and checks it belongs to the logged in account.
func (c *Client) resolveSecret(f *flow) Response {
	c.mu.RLock()
	remembered, accountID := c.remembered, c.accountID
	c.mu.RUnlock()

	if _, ok := f.req["secretPhrase"]; ok && remembered != "" {
		f.req.Set("secretPhrase", remembered)
	}
	f.secret = f.req.Get("secretPhrase")
	if f.secret == "" || f.req.IsTrue("calculateFee") || accountID == 0 {
		return nil
	}
	w := wallet.FromSecretPhrase(f.secret)
	if w.AccountID() != accountID {
		return errorResponse(CodeRequest, DescriptionPassphraseMismatch)
	}
	return nil
}

// prepareLocalSigning keeps the secret phrase away from the node.
func (c *Client) prepareLocalSigning(f *flow) Response {
	if f.secret == "" || f.req.IsTrue("doNotSign") || !transaction.IsTransactionRequest(f.requestType) {
		return nil
	}
	f.localSign = true
	w := wallet.FromSecretPhrase(f.secret)
	f.req.Del("secretPhrase")
	f.req.Set("publicKey", w.PublicKeyHex())

	if plain := f.req.Get("messageToEncryptToSelf"); plain != "" {
		isText := f.req.Get("messageToEncryptToSelfIsText") != "false"
		content := []byte(plain)
		if !isText {
			var err error
			if content, err = hex.DecodeString(plain); err != nil {
				return errorResponse(CodeRequest, "message to encrypt to self is not valid hex")
			}
		}
		msg, err := encryption.EncryptToSelf(f.secret, content, isText, f.req.Get("compressMessageToEncryptToSelf") != "false")
		if err != nil {
			return errorResponse(CodeRequest, err.Error())
		}
		f.req.Del("messageToEncryptToSelf")
		f.req.Set("encryptToSelfMessageData", hex.EncodeToString(msg.Data))
		f.req.Set("encryptToSelfMessageNonce", hex.EncodeToString(msg.Nonce))
		f.req.Set("messageToEncryptToSelfIsText", strconv.FormatBool(isText))
	}

	if b, ok := c.blocks.LastBlock(); ok && c.cfg.RemoteNodes {
		f.req.Set("ecBlockId", b.IDString())
		f.req.Set("ecBlockHeight", strconv.Itoa(int(b.Height)))
		f.checkFreshness = true
	}
	return nil
}

func (c *Client) transportFailure(err error, opts Options) Response {
	c.metrics.IncrementCounter(metricTransportFailure)
	description := DescriptionNetwork
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorResponse(CodeNetwork, DescriptionCanceled)
	case errors.Is(err, httpclient.ErrTimeout):
		description = DescriptionTimeout
	}
	if opts.RemoteNode != "" {
		c.nodes.Blacklist(opts.RemoteNode)
	} else {
		next := c.nodes.Reset()
		c.log.Warn(fmt.Sprintf("node failed: %s, switched to %s", err, next))
	}
	return errorResponse(CodeNetwork, description)
}

func (c *Client) handleResponse(ctx context.Context, f *flow, res Response) {
	if res.IsError() {
		f.deliver(normalizeError(res))
		return
	}

	unsigned := res.String("unsignedTransactionBytes")
	calculateFee := f.req.IsTrue("calculateFee")

	if f.localSign && unsigned != "" && !calculateFee {
		c.signAndBroadcast(ctx, f, res, unsigned)
		return
	}

	if broadcasted, ok := res["broadcasted"].(bool); ok && !broadcasted && unsigned != "" &&
		!calculateFee && f.requestType != "scheduleTransaction" {
		raw, err := hex.DecodeString(unsigned)
		if err != nil || !c.verify(f, raw, attachmentOf(res)) {
			f.deliver(errorResponse(CodeRequest, DescriptionBytesValidation))
			return
		}
	}
	f.deliverSuccess(res)
}

func (c *Client) verify(f *flow, raw []byte, attachment map[string]any) bool {
	_, publicKey := c.Account()
	v := transaction.Verifier{AccountPublicKey: publicKey, Blocks: c.blocks}
	if err := v.Check(raw, f.requestType, f.req, attachment, f.checkFreshness); err != nil {
		c.metrics.IncrementCounter(metricValidationFailure)
		c.log.Warn(fmt.Sprintf("transaction [%s] discarded: %s", f.requestType, err))
		return false
	}
	return true
}

func (c *Client) signAndBroadcast(ctx context.Context, f *flow, res Response, unsignedHex string) {
	unsigned, err := hex.DecodeString(unsignedHex)
	if err != nil {
		f.deliver(errorResponse(CodeRequest, DescriptionBytesValidation))
		return
	}
	w := wallet.FromSecretPhrase(f.secret)
	signed, err := w.SignTransaction(unsigned)
	if err != nil {
		f.deliver(errorResponse(CodeRequest, DescriptionBytesValidation))
		return
	}
	if err := c.helper.VerifyTransaction(signed, w.Public); err != nil {
		f.deliver(errorResponse(CodeRequest, DescriptionSignature))
		return
	}

	addMissingData(f.req)
	attachment := attachmentOf(res)
	v := transaction.Verifier{AccountPublicKey: w.PublicKeyHex(), Blocks: c.blocks}
	if err := v.Check(unsigned, f.requestType, f.req, attachment, f.checkFreshness); err != nil {
		c.metrics.IncrementCounter(metricValidationFailure)
		c.log.Warn(fmt.Sprintf("transaction [%s] discarded: %s", f.requestType, err))
		f.deliver(errorResponse(CodeRequest, DescriptionBytesValidation))
		return
	}

	signedHex := hex.EncodeToString(signed)
	if f.req.Get("broadcast") == "false" {
		raw := Response{
			"transactionBytes": signedHex,
			"transactionJSON":  res["transactionJSON"],
			"broadcasted":      false,
		}
		if p := prunableJSON(f.req, attachment); p != "" {
			raw["prunableAttachmentJSON"] = p
		}
		f.deliver(raw)
		return
	}

	br, err := c.broadcast(ctx, signedHex, prunableJSON(f.req, attachment), f.opts)
	if err != nil {
		f.deliver(c.transportFailure(err, f.opts))
		return
	}
	if br.IsError() {
		f.deliver(normalizeError(br))
		return
	}
	c.metrics.IncrementCounter(metricBroadcasts)
	br["transactionBytes"] = signedHex
	if _, ok := br["transactionJSON"]; !ok {
		br["transactionJSON"] = res["transactionJSON"]
	}
	f.deliverSuccess(br)
}

func (c *Client) broadcast(ctx context.Context, signedHex, prunable string, opts Options) (Response, error) {
	req := transaction.Request{}
	req.Set("transactionBytes", signedHex)
	if prunable != "" {
		req.Set("prunableAttachmentJSON", prunable)
	}
	if c.cfg.AdminPassword != "" {
		req.Set("adminPassword", c.cfg.AdminPassword)
	}
	opts.File = nil
	var res Response
	if err := c.send(ctx, "broadcastTransaction", req, methodPost, opts, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// addMissingData fills the fields the node fills in when the request omits them.
func addMissingData(req transaction.Request) {
	if !req.Has("amountMQT") {
		req.Set("amountMQT", "0")
	}
	if !req.Has("recipient") {
		req.Set("recipient", transaction.GenesisAccount)
	}
}

func attachmentOf(res Response) map[string]any {
	tx, ok := res["transactionJSON"].(map[string]any)
	if !ok {
		return nil
	}
	a, _ := tx["attachment"].(map[string]any)
	return a
}

// prunableJSON returns the attachment as JSON when the transaction carries prunable parts.
func prunableJSON(req transaction.Request, attachment map[string]any) string {
	prunable := transaction.FlagPrunablePlainMessage | transaction.FlagPrunableEncryptedMessage
	if transaction.ExpectedFlags(req)&prunable == 0 || attachment == nil {
		return ""
	}
	raw, err := json.Marshal(attachment)
	if err != nil {
		return ""
	}
	return string(raw)
}

func orZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
