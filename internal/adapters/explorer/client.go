package explorer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"whalescan/internal/adapters/explorer/ratelimit"
	"whalescan/internal/adapters/explorer/retry"
	"whalescan/internal/chains"
	"whalescan/internal/domain/whale"
	"whalescan/internal/metrics"
	"whalescan/pkg/errors"
	"whalescan/pkg/logger"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	defaultTxLimit     = 100
	maxPageSize        = 10000 // explorer hard limit per page

	nativeDecimals = 18
)

// Config configures the explorer client.
type Config struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
}

// Client talks to Etherscan-style explorer APIs. Every operation resolves
// the chain profile, paces each attempt through the per-chain limiter,
// retries transient failures, and normalizes the upstream envelope into the
// whale domain entities.
type Client struct {
	registry   *chains.Registry
	limiters   *ratelimit.ChainLimiters
	retry      *retry.Middleware
	httpClient *http.Client
	userAgent  string
	log        *logger.Logger
}

// NewClient creates a new explorer client.
func NewClient(registry *chains.Registry, limiters *ratelimit.ChainLimiters, retryMW *retry.Middleware, cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "whalescan/1.0"
	}

	return &Client{
		registry:   registry,
		limiters:   limiters,
		retry:      retryMW,
		httpClient: httpClient,
		userAgent:  userAgent,
		log:        logger.Get().With("component", "explorer"),
	}
}

// GetBalance returns the native balance of an address.
func (c *Client) GetBalance(ctx context.Context, chainID, address string) (*whale.AccountSnapshot, error) {
	profile, err := c.registry.Resolve(chainID)
	if err != nil {
		return nil, err
	}
	address, err = ValidateAddress(address)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"module":  {"account"},
		"action":  {"balance"},
		"address": {address},
		"tag":     {"latest"},
	}
	raw, err := c.request(ctx, profile, params)
	if err != nil {
		return nil, err
	}

	var weiStr string
	if err := json.Unmarshal(raw, &weiStr); err != nil {
		return nil, errors.Wrap(errors.ErrParse, "balance result is not a string")
	}
	wei, err := decimal.NewFromString(weiStr)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "balance %q is not numeric", weiStr)
	}

	return &whale.AccountSnapshot{
		Address: address,
		ChainID: profile.ID,
		Balance: wei.Shift(-nativeDecimals),
		Wei:     wei,
	}, nil
}

// GetTransactions returns up to limit native transactions for an address,
// newest first as the upstream returns them.
func (c *Client) GetTransactions(ctx context.Context, chainID, address string, limit int) ([]whale.Transaction, error) {
	profile, err := c.registry.Resolve(chainID)
	if err != nil {
		return nil, err
	}
	address, err = ValidateAddress(address)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"module":     {"account"},
		"action":     {"txlist"},
		"address":    {address},
		"startblock": {"0"},
		"endblock":   {"99999999"},
		"page":       {"1"},
		"offset":     {strconv.Itoa(pageSize(limit))},
		"sort":       {"desc"},
	}
	raw, err := c.request(ctx, profile, params)
	if err != nil {
		if errors.Is(err, errNoRecords) {
			return []whale.Transaction{}, nil
		}
		return nil, err
	}

	var rows []rawTransaction
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrParse, "txlist result is not a transaction array")
	}

	txs := make([]whale.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.normalize()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// GetTokenTransfers returns up to limit token transfer events for an address,
// amounts adjusted by each transfer's declared decimals.
func (c *Client) GetTokenTransfers(ctx context.Context, chainID, address string, limit int) ([]whale.TokenTransfer, error) {
	profile, err := c.registry.Resolve(chainID)
	if err != nil {
		return nil, err
	}
	address, err = ValidateAddress(address)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"module":  {"account"},
		"action":  {"tokentx"},
		"address": {address},
		"page":    {"1"},
		"offset":  {strconv.Itoa(pageSize(limit))},
		"sort":    {"desc"},
	}
	raw, err := c.request(ctx, profile, params)
	if err != nil {
		if errors.Is(err, errNoRecords) {
			return []whale.TokenTransfer{}, nil
		}
		return nil, err
	}

	var rows []rawTokenTransfer
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrParse, "tokentx result is not a transfer array")
	}

	transfers := make([]whale.TokenTransfer, 0, len(rows))
	for _, row := range rows {
		tr, err := row.normalize()
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, tr)
	}
	return transfers, nil
}

// GetGasOracle returns the explorer gas tracker tiers.
func (c *Client) GetGasOracle(ctx context.Context, chainID string) (*whale.GasOracle, error) {
	profile, err := c.registry.Resolve(chainID)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"module": {"gastracker"},
		"action": {"gasoracle"},
	}
	raw, err := c.request(ctx, profile, params)
	if err != nil {
		return nil, err
	}

	var res struct {
		SafeGasPrice    string `json:"SafeGasPrice"`
		ProposeGasPrice string `json:"ProposeGasPrice"`
		FastGasPrice    string `json:"FastGasPrice"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(errors.ErrParse, "gasoracle result shape mismatch")
	}

	safe, err1 := decimal.NewFromString(res.SafeGasPrice)
	standard, err2 := decimal.NewFromString(res.ProposeGasPrice)
	fast, err3 := decimal.NewFromString(res.FastGasPrice)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, errors.Wrap(errors.ErrParse, "gasoracle tiers are not numeric")
	}

	return &whale.GasOracle{
		ChainID:  profile.ID,
		Safe:     safe,
		Standard: standard,
		Fast:     fast,
	}, nil
}

// GetNativePrice returns the fiat-quoted price of the chain's native token.
// The stats action and result field names differ per chain (ethprice/ethusd
// vs bnbprice/bnbusd), so fields are matched by suffix.
func (c *Client) GetNativePrice(ctx context.Context, chainID string) (*whale.NativePrice, error) {
	profile, err := c.registry.Resolve(chainID)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"module": {"stats"},
		"action": {profile.PriceAction},
	}
	raw, err := c.request(ctx, profile, params)
	if err != nil {
		return nil, err
	}

	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(errors.ErrParse, "price result shape mismatch")
	}

	price := &whale.NativePrice{ChainID: profile.ID, USD: decimal.Zero, BTC: decimal.Zero}
	for key, val := range fields {
		d, err := decimal.NewFromString(val)
		if err != nil {
			continue
		}
		switch {
		case strings.HasSuffix(key, "usd"):
			price.USD = d
		case strings.HasSuffix(key, "btc"):
			price.BTC = d
		}
	}
	if price.USD.IsZero() && price.BTC.IsZero() {
		return nil, errors.Wrap(errors.ErrParse, "price result carried no usd/btc quote")
	}
	return price, nil
}

// GetContractABI returns the verified contract ABI as a JSON string.
func (c *Client) GetContractABI(ctx context.Context, chainID, address string) (string, error) {
	profile, err := c.registry.Resolve(chainID)
	if err != nil {
		return "", err
	}
	address, err = ValidateAddress(address)
	if err != nil {
		return "", err
	}

	params := url.Values{
		"module":  {"contract"},
		"action":  {"getabi"},
		"address": {address},
	}
	raw, err := c.request(ctx, profile, params)
	if err != nil {
		return "", err
	}

	var abi string
	if err := json.Unmarshal(raw, &abi); err != nil {
		return "", errors.Wrap(errors.ErrParse, "abi result is not a string")
	}
	return abi, nil
}

// errNoRecords distinguishes a legitimately empty account history from an
// upstream rejection; list operations translate it into an empty slice.
var errNoRecords = errors.New("no records found")

// envelope is the status/result wrapper every explorer response uses.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// request performs a rate-limited, retried GET against the chain's API and
// unwraps the envelope, classifying failures per the error taxonomy.
func (c *Client) request(ctx context.Context, profile chains.Profile, params url.Values) (json.RawMessage, error) {
	action := params.Get("action")

	var result json.RawMessage
	err := c.retry.Do(ctx, func() error {
		waitStart := time.Now()
		if err := c.limiters.Wait(ctx, profile.ID); err != nil {
			return err
		}
		metrics.RateLimiterWait.WithLabelValues(profile.ID).Observe(time.Since(waitStart).Seconds())

		start := time.Now()
		raw, err := c.doRequest(ctx, profile, params)
		metrics.RecordExplorerAPICall(profile.ID, action, time.Since(start), err)
		if err != nil {
			return err
		}
		result = raw
		return nil
	})
	if err != nil {
		if !errors.Is(err, errNoRecords) {
			c.log.Warnw("explorer request failed",
				"chain", profile.ID,
				"action", action,
				"error", err,
			)
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, profile chains.Profile, params url.Values) (json.RawMessage, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	// The v2 endpoint multiplexes chains through one URL.
	query.Set("chainid", strconv.FormatInt(profile.ChainID, 10))
	if profile.APIKey != "" {
		query.Set("apikey", profile.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profile.APIURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create explorer request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(errors.ErrUpstreamUnavailable, "%s: %v", profile.Name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUpstreamUnavailable, "%s: read body: %v", profile.Name, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.Wrapf(errors.ErrRateLimited, "%s: http 429", profile.Name)
	case resp.StatusCode >= 500:
		return nil, errors.Wrapf(errors.ErrUpstreamUnavailable, "%s: http %d", profile.Name, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "%s: http %d: %s", profile.Name, resp.StatusCode, truncate(payload))
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "%s: %v", profile.Name, err)
	}

	if env.Status == "0" {
		return nil, classifyAPIError(profile, env)
	}
	if len(env.Result) == 0 {
		return nil, errors.Wrapf(errors.ErrParse, "%s: envelope without result", profile.Name)
	}
	return env.Result, nil
}

// classifyAPIError maps a status-0 envelope onto the taxonomy. The explorer
// reports an empty history through the same envelope as real rejections, so
// the benign messages are matched explicitly.
func classifyAPIError(profile chains.Profile, env envelope) error {
	msg := env.Message
	var detail string
	_ = json.Unmarshal(env.Result, &detail)
	if detail == "" {
		detail = msg
	}

	lower := strings.ToLower(msg + " " + detail)
	switch {
	case strings.Contains(lower, "no transactions found"),
		strings.Contains(lower, "no records found"),
		strings.Contains(lower, "no token transfers found"):
		return errNoRecords
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "max calls"):
		return errors.Wrapf(errors.ErrRateLimited, "%s: %s", profile.Name, detail)
	default:
		return errors.Wrapf(errors.ErrInvalidRequest, "%s: %s", profile.Name, detail)
	}
}

// rawTransaction mirrors the explorer txlist row; every field arrives as a string.
type rawTransaction struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	TimeStamp       string `json:"timeStamp"`
	BlockNumber     string `json:"blockNumber"`
	IsError         string `json:"isError"`
	TxReceiptStatus string `json:"txreceipt_status"`
}

func (r rawTransaction) normalize() (whale.Transaction, error) {
	wei, err := decimal.NewFromString(r.Value)
	if err != nil {
		return whale.Transaction{}, errors.Wrapf(errors.ErrParse, "tx %s: value %q", r.Hash, r.Value)
	}
	ts, err := strconv.ParseInt(r.TimeStamp, 10, 64)
	if err != nil {
		return whale.Transaction{}, errors.Wrapf(errors.ErrParse, "tx %s: timestamp %q", r.Hash, r.TimeStamp)
	}
	block, err := strconv.ParseInt(r.BlockNumber, 10, 64)
	if err != nil {
		return whale.Transaction{}, errors.Wrapf(errors.ErrParse, "tx %s: block %q", r.Hash, r.BlockNumber)
	}

	return whale.Transaction{
		Hash:        r.Hash,
		From:        strings.ToLower(r.From),
		To:          strings.ToLower(r.To),
		Value:       wei.Shift(-nativeDecimals),
		Timestamp:   time.Unix(ts, 0).UTC(),
		BlockNumber: block,
		Success:     r.IsError != "1" && r.TxReceiptStatus != "0",
	}, nil
}

// rawTokenTransfer mirrors the explorer tokentx row.
type rawTokenTransfer struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	ContractAddress string `json:"contractAddress"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
	Value           string `json:"value"`
	TimeStamp       string `json:"timeStamp"`
	BlockNumber     string `json:"blockNumber"`
}

func (r rawTokenTransfer) normalize() (whale.TokenTransfer, error) {
	units, err := decimal.NewFromString(r.Value)
	if err != nil {
		return whale.TokenTransfer{}, errors.Wrapf(errors.ErrParse, "transfer %s: value %q", r.Hash, r.Value)
	}
	decimals, err := strconv.ParseInt(r.TokenDecimal, 10, 32)
	if err != nil {
		return whale.TokenTransfer{}, errors.Wrapf(errors.ErrParse, "transfer %s: decimals %q", r.Hash, r.TokenDecimal)
	}
	ts, err := strconv.ParseInt(r.TimeStamp, 10, 64)
	if err != nil {
		return whale.TokenTransfer{}, errors.Wrapf(errors.ErrParse, "transfer %s: timestamp %q", r.Hash, r.TimeStamp)
	}
	block, err := strconv.ParseInt(r.BlockNumber, 10, 64)
	if err != nil {
		return whale.TokenTransfer{}, errors.Wrapf(errors.ErrParse, "transfer %s: block %q", r.Hash, r.BlockNumber)
	}

	return whale.TokenTransfer{
		Hash:            r.Hash,
		From:            strings.ToLower(r.From),
		To:              strings.ToLower(r.To),
		ContractAddress: strings.ToLower(r.ContractAddress),
		TokenSymbol:     r.TokenSymbol,
		Amount:          units.Shift(-int32(decimals)),
		Timestamp:       time.Unix(ts, 0).UTC(),
		BlockNumber:     block,
	}, nil
}

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultTxLimit
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func truncate(payload []byte) string {
	const max = 200
	s := string(payload)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
