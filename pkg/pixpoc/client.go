package pixpoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/financebot/financebot/internal/resilience"
)

const defaultBaseURL = "https://app.pixpoc.ai"

// Client performs call operations against the Pixpoc Call Manager API.
type Client interface {
	InitiateCall(ctx context.Context, req InitiateCallRequest) (*CallSession, error)
	GetCallDetails(ctx context.Context, callID string) (*CallDetails, error)
	GetCallAnalysis(ctx context.Context, callID string) (*Analysis, error)
	GetCallTranscript(ctx context.Context, callID string) (*Transcript, error)
	GetAccountInfo(ctx context.Context) (*Account, error)
	FullCallData(ctx context.Context, callID string) (*FullCallData, error)
}

// InitiateCallRequest describes an outbound call to place.
type InitiateCallRequest struct {
	ToNumber     string         `json:"toNumber"`
	AgentID      string         `json:"agentId"`
	ContactName  string         `json:"contactName,omitempty"`
	ContactData  map[string]any `json:"contactData,omitempty"`
	FromNumberID string         `json:"fromNumberId,omitempty"`
}

// CallSession is the flattened result of a successful call initiation.
type CallSession struct {
	CallID     string
	TrackingID string
	Status     string
	ContactID  string
	CampaignID string
}

// CallDetails holds core call fields plus the platform's remaining payload.
type CallDetails struct {
	ID         string         `json:"id"`
	TrackingID string         `json:"trackingId"`
	Status     string         `json:"status"`
	Duration   float64        `json:"duration"`
	Extra      map[string]any `json:"-"`
}

// Analysis is the AI-generated call analysis. Metadata is an opaque tree the
// agent collaborator consumes unmodified; its internals are not typed here
// because the platform evolves them freely.
type Analysis struct {
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata"`
	RawResponse string         `json:"rawResponse"`
}

// Transcript is the full text transcript of a call.
type Transcript struct {
	Transcript string         `json:"transcript"`
	Extra      map[string]any `json:"-"`
}

// Account holds account credit and usage information.
type Account struct {
	Email   string  `json:"email"`
	Credits float64 `json:"credits"`
	Used    float64 `json:"used"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// WithRetry overrides the default retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithDefaultCountryCode sets the prefix applied to phone numbers that are
// not already in E.164 form.
func WithDefaultCountryCode(code string) Option {
	return func(c *httpClient) {
		c.countryCode = code
	}
}

type httpClient struct {
	apiKey      string
	baseURL     string
	countryCode string
	http        *http.Client
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
}

// NewClient creates a Pixpoc API client. Every request carries an explicit
// 30s timeout; callers decide whether to retry beyond the built-in
// transient-error policy.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		countryCode: "+91",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// envelope is the platform's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (c *httpClient) InitiateCall(ctx context.Context, req InitiateCallRequest) (*CallSession, error) {
	req.ToNumber = NormalizeE164(req.ToNumber, c.countryCode)

	var raw struct {
		Call struct {
			ID         string `json:"id"`
			TrackingID string `json:"trackingId"`
			Status     string `json:"status"`
		} `json:"call"`
		Contact struct {
			ID string `json:"id"`
		} `json:"contact"`
		Campaign struct {
			ID string `json:"id"`
		} `json:"campaign"`
	}
	if err := c.do(ctx, "initiate call", http.MethodPost, "/api/v1/calls", req, &raw); err != nil {
		return nil, err
	}

	return &CallSession{
		CallID:     raw.Call.ID,
		TrackingID: raw.Call.TrackingID,
		Status:     raw.Call.Status,
		ContactID:  raw.Contact.ID,
		CampaignID: raw.Campaign.ID,
	}, nil
}

func (c *httpClient) GetCallDetails(ctx context.Context, callID string) (*CallDetails, error) {
	var raw struct {
		Call json.RawMessage `json:"call"`
	}
	if err := c.do(ctx, "get call details", http.MethodGet, "/api/v1/calls/"+callID, nil, &raw); err != nil {
		return nil, err
	}

	var details CallDetails
	if err := json.Unmarshal(raw.Call, &details); err != nil {
		return nil, &APIError{Op: "get call details", Message: "malformed call payload: " + err.Error()}
	}
	// Keep the rest of the payload around for the agent collaborator.
	_ = json.Unmarshal(raw.Call, &details.Extra)
	return &details, nil
}

func (c *httpClient) GetCallAnalysis(ctx context.Context, callID string) (*Analysis, error) {
	var analysis Analysis
	if err := c.do(ctx, "get call analysis", http.MethodGet, "/api/v1/calls/"+callID+"/analysis", nil, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (c *httpClient) GetCallTranscript(ctx context.Context, callID string) (*Transcript, error) {
	var data json.RawMessage
	if err := c.do(ctx, "get call transcript", http.MethodGet, "/api/v1/calls/"+callID+"/transcript", nil, &data); err != nil {
		return nil, err
	}

	var transcript Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, &APIError{Op: "get call transcript", Message: "malformed transcript payload: " + err.Error()}
	}
	_ = json.Unmarshal(data, &transcript.Extra)
	return &transcript, nil
}

func (c *httpClient) GetAccountInfo(ctx context.Context) (*Account, error) {
	var raw struct {
		Account Account `json:"account"`
	}
	if err := c.do(ctx, "get account info", http.MethodGet, "/api/v1/account", nil, &raw); err != nil {
		return nil, err
	}
	return &raw.Account, nil
}

// do issues one API request with rate limiting and transient-error retries,
// unwraps the success envelope, and decodes data into out.
func (c *httpClient) do(ctx context.Context, op, method, path string, body, out any) error {
	retryCfg := c.retry
	retryCfg.OnRetry = resilience.RetryLogger("pixpoc", op)

	data, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (json.RawMessage, error) {
		return c.doOnce(ctx, op, method, path, body)
	})
	if err != nil {
		return err
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Op: op, Message: "malformed data payload: " + err.Error()}
	}
	return nil
}

func (c *httpClient) doOnce(ctx context.Context, op, method, path string, body any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Op: op, Err: err}
		}
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{Op: op, Message: "marshal request: " + err.Error()}
		}
		reqBody = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &APIError{Op: op, Message: "create request: " + err.Error()}
	}
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "success=false"
		}
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	return env.Data, nil
}

// NormalizeE164 coerces a bare national number into E.164 using the given
// country code. Numbers already carrying a "+" pass through unchanged.
func NormalizeE164(number, countryCode string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "+") {
		return number
	}
	return fmt.Sprintf("%s%s", countryCode, strings.TrimLeft(number, "0"))
}
