// Package radioref is a client for the radio database's SOAP-style RPC
// interface. The service publishes no WSDL worth trusting; requests are a
// fixed envelope template and responses are parsed downstream with
// markup-aware extraction.
package radioref

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/signalwatch/freqscan-cli/internal/faults"
)

const (
	defaultBaseURL = "http://api.radioreference.com/soap2/"
	defaultAppKey  = "88969092"

	// apiVersion and requestStyle are fixed fields of the auth block.
	apiVersion   = "latest"
	requestStyle = "rpc"
)

// Remote operation names. Each maps to one logical lookup.
const (
	OpGetZipcodeInfo   = "getZipcodeInfo"
	OpGetCountyInfo    = "getCountyInfo"
	OpGetStateInfo     = "getStateInfo"
	OpGetSubcatFreqs   = "getSubcatFreqs"
	OpGetTrsDetails    = "getTrsDetails"
	OpGetTrsSites      = "getTrsSites"
	OpGetTrsTalkgroups = "getTrsTalkgroups"
)

// Credentials are the caller's provider account. The application key rides
// alongside them in every request.
type Credentials struct {
	Username string
	Password string
}

// Client issues raw RPC calls. It has no retry logic; the fetcher bounds
// concurrency and decides whether an individual failure is fatal.
type Client interface {
	Call(ctx context.Context, operation string, creds Credentials, paramXML string) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default endpoint.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithAppKey overrides the default application key.
func WithAppKey(key string) Option {
	return func(c *httpClient) {
		c.appKey = key
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default outbound request rate.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	baseURL string
	appKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an RPC client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		appKey:  defaultAppKey,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(20), 20),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// envelopeTemplate embeds the operation name twice: once in the outer
// wrapper element and once wrapping the auth leaf. paramXML is interpolated
// verbatim; values must already be escaped via Escape.
const envelopeTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="http://api.radioreference.com/soap2/">
<SOAP-ENV:Body>
<ns1:%[1]s>
%[2]s<authInfo><appKey>%[3]s</appKey><username>%[4]s</username><password>%[5]s</password><version>%[6]s</version><style>%[7]s</style></authInfo>
</ns1:%[1]s>
</SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

func (c *httpClient) Call(ctx context.Context, operation string, creds Credentials, paramXML string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "radioref: rate limit")
	}

	envelope := fmt.Sprintf(envelopeTemplate,
		operation, paramXML, Escape(c.appKey), Escape(creds.Username), Escape(creds.Password), apiVersion, requestStyle)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(envelope))
	if err != nil {
		return "", eris.Wrap(err, "radioref: build request")
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", operation)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &faults.TransportError{Op: "radioref: call " + operation, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &faults.TransportError{Op: "radioref: read " + operation, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &faults.TransportError{Op: "radioref: call " + operation, StatusCode: resp.StatusCode}
	}

	return string(body), nil
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape XML-escapes a parameter value for interpolation into a request
// fragment.
func Escape(s string) string {
	return escaper.Replace(s)
}
