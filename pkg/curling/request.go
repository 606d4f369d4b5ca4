package curling

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/luizaranda/curling/pkg/log"
	"github.com/luizaranda/curling/pkg/transport"
)

// Request is a reusable HTTP request builder. Setters return the Request
// so calls can be chained:
//
//	res, err := req.SetMethod(curling.MethodPost).
//		SetURL("https://example.com/items").
//		AddHeader("Content-Type: application/json").
//		SetBody([]byte(`{"name":"x"}`)).
//		Send(ctx)
//
// Setters don't return errors. The first invalid call is remembered and
// returned by Err and by the next Send; later setters are ignored until
// Reset.
//
// A Request must not be copied or used from several goroutines at once.
type Request struct {
	noCopy noCopy

	rt     *runtime
	closed bool
	err    error
	opts   defaults

	method          Method
	rawURL          string
	args            []string
	pathParams      map[string]string
	headers         []headerField
	body            []byte
	downloadPath    string
	timeout         time.Duration
	connectTimeout  time.Duration
	followRedirects bool

	authSet    bool
	authUser   string
	authPass   string
	authMethod AuthMethod

	proxy           *url.URL
	proxyUser       string
	proxyPass       string
	proxyAuthSet    bool
	proxyAuthMethod AuthMethod

	cookiePath    string
	userAgent     string
	form          []formPart
	verbose       bool
	httpVersion   HTTPVersion
	progressFn    ProgressFunc
	maxRecvSpeed  int64
	maxSendSpeed  int64
	insecure      bool
	logger        log.Logger
	targetID      string
	requestHooks  []transport.RequestHook
	responseHooks []transport.ResponseHook
}

type headerField struct {
	name  string
	value string
}

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// New returns a Request with default settings. It fails with
// ErrInitialization when the shared transport runtime can't be set up.
// Close must be called once the Request is no longer needed.
func New(opts ...Option) (*Request, error) {
	d := defaults{cookiePath: DefaultCookiePath}
	for _, opt := range opts {
		opt(&d)
	}

	rt, err := acquireRuntime()
	if err != nil {
		return nil, err
	}

	r := &Request{rt: rt, opts: d, cookiePath: d.cookiePath, logger: d.logger}
	r.Reset()
	return r, nil
}

// Close releases the Request. Further use fails with ErrLogic. Close is
// idempotent.
func (r *Request) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.rt = nil
	releaseRuntime()
	return nil
}

// Err returns the first error recorded by a setter since the last Reset.
func (r *Request) Err() error {
	if r.closed {
		return fmt.Errorf("%w: request is closed", ErrLogic)
	}
	return r.err
}

// Reset restores the defaults so the Request can be reused. The cookie path
// and the logger are kept. Send calls Reset after every success.
func (r *Request) Reset() *Request {
	*r = Request{
		rt:         r.rt,
		closed:     r.closed,
		opts:       r.opts,
		method:     MethodGet,
		timeout:    r.opts.timeout,
		userAgent:  r.opts.userAgent,
		cookiePath: r.cookiePath,
		logger:     r.logger,
	}
	return r
}

// fail records err unless an earlier error is already pending.
func (r *Request) fail(err error) *Request {
	if r.err == nil {
		r.err = err
	}
	return r
}

// ok reports whether setters should still apply.
func (r *Request) ok() bool {
	return r.err == nil && !r.closed
}

// SetMethod sets the request method. Once a request is multipart, only
// MethodMIME is accepted until Reset.
func (r *Request) SetMethod(m Method) *Request {
	if !r.ok() {
		return r
	}
	if r.method == MethodMIME && m != MethodMIME {
		return r.fail(fmt.Errorf("%w: cannot change method of a multipart request to %s", ErrLogic, m))
	}
	if m.wire() == "" {
		return r.fail(fmt.Errorf("%w: unsupported method %s", ErrLogic, m))
	}
	r.method = m
	return r
}

// SetURL sets the target URL. It may contain {name} placeholders filled by
// SetPathParam and a query string extended by AddArg.
func (r *Request) SetURL(u string) *Request {
	if r.ok() {
		r.rawURL = u
	}
	return r
}

// AddArg appends key=value to the query string, both percent-encoded.
func (r *Request) AddArg(key, value string) *Request {
	if r.ok() {
		r.args = append(r.args, escapeArg(key)+"="+escapeArg(value))
	}
	return r
}

// AddRawArg appends arg to the query string as is.
func (r *Request) AddRawArg(arg string) *Request {
	if r.ok() {
		r.args = append(r.args, arg)
	}
	return r
}

// SetPathParam sets the value replacing {name} in the URL path.
func (r *Request) SetPathParam(name, value string) *Request {
	if !r.ok() {
		return r
	}
	if r.pathParams == nil {
		r.pathParams = map[string]string{}
	}
	r.pathParams[name] = value
	return r
}

// AddHeader adds a "Name: value" header line. Repeated names are all sent.
func (r *Request) AddHeader(line string) *Request {
	if !r.ok() {
		return r
	}

	name, value, found := strings.Cut(line, ":")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !found || name == "" {
		return r.fail(fmt.Errorf("%w: %q is not a \"Name: value\" line", ErrHeader, line))
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return r.fail(fmt.Errorf("%w: invalid name %q", ErrHeader, name))
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return r.fail(fmt.Errorf("%w: invalid value for %s", ErrHeader, name))
	}

	r.headers = append(r.headers, headerField{name: name, value: value})
	return r
}

func (r *Request) setHeader(name, value string) {
	kept := r.headers[:0]
	for _, h := range r.headers {
		if !strings.EqualFold(h.name, name) {
			kept = append(kept, h)
		}
	}
	r.headers = append(kept, headerField{name: name, value: value})
}

// SetBody sets the payload. It is sent with POST, PUT and PATCH only.
func (r *Request) SetBody(body []byte) *Request {
	if r.ok() {
		r.body = body
	}
	return r
}

// SetJSONBody marshals v as the payload and sets Content-Type to
// application/json.
func (r *Request) SetJSONBody(v any) *Request {
	if !r.ok() {
		return r
	}
	b, err := json.Marshal(v)
	if err != nil {
		return r.fail(fmt.Errorf("%w: encoding JSON body: %v", ErrLogic, err))
	}
	r.body = b
	r.setHeader("Content-Type", "application/json")
	return r
}

// DownloadToFile streams the response body into path instead of memory.
// The file is truncated on each attempt.
func (r *Request) DownloadToFile(path string) *Request {
	if r.ok() {
		r.downloadPath = path
	}
	return r
}

// SetTimeout bounds a whole attempt, body included. Zero means no limit.
func (r *Request) SetTimeout(d time.Duration) *Request {
	if r.ok() {
		r.timeout = d
	}
	return r
}

// SetConnectTimeout bounds connection establishment.
func (r *Request) SetConnectTimeout(d time.Duration) *Request {
	if r.ok() {
		r.connectTimeout = d
	}
	return r
}

// SetFollowRedirects makes Send follow 3xx responses, up to 10 hops.
func (r *Request) SetFollowRedirects(follow bool) *Request {
	if r.ok() {
		r.followRedirects = follow
	}
	return r
}

// SetAuthToken adds an "Authorization: Bearer <token>" header.
func (r *Request) SetAuthToken(token string) *Request {
	return r.AddHeader("Authorization: Bearer " + token)
}

// SetHTTPAuth sets server credentials, sent with the scheme chosen by
// SetHTTPAuthMethod (Basic by default).
func (r *Request) SetHTTPAuth(user, pass string) *Request {
	if r.ok() {
		r.authSet, r.authUser, r.authPass = true, user, pass
	}
	return r
}

// SetHTTPAuthMethod selects the server authentication scheme.
func (r *Request) SetHTTPAuthMethod(m AuthMethod) *Request {
	if !r.ok() {
		return r
	}
	if m != AuthBasic && m != AuthDigest && m != AuthNTLM {
		return r.fail(fmt.Errorf("%w: unsupported auth method %s", ErrLogic, m))
	}
	r.authMethod = m
	return r
}

// SetProxy routes the request through proxy, given as "host:port" or a
// URL. An empty string removes the proxy.
func (r *Request) SetProxy(proxy string) *Request {
	if !r.ok() {
		return r
	}
	if proxy == "" {
		r.proxy = nil
		return r
	}
	if !strings.Contains(proxy, "://") {
		proxy = "http://" + proxy
	}
	u, err := url.Parse(proxy)
	if err != nil || u.Host == "" {
		return r.fail(fmt.Errorf("%w: invalid proxy %q", ErrLogic, proxy))
	}
	r.proxy = u
	return r
}

// SetProxyAuth sets the proxy credentials.
func (r *Request) SetProxyAuth(user, pass string) *Request {
	if r.ok() {
		r.proxyAuthSet, r.proxyUser, r.proxyPass = true, user, pass
	}
	return r
}

// SetProxyAuthMethod selects the proxy authentication scheme. Only
// AuthBasic is supported.
func (r *Request) SetProxyAuthMethod(m AuthMethod) *Request {
	if !r.ok() {
		return r
	}
	if m != AuthBasic {
		return r.fail(fmt.Errorf("%w: proxy auth method %s is not supported", ErrLogic, m))
	}
	r.proxyAuthMethod = m
	return r
}

// SetCookiePath sets the cookie file read before and written after each
// transfer. It survives Reset.
func (r *Request) SetCookiePath(path string) *Request {
	if r.ok() {
		r.cookiePath = path
	}
	return r
}

// SetUserAgent sets the User-Agent header.
func (r *Request) SetUserAgent(agent string) *Request {
	if r.ok() {
		r.userAgent = agent
	}
	return r
}

// AddFormField adds a multipart text field and makes the request a
// MethodMIME request.
func (r *Request) AddFormField(name, value string) *Request {
	if !r.ok() {
		return r
	}
	if name == "" {
		return r.fail(fmt.Errorf("%w: empty field name", ErrMultipart))
	}
	r.form = append(r.form, formPart{name: name, value: value})
	r.method = MethodMIME
	return r
}

// AddFormFile adds a multipart file part read from path and makes the
// request a MethodMIME request.
func (r *Request) AddFormFile(name, path string) *Request {
	if !r.ok() {
		return r
	}
	if name == "" {
		return r.fail(fmt.Errorf("%w: empty field name", ErrMultipart))
	}
	if err := checkFormFile(path); err != nil {
		return r.fail(err)
	}
	r.form = append(r.form, formPart{name: name, path: path})
	r.method = MethodMIME
	return r
}

// EnableVerbose logs connection and header traffic at info level.
func (r *Request) EnableVerbose(verbose bool) *Request {
	if r.ok() {
		r.verbose = verbose
	}
	return r
}

// SetHTTPVersion selects the protocol version. HTTPVersion3 is rejected.
func (r *Request) SetHTTPVersion(v HTTPVersion) *Request {
	if !r.ok() {
		return r
	}
	switch v {
	case HTTPVersionDefault, HTTPVersion1_1, HTTPVersion2:
		r.httpVersion = v
		return r
	default:
		return r.fail(fmt.Errorf("%w: %v: %s", ErrLogic, transport.ErrUnsupportedProtocol, v))
	}
}

// SetProgressCallback installs fn, called as bytes are transferred.
func (r *Request) SetProgressCallback(fn ProgressFunc) *Request {
	if r.ok() {
		r.progressFn = fn
	}
	return r
}

// SetMaxRecvSpeed limits the download to bytesPerSec. Zero removes the
// limit.
func (r *Request) SetMaxRecvSpeed(bytesPerSec int64) *Request {
	if !r.ok() {
		return r
	}
	if bytesPerSec < 0 {
		return r.fail(fmt.Errorf("%w: negative receive speed %d", ErrLogic, bytesPerSec))
	}
	r.maxRecvSpeed = bytesPerSec
	return r
}

// SetMaxSendSpeed limits the upload to bytesPerSec. Zero removes the limit.
func (r *Request) SetMaxSendSpeed(bytesPerSec int64) *Request {
	if !r.ok() {
		return r
	}
	if bytesPerSec < 0 {
		return r.fail(fmt.Errorf("%w: negative send speed %d", ErrLogic, bytesPerSec))
	}
	r.maxSendSpeed = bytesPerSec
	return r
}

// SetInsecureSkipVerify disables TLS certificate verification.
func (r *Request) SetInsecureSkipVerify(skip bool) *Request {
	if r.ok() {
		r.insecure = skip
	}
	return r
}

// SetLogger replaces the logger given to New. It survives Reset.
func (r *Request) SetLogger(l log.Logger) *Request {
	if r.ok() {
		r.logger = l
	}
	return r
}

// SetTargetID tags metrics and spans of the transfer with id.
func (r *Request) SetTargetID(id string) *Request {
	if r.ok() {
		r.targetID = id
	}
	return r
}

// AddRequestHook runs hook before every round trip, redirects included.
func (r *Request) AddRequestHook(hook transport.RequestHook) *Request {
	if r.ok() && hook != nil {
		r.requestHooks = append(r.requestHooks, hook)
	}
	return r
}

// AddResponseHook runs hook after every round trip, failed ones included.
func (r *Request) AddResponseHook(hook transport.ResponseHook) *Request {
	if r.ok() && hook != nil {
		r.responseHooks = append(r.responseHooks, hook)
	}
	return r
}
