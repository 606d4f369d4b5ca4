package curling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/uuid"

	"github.com/luizaranda/curling/pkg/log"
	"github.com/luizaranda/curling/pkg/telemetry"
	"github.com/luizaranda/curling/pkg/transport"
)

const (
	_retryMetric        = "curling.request.retry.count"
	_responseSizeMetric = "curling.response.size"

	_maxRedirects = 10
)

// Send performs the request once. It is SendWithRetry(ctx, 1, 0).
func (r *Request) Send(ctx context.Context) (*Response, error) {
	return r.SendWithRetry(ctx, 1, 0)
}

// SendWithRetry performs the request up to attempts times. Attempts failing
// with a *RequestError are retried after baseDelay, doubling on each retry.
// Any other error, an abort from the progress callback or a done ctx ends
// the loop at once. The last error is returned.
//
// A successful Send resets the Request.
func (r *Request) SendWithRetry(ctx context.Context, attempts int, baseDelay time.Duration) (*Response, error) {
	if r.closed {
		return nil, fmt.Errorf("%w: request is closed", ErrLogic)
	}
	if attempts <= 0 {
		return nil, fmt.Errorf("%w: attempts must be at least 1, got %d", ErrLogic, attempts)
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.method == MethodMIME {
		if err := checkFormParts(r.form); err != nil {
			return nil, err
		}
	}

	u, err := buildURL(r.rawURL, r.pathParams, r.args)
	if err != nil {
		if errors.Is(err, ErrLogic) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: invalid URL %q: %v", ErrLogic, r.rawURL, err)
	}

	base, err := r.rt.transport(r.transportConfig())
	if err != nil {
		return nil, err
	}

	jar, err := loadCookieJar(r.cookiePath)
	if err != nil {
		return nil, &RequestError{Method: r.method.wire(), URL: u.Redacted(), Err: err}
	}

	requestID := uuid.Must(uuid.NewV4()).String()
	logger := r.attemptLogger(ctx).With(
		log.String("request_id", requestID),
		log.String("method", r.method.wire()),
		log.String("url", u.Redacted()),
	)

	ctx, span := startSpan(ctx, r.method.wire(), u, requestID, r.targetID)
	defer span.End()

	client := &http.Client{
		Transport:     r.roundTripChain(ctx).Apply(base),
		Timeout:       r.timeout,
		Jar:           jar,
		CheckRedirect: r.checkRedirect,
	}

	attempt := 0
	var lastErr error

	operation := func() (*Response, error) {
		attempt++
		res, err := r.do(ctx, client, u, attempt)
		if saveErr := jar.save(); saveErr != nil {
			logger.Warn("saving cookies failed", log.Err(saveErr))
		}
		if err == nil {
			return res, nil
		}

		logger.Warn("attempt failed", log.Int("attempt", attempt), log.Err(err))
		lastErr = err

		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Aborted() || ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("retrying request",
			log.Int("attempt", attempt+1),
			log.Duration("wait", wait),
			log.Err(err),
		)
		telemetry.Incr(ctx, _retryMetric, r.metricTags())
		recordRetry(span, attempt, err, wait)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(exponentialBackOff(baseDelay), uint64(attempts-1)), ctx)
	res, err := backoff.RetryNotifyWithData(operation, b, notify)
	if err != nil && lastErr != nil {
		// A done ctx ends the wait with ctx.Err(); the attempt error says more.
		err = lastErr
	}

	recordResult(span, attempt, res, err)
	if err != nil {
		return nil, err
	}

	logger.Debug("request sent", log.Int("attempt", attempt), log.Int("status", res.StatusCode))
	r.Reset()
	return res, nil
}

// exponentialBackOff waits base, 2*base, 4*base... without jitter.
func exponentialBackOff(base time.Duration) backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Duration(math.MaxInt64),
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// do runs a single attempt.
func (r *Request) do(ctx context.Context, client *http.Client, u *url.URL, attempt int) (*Response, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	prog := newProgress(r.progressFn, cancel)
	prog.limit(ctx, r.maxRecvSpeed, r.maxSendSpeed)

	req, err := r.newHTTPRequest(ctx, u, prog)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		// Stops the multipart writer if the transport never drained the body.
		defer req.Body.Close()
	}

	var out io.Writer
	var body bytes.Buffer
	var file *os.File
	if r.downloadPath != "" {
		if file, err = os.Create(r.downloadPath); err != nil {
			return nil, r.requestError(u, attempt, 0, err)
		}
		defer file.Close()
		out = file
	} else {
		out = &body
	}

	res, err := client.Do(req)
	if err != nil {
		status := 0
		if res != nil {
			status = res.StatusCode
		}
		return nil, r.requestError(u, attempt, status, abortCause(ctx, err))
	}
	defer res.Body.Close()

	prog.setDownloadTotal(res.ContentLength)
	n, err := io.Copy(out, prog.reader(res.Body, false))
	if err != nil {
		return nil, r.requestError(u, attempt, res.StatusCode, abortCause(ctx, err))
	}
	if file != nil {
		if err := file.Close(); err != nil {
			return nil, r.requestError(u, attempt, res.StatusCode, err)
		}
	}

	telemetry.Histogram(ctx, _responseSizeMetric, float64(n), r.metricTags())

	var hc HeaderCollector
	fmt.Fprintf(&hc, "%s %s\r\n", res.Proto, res.Status)
	_ = res.Header.Write(&hc)

	return &Response{
		StatusCode: res.StatusCode,
		Body:       body.Bytes(),
		Header:     hc.Header(),
	}, nil
}

// newHTTPRequest builds the request of one attempt. Bodies are rebuilt so
// every attempt, redirect or auth round trip sends the full payload.
func (r *Request) newHTTPRequest(ctx context.Context, u *url.URL, prog *progress) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.method.wire(), u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogic, err)
	}

	for _, h := range r.headers {
		if http.CanonicalHeaderKey(h.name) == "Host" {
			req.Host = h.value
			continue
		}
		req.Header.Add(h.name, h.value)
	}

	switch {
	case r.method == MethodMIME:
		boundary := newBoundary()
		getBody := func() (io.ReadCloser, error) {
			prog.restartUpload()
			body, _, err := newMultipartBody(r.form, boundary)
			if err != nil {
				return nil, err
			}
			return readCloser{Reader: prog.reader(body, true), Closer: body}, nil
		}
		body, contentType, err := newMultipartBody(r.form, boundary)
		if err != nil {
			return nil, err
		}
		req.Body = readCloser{Reader: prog.reader(body, true), Closer: body}
		req.GetBody = getBody
		req.ContentLength = -1
		req.Header.Set("Content-Type", contentType)

	case r.method.sendsBody():
		payload := r.body
		getBody := func() (io.ReadCloser, error) {
			prog.restartUpload()
			return io.NopCloser(prog.reader(bytes.NewReader(payload), true)), nil
		}
		req.Body, _ = getBody()
		req.GetBody = getBody
		req.ContentLength = int64(len(payload))
		prog.setUploadTotal(int64(len(payload)))
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}

	return req, nil
}

func (r *Request) requestError(u *url.URL, attempt, status int, err error) *RequestError {
	return &RequestError{
		Method:     r.method.wire(),
		URL:        u.Redacted(),
		StatusCode: status,
		Attempts:   attempt,
		Err:        err,
	}
}

// abortCause makes err match ErrAbortedByCallback when the progress callback
// cancelled ctx.
func abortCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrAbortedByCallback) && !errors.Is(err, ErrAbortedByCallback) {
		return fmt.Errorf("%w: %v", ErrAbortedByCallback, err)
	}
	return err
}

func (r *Request) checkRedirect(_ *http.Request, via []*http.Request) error {
	if !r.followRedirects {
		return http.ErrUseLastResponse
	}
	if len(via) >= _maxRedirects {
		return fmt.Errorf("stopped after %d redirects", _maxRedirects)
	}
	return nil
}

func (r *Request) transportConfig() transport.Config {
	cfg := transport.Config{
		ConnectTimeout:     r.connectTimeout,
		Protocol:           r.httpVersion.protocol(),
		InsecureSkipVerify: r.insecure,
	}
	if r.proxy != nil {
		proxy := *r.proxy
		if r.proxyAuthSet {
			proxy.User = url.UserPassword(r.proxyUser, r.proxyPass)
		}
		cfg.Proxy = &proxy
	}
	return cfg
}

// roundTripChain decorates the shared transport for this Request. The
// first decorator sees the request first.
func (r *Request) roundTripChain(ctx context.Context) transport.RoundTripChain {
	chain := transport.RoundTripChain{
		transport.UserAgentDecorator(r.userAgent),
		transport.TargetDecorator(r.targetID),
		transport.HookDecorator(r.requestHooks, r.responseHooks),
	}
	if r.authSet {
		chain = append(chain, r.authMethod.decorator(r.authUser, r.authPass))
	}
	chain = append(chain, transport.TraceDecorator(false))
	if r.verbose {
		chain = append(chain, transport.VerboseDecorator(r.verboseLogger(ctx)))
	}
	return append(chain, transport.OpenTelemetryDecorator())
}

func (r *Request) metricTags() []string {
	tags := telemetry.Tags("method", r.method.wire())
	if r.targetID != "" {
		tags = append(tags, "target_id:"+r.targetID)
	}
	return tags
}

func (r *Request) attemptLogger(ctx context.Context) log.Logger {
	if r.logger != nil {
		return r.logger
	}
	if l := log.FromContext(ctx); l != nil {
		return l
	}
	return log.DefaultLogger
}

func (r *Request) verboseLogger(ctx context.Context) log.Logger {
	if r.logger != nil {
		return r.logger
	}
	if l := log.FromContext(ctx); l != nil {
		return l
	}
	return log.NewConsoleLogger(os.Stderr, log.InfoLevel)
}
