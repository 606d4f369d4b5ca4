package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/luizaranda/curling/pkg/curling"
)

var errUsage = errors.New("usage error")

// options is the parsed command line.
type options struct {
	url string

	method      string
	headers     []string
	data        []string
	json        string
	form        []string
	get         bool
	output      string
	user        string
	auth        string
	bearer      string
	proxy       string
	proxyUser   string
	location    bool
	verbose     bool
	insecure    bool
	cookieJar   string
	userAgent   string
	http11      bool
	http2       bool
	http3       bool
	retry       int
	retryDelay  time.Duration
	maxTime     time.Duration
	connTimeout time.Duration
	limitRate   int64
	progressBar bool
	include     bool
	silent      bool
	fail        bool
	targetID    string
	version     bool
}

type stringsValue []string

func (s *stringsValue) String() string { return strings.Join(*s, ", ") }

func (s *stringsValue) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// secondsValue reads curl style seconds ("2", "0.5") or a Go duration.
type secondsValue time.Duration

func (s *secondsValue) String() string { return time.Duration(*s).String() }

func (s *secondsValue) Set(v string) error {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if f < 0 {
			return fmt.Errorf("negative duration %q", v)
		}
		*s = secondsValue(f * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fmt.Errorf("invalid duration %q", v)
	}
	*s = secondsValue(d)
	return nil
}

// bytesValue reads a byte count with an optional k, M or G suffix.
type bytesValue int64

func (b *bytesValue) String() string { return strconv.FormatInt(int64(*b), 10) }

func (b *bytesValue) Set(v string) error {
	mult := int64(1)
	switch {
	case strings.HasSuffix(v, "k"), strings.HasSuffix(v, "K"):
		mult = 1 << 10
	case strings.HasSuffix(v, "m"), strings.HasSuffix(v, "M"):
		mult = 1 << 20
	case strings.HasSuffix(v, "g"), strings.HasSuffix(v, "G"):
		mult = 1 << 30
	}
	if mult > 1 {
		v = v[:len(v)-1]
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid size %q", v)
	}
	*b = bytesValue(n * mult)
	return nil
}

// parseArgs parses args on top of the environment defaults in cfg.
// Short and long curl names are both registered.
func parseArgs(args []string, cfg config, stderr io.Writer) (*options, error) {
	o := &options{
		cookieJar:   cfg.CookieJar,
		userAgent:   cfg.UserAgent,
		proxy:       cfg.Proxy,
		retry:       cfg.Retry,
		retryDelay:  cfg.RetryDelay,
		maxTime:     cfg.Timeout,
		connTimeout: cfg.ConnectTimeout,
	}

	fs := flag.NewFlagSet("curling", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: curling [options] <url>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	str := func(p *string, short, long, usage string) {
		if short != "" {
			fs.StringVar(p, short, *p, usage)
		}
		fs.StringVar(p, long, *p, usage)
	}
	boolean := func(p *bool, short, long, usage string) {
		if short != "" {
			fs.BoolVar(p, short, *p, usage)
		}
		fs.BoolVar(p, long, *p, usage)
	}
	multi := func(p *[]string, short, long, usage string) {
		fs.Var((*stringsValue)(p), short, usage)
		fs.Var((*stringsValue)(p), long, usage)
	}

	str(&o.method, "X", "request", "request method")
	multi(&o.headers, "H", "header", `header line "Name: value", repeatable`)
	multi(&o.data, "d", "data", "request body, repeated values are joined with &")
	str(&o.json, "", "json", "JSON request body, sets Content-Type and Accept")
	multi(&o.form, "F", "form", "multipart field name=value or name=@file, repeatable")
	boolean(&o.get, "G", "get", "send -d data in the query string")
	str(&o.output, "o", "output", "write the body to this file")
	str(&o.user, "u", "user", "server credentials user:password")
	str(&o.auth, "", "auth", "server auth scheme: basic, digest or ntlm")
	str(&o.bearer, "", "oauth2-bearer", "bearer token")
	str(&o.proxy, "x", "proxy", "proxy [scheme://]host[:port]")
	str(&o.proxyUser, "U", "proxy-user", "proxy credentials user:password")
	boolean(&o.location, "L", "location", "follow redirects")
	boolean(&o.verbose, "v", "verbose", "log connection and header traffic to stderr")
	boolean(&o.insecure, "k", "insecure", "skip TLS certificate verification")
	str(&o.cookieJar, "b", "cookie", "cookie file")
	str(&o.cookieJar, "c", "cookie-jar", "cookie file")
	str(&o.userAgent, "A", "user-agent", "User-Agent header")
	boolean(&o.http11, "", "http1.1", "use HTTP/1.1")
	boolean(&o.http2, "", "http2", "use HTTP/2")
	boolean(&o.http3, "", "http3", "use HTTP/3 (unsupported)")
	fs.IntVar(&o.retry, "retry", o.retry, "retries after a failed transfer")
	fs.Var((*secondsValue)(&o.retryDelay), "retry-delay", "delay before the first retry, doubled on each retry")
	fs.Var((*secondsValue)(&o.maxTime), "m", "maximum time for the whole transfer")
	fs.Var((*secondsValue)(&o.maxTime), "max-time", "maximum time for the whole transfer")
	fs.Var((*secondsValue)(&o.connTimeout), "connect-timeout", "maximum time to connect")
	fs.Var((*bytesValue)(&o.limitRate), "limit-rate", "maximum transfer speed in bytes per second, k, M and G suffixes allowed")
	boolean(&o.progressBar, "#", "progress-bar", "show transfer progress on stderr")
	boolean(&o.include, "i", "include", "print the response headers")
	boolean(&o.silent, "s", "silent", "no progress nor error messages")
	boolean(&o.fail, "f", "fail", "fail with exit code 22 on HTTP errors")
	str(&o.targetID, "", "target-id", "tag metrics and spans with this id")
	boolean(&o.version, "V", "version", "print the version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	// curl accepts options after the URL.
	rest := fs.Args()
	for len(rest) > 0 {
		if o.url != "" {
			return nil, fmt.Errorf("%w: more than one URL given", errUsage)
		}
		o.url = rest[0]
		if err := fs.Parse(rest[1:]); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		rest = fs.Args()
	}

	if o.url == "" && !o.version {
		return nil, fmt.Errorf("%w: no URL given", errUsage)
	}
	if o.retry < 0 {
		return nil, fmt.Errorf("%w: negative --retry", errUsage)
	}
	return o, nil
}

// apply configures req from o.
func (o *options) apply(req *curling.Request) error {
	req.SetURL(o.url).
		SetFollowRedirects(o.location).
		EnableVerbose(o.verbose).
		SetInsecureSkipVerify(o.insecure).
		SetCookiePath(o.cookieJar).
		SetMaxRecvSpeed(o.limitRate).
		SetMaxSendSpeed(o.limitRate).
		SetConnectTimeout(o.connTimeout).
		SetTimeout(o.maxTime).
		SetTargetID(o.targetID)

	if o.userAgent != "" {
		req.SetUserAgent(o.userAgent)
	}
	if o.output != "" {
		req.DownloadToFile(o.output)
	}

	for _, h := range o.headers {
		req.AddHeader(h)
	}

	method := curling.MethodGet
	switch {
	case len(o.form) > 0:
		method = curling.MethodMIME
	case o.get:
	case len(o.data) > 0 || o.json != "":
		method = curling.MethodPost
	}
	if o.method != "" {
		m, err := curling.ParseMethod(strings.ToUpper(o.method))
		if err != nil {
			return err
		}
		method = m
	}

	if len(o.form) > 0 {
		for _, f := range o.form {
			name, value, ok := strings.Cut(f, "=")
			if !ok {
				return fmt.Errorf("%w: form field %q has no '='", errUsage, f)
			}
			if path, isFile := strings.CutPrefix(value, "@"); isFile {
				req.AddFormFile(name, path)
			} else {
				req.AddFormField(name, value)
			}
		}
	}
	req.SetMethod(method)

	data := strings.Join(o.data, "&")
	switch {
	case o.get:
		if data != "" {
			req.AddRawArg(data)
		}
	case o.json != "":
		req.SetBody([]byte(o.json)).
			AddHeader("Content-Type: application/json").
			AddHeader("Accept: application/json")
	case data != "":
		req.SetBody([]byte(data))
	}

	if o.user != "" {
		user, pass, _ := strings.Cut(o.user, ":")
		req.SetHTTPAuth(user, pass)
	}
	if o.auth != "" {
		m, err := curling.ParseAuthMethod(strings.ToLower(o.auth))
		if err != nil {
			return err
		}
		req.SetHTTPAuthMethod(m)
	}
	if o.bearer != "" {
		req.SetAuthToken(o.bearer)
	}

	req.SetProxy(o.proxy)
	if o.proxyUser != "" {
		user, pass, _ := strings.Cut(o.proxyUser, ":")
		req.SetProxyAuth(user, pass)
	}

	switch {
	case o.http3:
		req.SetHTTPVersion(curling.HTTPVersion3)
	case o.http2:
		req.SetHTTPVersion(curling.HTTPVersion2)
	case o.http11:
		req.SetHTTPVersion(curling.HTTPVersion1_1)
	}

	return req.Err()
}
