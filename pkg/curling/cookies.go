package curling

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultCookiePath is the cookie file used when none is configured.
const DefaultCookiePath = "cookies.txt"

const (
	_cookieFileHeader = "# Netscape HTTP Cookie File\n# This file was generated by curling. Edit at your own risk.\n\n"
	_httpOnlyPrefix   = "#HttpOnly_"
)

// cookieJar is an http.CookieJar persisted in the Netscape cookies.txt
// format also used by curl. Matching is delegated to net/http/cookiejar;
// the jar keeps its own copy of every cookie to be able to save them.
type cookieJar struct {
	path string
	jar  *cookiejar.Jar

	mu      sync.Mutex
	entries map[string]cookieEntry
	existed bool
	now     func() time.Time
}

type cookieEntry struct {
	Domain   string // leading "." when subdomains match too
	Path     string
	Secure   bool
	HTTPOnly bool
	Expires  time.Time // zero for session cookies
	Name     string
	Value    string
}

func (e cookieEntry) key() string { return e.Domain + ";" + e.Path + ";" + e.Name }

func (e cookieEntry) includeSubdomains() bool { return strings.HasPrefix(e.Domain, ".") }

// loadCookieJar reads path if it exists. A missing file yields an empty jar.
func loadCookieJar(path string) (*cookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	j := &cookieJar{
		path:    path,
		jar:     jar,
		entries: map[string]cookieEntry{},
		now:     time.Now,
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening cookie file: %w", err)
	}
	defer f.Close()

	j.existed = true
	if err := j.read(f); err != nil {
		return nil, fmt.Errorf("reading cookie file %s: %w", path, err)
	}
	return j, nil
}

func (j *cookieJar) read(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")

		httpOnly := false
		if strings.HasPrefix(line, _httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, _httpOnlyPrefix)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			continue
		}

		expires, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			continue
		}

		e := cookieEntry{
			Domain:   fields[0],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			HTTPOnly: httpOnly,
			Name:     fields[5],
			Value:    fields[6],
		}
		if expires > 0 {
			e.Expires = time.Unix(expires, 0)
			if !e.Expires.After(j.now()) {
				continue
			}
		}
		// Files written by other tools may omit the dot but set the flag.
		if strings.EqualFold(fields[1], "TRUE") && !e.includeSubdomains() {
			e.Domain = "." + e.Domain
		}

		j.restore(e)
	}
	return sc.Err()
}

// restore feeds a stored cookie back into the matching jar.
func (j *cookieJar) restore(e cookieEntry) {
	host := strings.TrimPrefix(e.Domain, ".")
	scheme := "http"
	if e.Secure {
		scheme = "https"
	}

	c := &http.Cookie{
		Name:     e.Name,
		Value:    e.Value,
		Path:     e.Path,
		Secure:   e.Secure,
		HttpOnly: e.HTTPOnly,
		Expires:  e.Expires,
	}
	if e.includeSubdomains() {
		c.Domain = host
	}

	j.jar.SetCookies(&url.URL{Scheme: scheme, Host: host, Path: e.Path}, []*http.Cookie{c})
	j.entries[e.key()] = e
}

// SetCookies implements http.CookieJar.
func (j *cookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()

	host := strings.ToLower(u.Hostname())
	for _, c := range cookies {
		e := cookieEntry{
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			Name:     c.Name,
			Value:    c.Value,
		}

		d := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
		switch {
		case d == "" || net.ParseIP(host) != nil:
			e.Domain = host
		case d == host || strings.HasSuffix(host, "."+d):
			e.Domain = "." + d
		default:
			// the jar rejected it as well
			continue
		}

		if e.Path == "" || !strings.HasPrefix(e.Path, "/") {
			e.Path = defaultCookiePath(u.Path)
		}

		now := j.now()
		switch {
		case c.MaxAge < 0:
			delete(j.entries, e.key())
			continue
		case c.MaxAge > 0:
			e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			if !c.Expires.After(now) {
				delete(j.entries, e.key())
				continue
			}
			e.Expires = c.Expires
		}

		j.entries[e.key()] = e
	}
}

// Cookies implements http.CookieJar.
func (j *cookieJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// save writes the jar to its path through a temporary file. Nothing is
// written when the jar is empty and there was no file to begin with.
func (j *cookieJar) save() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	entries := make([]cookieEntry, 0, len(j.entries))
	for _, e := range j.entries {
		if !e.Expires.IsZero() && !e.Expires.After(now) {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 && !j.existed {
		return nil
	}

	sort.Slice(entries, func(a, b int) bool { return entries[a].key() < entries[b].key() })

	var b strings.Builder
	b.WriteString(_cookieFileHeader)
	for _, e := range entries {
		if e.HTTPOnly {
			b.WriteString(_httpOnlyPrefix)
		}
		var expires int64
		if !e.Expires.IsZero() {
			expires = e.Expires.Unix()
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Domain, upperBool(e.includeSubdomains()), e.Path, upperBool(e.Secure), expires, e.Name, e.Value)
	}

	dir := filepath.Dir(j.path)
	tmp, err := os.CreateTemp(dir, ".cookies-*")
	if err != nil {
		return fmt.Errorf("saving cookies: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("saving cookies: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving cookies: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("saving cookies: %w", err)
	}

	j.existed = true
	return nil
}

func upperBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// defaultCookiePath implements the default-path algorithm of RFC 6265.
func defaultCookiePath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	dir := path.Dir(p)
	if dir == "." {
		return "/"
	}
	return dir
}
