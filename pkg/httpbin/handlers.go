package httpbin

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	_maxBytes      = 100 * 1024
	_maxFormMemory = 32 << 20
)

type echoResponse struct {
	Args    map[string]any    `json:"args"`
	Data    string            `json:"data"`
	Files   map[string]any    `json:"files"`
	Form    map[string]any    `json:"form"`
	Headers map[string]string `json:"headers"`
	JSON    any               `json:"json"`
	Method  string            `json:"method"`
	Origin  string            `json:"origin"`
	URL     string            `json:"url"`
}

func echo(w http.ResponseWriter, r *http.Request) error {
	res := echoResponse{
		Args:    flatten(r.URL.Query()),
		Files:   map[string]any{},
		Form:    map[string]any{},
		Headers: flattenHeader(r),
		Method:  r.Method,
		Origin:  origin(r),
		URL:     fullURL(r),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(_maxFormMemory); err != nil {
			return badRequestf("invalid multipart body: %v", err)
		}
		res.Form = flatten(r.MultipartForm.Value)
		for name, headers := range r.MultipartForm.File {
			contents := make([]string, 0, len(headers))
			for _, fh := range headers {
				f, err := fh.Open()
				if err != nil {
					return err
				}
				b, err := io.ReadAll(f)
				_ = f.Close()
				if err != nil {
					return err
				}
				contents = append(contents, string(b))
			}
			res.Files[name] = single(contents)
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return badRequestf("invalid form body: %v", err)
		}
		res.Form = flatten(r.PostForm)
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return badRequestf("reading body: %v", err)
		}
		res.Data = string(body)
		var v any
		if len(body) > 0 && json.Unmarshal(body, &v) == nil {
			res.JSON = v
		}
	}

	return writeJSON(w, http.StatusOK, res)
}

func headers(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]any{"headers": flattenHeader(r)})
}

func userAgent(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]string{"user-agent": r.UserAgent()})
}

func responseHeaders(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	for k, values := range query {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	return writeJSON(w, http.StatusOK, flatten(query))
}

func basicAuth(w http.ResponseWriter, r *http.Request) error {
	user, passwd := chi.URLParam(r, "user"), chi.URLParam(r, "passwd")

	u, p, ok := r.BasicAuth()
	if !ok || u != user || p != passwd {
		w.Header().Set("WWW-Authenticate", `Basic realm="Fake Realm"`)
		w.WriteHeader(http.StatusUnauthorized)
		return nil
	}

	return writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": user})
}

func bearer(w http.ResponseWriter, r *http.Request) error {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		w.Header().Set("WWW-Authenticate", "Bearer")
		w.WriteHeader(http.StatusUnauthorized)
		return nil
	}

	return writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "token": token})
}

func cookies(w http.ResponseWriter, r *http.Request) error {
	jar := map[string]string{}
	for _, c := range r.Cookies() {
		jar[c.Name] = c.Value
	}
	return writeJSON(w, http.StatusOK, map[string]any{"cookies": jar})
}

func setCookies(w http.ResponseWriter, r *http.Request) error {
	for name, values := range r.URL.Query() {
		http.SetCookie(w, &http.Cookie{Name: name, Value: values[len(values)-1], Path: "/"})
	}
	http.Redirect(w, r, "/cookies", http.StatusFound)
	return nil
}

func deleteCookies(w http.ResponseWriter, r *http.Request) error {
	for name := range r.URL.Query() {
		http.SetCookie(w, &http.Cookie{Name: name, Path: "/", MaxAge: -1, Expires: time.Unix(0, 0)})
	}
	http.Redirect(w, r, "/cookies", http.StatusFound)
	return nil
}

func status(w http.ResponseWriter, r *http.Request) error {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code < 100 || code > 599 {
		return badRequestf("invalid status code %q", chi.URLParam(r, "code"))
	}

	switch {
	case code == http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Basic realm="Fake Realm"`)
	case code >= 300 && code < 400 && code != http.StatusNotModified:
		w.Header().Set("Location", "/redirect/1")
	}
	w.WriteHeader(code)
	return nil
}

func delay(w http.ResponseWriter, r *http.Request) error {
	n, err := strconv.ParseFloat(chi.URLParam(r, "n"), 64)
	if err != nil || n < 0 {
		return badRequestf("invalid delay %q", chi.URLParam(r, "n"))
	}
	n = min(n, MaxDelay)

	timer := time.NewTimer(time.Duration(n * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-timer.C:
		return echo(w, r)
	case <-r.Context().Done():
		return nil
	}
}

func randomBytes(w http.ResponseWriter, r *http.Request) error {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 {
		return badRequestf("invalid size %q", chi.URLParam(r, "n"))
	}
	n = min(n, _maxBytes)

	seed := uint64(time.Now().UnixNano())
	if s := r.URL.Query().Get("seed"); s != "" {
		if seed, err = strconv.ParseUint(s, 10, 64); err != nil {
			return badRequestf("invalid seed %q", s)
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(rng.UintN(256))
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(n))
	_, err = w.Write(buf)
	return err
}

func redirectTo(w http.ResponseWriter, r *http.Request) error {
	target := r.URL.Query().Get("url")
	if target == "" {
		return badRequestf("missing url")
	}

	code := http.StatusFound
	if s := r.URL.Query().Get("status_code"); s != "" {
		c, err := strconv.Atoi(s)
		if err != nil || c < 300 || c > 399 {
			return badRequestf("invalid status_code %q", s)
		}
		code = c
	}

	w.Header().Set("Location", target)
	w.WriteHeader(code)
	return nil
}

func redirect(w http.ResponseWriter, r *http.Request) error {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		return badRequestf("invalid redirect count %q", chi.URLParam(r, "n"))
	}

	next := "/get"
	if n > 1 {
		next = "/redirect/" + strconv.Itoa(n-1)
	}
	http.Redirect(w, r, next, http.StatusFound)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(append(b, '\n'))
	return err
}

// flatten renders single values as strings and repeated ones as lists, the
// way httpbin does.
func flatten(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = single(v)
	}
	return out
}

func single(v []string) any {
	if len(v) == 1 {
		return v[0]
	}
	return v
}

func flattenHeader(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header)+1)
	for k, v := range r.Header {
		out[k] = strings.Join(v, ",")
	}
	out["Host"] = r.Host
	return out
}

func origin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func fullURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
