package httpbin_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/icholy/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizaranda/curling/pkg/httpbin"
	"github.com/luizaranda/curling/pkg/log"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(httpbin.New())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	defer res.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

func TestGet(t *testing.T) {
	srv := newServer(t)

	res, err := http.Get(srv.URL + "/get?key=value&multi=1&multi=2")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"key": "value"`)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	args := out["args"].(map[string]any)
	assert.Equal(t, []any{"1", "2"}, args["multi"])
	assert.Equal(t, "GET", out["method"])
}

func TestPost(t *testing.T) {
	srv := newServer(t)

	t.Run("json", func(t *testing.T) {
		res, err := http.Post(srv.URL+"/post", "application/json", strings.NewReader(`{"name":"curling"}`))
		require.NoError(t, err)
		out := decode(t, res)
		assert.Equal(t, `{"name":"curling"}`, out["data"])
		assert.Equal(t, map[string]any{"name": "curling"}, out["json"])
	})

	t.Run("multipart", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("field", "value"))
		fw, err := mw.CreateFormFile("file", "hello.txt")
		require.NoError(t, err)
		_, _ = fw.Write([]byte("hello"))
		require.NoError(t, mw.Close())

		res, err := http.Post(srv.URL+"/post", mw.FormDataContentType(), &buf)
		require.NoError(t, err)
		out := decode(t, res)
		assert.Equal(t, map[string]any{"field": "value"}, out["form"])
		assert.Equal(t, map[string]any{"file": "hello"}, out["files"])
	})

	t.Run("wrong method", func(t *testing.T) {
		res, err := http.Get(srv.URL + "/post")
		require.NoError(t, err)
		_ = res.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	})
}

func TestAuth(t *testing.T) {
	srv := newServer(t)

	t.Run("basic", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/basic-auth/user/passwd", nil)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = res.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Contains(t, res.Header.Get("WWW-Authenticate"), "Basic")

		req.SetBasicAuth("user", "passwd")
		res, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, true, decode(t, res)["authenticated"])
	})

	t.Run("bearer", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/bearer", nil)
		req.Header.Set("Authorization", "Bearer abc123")
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, "abc123", decode(t, res)["token"])
	})

	for _, qop := range []string{"auth", "auth-int"} {
		t.Run("digest "+qop, func(t *testing.T) {
			client := &http.Client{Transport: &digest.Transport{Username: "user", Password: "passwd"}}
			res, err := client.Get(srv.URL + "/digest-auth/" + qop + "/user/passwd")
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, "user", decode(t, res)["user"])

			bad := &http.Client{Transport: &digest.Transport{Username: "user", Password: "wrong"}}
			res, err = bad.Get(srv.URL + "/digest-auth/" + qop + "/user/passwd")
			require.NoError(t, err)
			_ = res.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		})
	}
}

func TestCookies(t *testing.T) {
	srv := newServer(t)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	res, err := client.Get(srv.URL + "/cookies/set?flavor=chocolate")
	require.NoError(t, err)
	out := decode(t, res)
	assert.Equal(t, map[string]any{"flavor": "chocolate"}, out["cookies"])

	res, err = client.Get(srv.URL + "/cookies/delete?flavor")
	require.NoError(t, err)
	assert.Empty(t, decode(t, res)["cookies"])
}

func TestStatusAndRedirects(t *testing.T) {
	srv := newServer(t)
	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	res, err := noFollow.Get(srv.URL + "/status/418")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusTeapot, res.StatusCode)

	res, err = noFollow.Get(srv.URL + "/redirect-to?url=/get&status_code=307")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, res.StatusCode)
	assert.Equal(t, "/get", res.Header.Get("Location"))

	res, err = http.Get(srv.URL + "/redirect/3")
	require.NoError(t, err)
	out := decode(t, res)
	assert.True(t, strings.HasSuffix(out["url"].(string), "/get"))
}

func TestBytesAndDelay(t *testing.T) {
	srv := newServer(t)

	fetch := func() []byte {
		res, err := http.Get(srv.URL + "/bytes/512?seed=7")
		require.NoError(t, err)
		defer res.Body.Close()
		b, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return b
	}
	first := fetch()
	assert.Len(t, first, 512)
	assert.Equal(t, first, fetch())

	client := &http.Client{Timeout: 200 * time.Millisecond}
	_, err := client.Get(srv.URL + "/delay/2")
	require.Error(t, err)
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	h := httpbin.New(httpbin.WithLogger(log.NewConsoleLogger(&buf, log.DebugLevel)))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status/201", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Contains(t, buf.String(), "request handled")
	assert.Contains(t, buf.String(), "/status/{code}")
}
