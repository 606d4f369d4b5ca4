package curling

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieJar_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")

	jar, err := loadCookieJar(path)
	require.NoError(t, err)

	u, _ := url.Parse("http://www.example.com/app/login")
	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	jar.SetCookies(u, []*http.Cookie{
		{Name: "session", Value: "abc", HttpOnly: true},
		{Name: "pref", Value: "dark", Domain: "example.com", Path: "/", Expires: expires},
		{Name: "gone", Value: "x", MaxAge: -1},
	})
	require.NoError(t, jar.save())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)

	assert.True(t, strings.HasPrefix(content, "# Netscape HTTP Cookie File"))
	assert.Contains(t, content, "#HttpOnly_www.example.com\tFALSE\t/app\tFALSE\t0\tsession\tabc\n")
	assert.Contains(t, content, ".example.com\tTRUE\t/\tFALSE\t"+strconv.FormatInt(expires.Unix(), 10)+"\tpref\tdark\n")
	assert.NotContains(t, content, "gone")

	loaded, err := loadCookieJar(path)
	require.NoError(t, err)

	names := func(raw string) []string {
		u, _ := url.Parse(raw)
		var out []string
		for _, c := range loaded.Cookies(u) {
			out = append(out, c.Name+"="+c.Value)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"session=abc", "pref=dark"}, names("http://www.example.com/app/page"))
	assert.Equal(t, []string{"pref=dark"}, names("http://api.example.com/"))
	assert.Empty(t, names("http://other.org/"))
}

func TestCookieJar_NoFileWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")

	jar, err := loadCookieJar(path)
	require.NoError(t, err)
	require.NoError(t, jar.save())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCookieJar_ExpiredEntriesSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	content := _cookieFileHeader +
		"example.com\tFALSE\t/\tFALSE\t1\told\tv\n" +
		"example.com\tFALSE\t/\tTRUE\t0\tfresh\tv\n" +
		"malformed line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	jar, err := loadCookieJar(path)
	require.NoError(t, err)

	u, _ := url.Parse("https://example.com/")
	cookies := jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, "fresh", cookies[0].Name)

	// An existing file is rewritten even when nothing is left in it.
	jar.SetCookies(u, []*http.Cookie{{Name: "fresh", Value: "", MaxAge: -1}})
	require.NoError(t, jar.save())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, _cookieFileHeader, string(raw))
}

func TestCookieJar_MixedCaseHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")

	jar, err := loadCookieJar(path)
	require.NoError(t, err)

	u, _ := url.Parse("http://WWW.Example.com/")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "pref", Value: "dark", Domain: "example.com", Path: "/"},
		{Name: "session", Value: "abc", Path: "/"},
	})
	require.Len(t, jar.Cookies(u), 2)
	require.NoError(t, jar.save())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), ".example.com\tTRUE\t/\tFALSE\t0\tpref\tdark\n")
	assert.Contains(t, string(raw), "www.example.com\tFALSE\t/\tFALSE\t0\tsession\tabc\n")
}
