package curling

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/valyala/fasttemplate"
)

// escapeArg percent-encodes s for a query string. Spaces become %20.
func escapeArg(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// buildURL returns raw with its {name} path placeholders expanded from
// params and args appended to the query, joined by "&".
func buildURL(raw string, params map[string]string, args []string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: no URL set", ErrLogic)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		if u, err = expandPath(u, params); err != nil {
			return nil, err
		}
	}

	if len(args) > 0 {
		query := strings.Join(args, "&")
		if u.RawQuery != "" {
			query = u.RawQuery + "&" + query
		}
		u.RawQuery = query
	}

	return u, nil
}

func expandPath(u *url.URL, params map[string]string) (*url.URL, error) {
	expand := func(escape func(string) string) (string, error) {
		return fasttemplate.ExecuteFuncStringWithErr(u.Path, "{", "}", func(w io.Writer, tag string) (int, error) {
			v, ok := params[tag]
			if !ok {
				return 0, fmt.Errorf("%w: missing path param %q", ErrLogic, tag)
			}
			return w.Write([]byte(escape(v)))
		})
	}

	p, err := expand(func(s string) string { return s })
	if err != nil {
		return nil, err
	}
	rawPath, err := expand(url.PathEscape)
	if err != nil {
		return nil, err
	}

	u2 := *u
	u2.Path = p
	u2.RawPath = rawPath
	return &u2, nil
}
