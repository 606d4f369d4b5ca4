package curling

import (
	"bytes"
	"sort"
	"strings"
)

// Header maps lowercase header names to their values in arrival order.
type Header map[string][]string

// Get returns the first value of key, or "". Lookup is case-insensitive.
func (h Header) Get(key string) string {
	if v := h[strings.ToLower(key)]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Values returns every value of key. Lookup is case-insensitive.
func (h Header) Values(key string) []string {
	return h[strings.ToLower(key)]
}

// Keys returns the header names sorted.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HeaderCollector parses "Name: value" lines written to it in arbitrary
// chunks. Each line is split on its first colon; both sides are trimmed and
// the name is lowercased. Lines without a colon, such as status lines and
// the blank line ending a header block, are skipped.
//
// The zero value is ready to use.
type HeaderCollector struct {
	header  Header
	partial []byte
}

// Write buffers p and parses every complete line. It never fails.
func (c *HeaderCollector) Write(p []byte) (int, error) {
	c.partial = append(c.partial, p...)

	for {
		i := bytes.IndexByte(c.partial, '\n')
		if i < 0 {
			break
		}
		c.AddLine(string(c.partial[:i]))
		c.partial = c.partial[i+1:]
	}

	return len(p), nil
}

// AddLine parses a single header line. A trailing "\r\n" is allowed.
func (c *HeaderCollector) AddLine(line string) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}

	if c.header == nil {
		c.header = Header{}
	}
	c.header[name] = append(c.header[name], strings.TrimSpace(value))
}

// Header parses any buffered partial line and returns the collected header.
// The collector keeps accumulating into the same map afterwards.
func (c *HeaderCollector) Header() Header {
	if len(c.partial) > 0 {
		c.AddLine(string(c.partial))
		c.partial = nil
	}
	if c.header == nil {
		c.header = Header{}
	}
	return c.header
}

// Reset drops everything collected so far.
func (c *HeaderCollector) Reset() {
	c.header = nil
	c.partial = nil
}
