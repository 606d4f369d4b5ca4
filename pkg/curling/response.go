package curling

import (
	"strconv"
	"strings"
)

// Response is the outcome of a successful Send. Body is empty when the
// request downloaded to a file.
type Response struct {
	StatusCode int
	Body       []byte
	Header     Header
}

// String renders the response for debugging:
//
//	status: 200
//	body:
//	{...}
//	headers:
//	content-type: application/json
func (r *Response) String() string {
	var b strings.Builder

	b.WriteString("status: ")
	b.WriteString(strconv.Itoa(r.StatusCode))
	b.WriteString("\nbody:\n")
	b.Write(r.Body)
	b.WriteString("\nheaders:\n")
	for _, k := range r.Header.Keys() {
		b.WriteString(k)
		b.WriteString(":")
		for _, v := range r.Header[k] {
			b.WriteString(" ")
			b.WriteString(v)
		}
		b.WriteString("\n")
	}

	return b.String()
}
