// Package curling is a fluent HTTP client. A Request collects method, URL,
// query arguments, headers, body, authentication, proxy, cookie and
// transfer settings through chained setters, and Send turns them into a
// Response holding the status code, the body and the headers.
//
//	req, err := curling.New()
//	if err != nil {
//		return err
//	}
//	defer req.Close()
//
//	res, err := req.SetURL("https://httpbin.org/get").
//		AddArg("key", "value").
//		SendWithRetry(ctx, 3, 200*time.Millisecond)
//
// Requests share connection pools while at least one of them is open.
// Cookies are kept in a Netscape cookies.txt file, "cookies.txt" unless
// configured otherwise.
package curling

import "github.com/luizaranda/curling/pkg/internal"

// Version returns the module version compiled into the binary.
func Version() string {
	return internal.Version
}
