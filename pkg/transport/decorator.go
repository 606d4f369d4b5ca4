package transport

import (
	"net/http"
)

// RoundTripDecorator wraps a RoundTripper with extra behaviour.
type RoundTripDecorator func(http.RoundTripper) http.RoundTripper

// RoundTripChain is an ordered collection of RoundTripDecorator. The first
// decorator is the outermost one, so it sees the request first and the
// response last.
type RoundTripChain []RoundTripDecorator

// Apply wraps base with every decorator of the chain. Nil decorators are
// skipped.
func (c RoundTripChain) Apply(base http.RoundTripper) http.RoundTripper {
	for x := len(c) - 1; x >= 0; x-- {
		if c[x] == nil {
			continue
		}
		base = c[x](base)
	}
	return base
}
