package curling

import (
	"fmt"
	"net/http"

	"github.com/luizaranda/curling/pkg/transport"
)

// Method is the request method. MethodMIME is a multipart/form-data POST.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
	MethodHead
	MethodMIME
)

func (m Method) String() string {
	switch m {
	case MethodMIME:
		return "MIME"
	default:
		if s := m.wire(); s != "" {
			return s
		}
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// wire returns the method sent on the wire, "" for unknown values.
func (m Method) wire() string {
	switch m {
	case MethodGet:
		return http.MethodGet
	case MethodPost, MethodMIME:
		return http.MethodPost
	case MethodPut:
		return http.MethodPut
	case MethodDelete:
		return http.MethodDelete
	case MethodPatch:
		return http.MethodPatch
	case MethodHead:
		return http.MethodHead
	default:
		return ""
	}
}

// sendsBody reports whether a body set with SetBody is transmitted.
func (m Method) sendsBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

// ParseMethod maps an HTTP verb to a Method. "MIME" is accepted too.
func ParseMethod(s string) (Method, error) {
	switch s {
	case http.MethodGet:
		return MethodGet, nil
	case http.MethodPost:
		return MethodPost, nil
	case http.MethodPut:
		return MethodPut, nil
	case http.MethodDelete:
		return MethodDelete, nil
	case http.MethodPatch:
		return MethodPatch, nil
	case http.MethodHead:
		return MethodHead, nil
	case "MIME":
		return MethodMIME, nil
	default:
		return 0, fmt.Errorf("%w: unsupported method %q", ErrLogic, s)
	}
}

// AuthMethod is the scheme used for HTTP or proxy authentication.
type AuthMethod int

const (
	AuthBasic AuthMethod = iota
	AuthDigest
	AuthNTLM
)

func (a AuthMethod) String() string {
	switch a {
	case AuthBasic:
		return "basic"
	case AuthDigest:
		return "digest"
	case AuthNTLM:
		return "ntlm"
	default:
		return fmt.Sprintf("AuthMethod(%d)", int(a))
	}
}

// ParseAuthMethod parses "basic", "digest" or "ntlm".
func ParseAuthMethod(s string) (AuthMethod, error) {
	for _, a := range []AuthMethod{AuthBasic, AuthDigest, AuthNTLM} {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: unsupported auth method %q", ErrLogic, s)
}

func (a AuthMethod) decorator(user, pass string) transport.RoundTripDecorator {
	switch a {
	case AuthDigest:
		return transport.DigestAuthDecorator(user, pass)
	case AuthNTLM:
		return transport.NTLMAuthDecorator(user, pass)
	default:
		return transport.BasicAuthDecorator(user, pass)
	}
}

// HTTPVersion is the preferred protocol version.
type HTTPVersion int

const (
	// HTTPVersionDefault negotiates HTTP/2 over TLS when the server offers
	// it and HTTP/1.1 otherwise.
	HTTPVersionDefault HTTPVersion = iota
	HTTPVersion1_1
	HTTPVersion2
	// HTTPVersion3 is not supported by this build; selecting it is a logic
	// error.
	HTTPVersion3
)

func (v HTTPVersion) String() string {
	return v.protocol().String()
}

func (v HTTPVersion) protocol() transport.Protocol {
	switch v {
	case HTTPVersion1_1:
		return transport.ProtocolHTTP1
	case HTTPVersion2:
		return transport.ProtocolHTTP2
	case HTTPVersion3:
		return transport.ProtocolHTTP3
	default:
		return transport.ProtocolAuto
	}
}
