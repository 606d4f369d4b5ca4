package httpbin

import (
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/icholy/digest"
)

const _digestRealm = "curling@httpbin"

// digestAuth serves /digest-auth/{qop}/{user}/{passwd}. Nonces are only
// accepted if this handler issued them.
type digestAuth struct {
	nonces sync.Map
}

func newDigestAuth() *digestAuth {
	return &digestAuth{}
}

func (d *digestAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handlerFunc(d.serve).ServeHTTP(w, r)
}

func (d *digestAuth) serve(w http.ResponseWriter, r *http.Request) error {
	qop, user, passwd := chi.URLParam(r, "qop"), chi.URLParam(r, "user"), chi.URLParam(r, "passwd")
	if qop != "auth" && qop != "auth-int" {
		return badRequestf("unsupported qop %q", qop)
	}

	if d.verify(r, user, passwd) {
		return writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": user})
	}

	nonce, opaque := uuid.Must(uuid.NewV4()).String(), uuid.Must(uuid.NewV4()).String()
	d.nonces.Store(nonce, opaque)

	chal := digest.Challenge{
		Realm:     _digestRealm,
		Nonce:     nonce,
		Opaque:    opaque,
		Algorithm: "MD5",
		QOP:       []string{qop},
	}
	w.Header().Set("WWW-Authenticate", chal.String())
	w.WriteHeader(http.StatusUnauthorized)
	return nil
}

func (d *digestAuth) verify(r *http.Request, user, passwd string) bool {
	header := r.Header.Get("Authorization")
	if !digest.IsDigest(header) {
		return false
	}

	cred, err := digest.ParseCredentials(header)
	if err != nil || cred.Username != user || cred.Realm != _digestRealm {
		return false
	}

	opaque, ok := d.nonces.Load(cred.Nonce)
	if !ok || opaque.(string) != cred.Opaque {
		return false
	}

	chal := &digest.Challenge{
		Realm:     cred.Realm,
		Nonce:     cred.Nonce,
		Opaque:    cred.Opaque,
		Algorithm: cred.Algorithm,
	}
	if cred.QOP != "" {
		chal.QOP = []string{cred.QOP}
	}

	want, err := digest.Digest(chal, digest.Options{
		Method:   r.Method,
		URI:      cred.URI,
		GetBody:  func() (io.ReadCloser, error) { return r.Body, nil },
		Count:    cred.Nc,
		Username: user,
		Password: passwd,
		Cnonce:   cred.Cnonce,
	})
	if err != nil {
		return false
	}

	return want.Response == cred.Response
}
