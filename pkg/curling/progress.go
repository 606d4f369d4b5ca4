package curling

import (
	"context"
	"io"
	"sync"

	"golang.org/x/time/rate"
)

// ProgressFunc is called while a transfer makes progress, with byte counts
// for the download and the upload. Totals are 0 when unknown. Returning true
// aborts the transfer; Send then fails with a *RequestError wrapping
// ErrAbortedByCallback and does not retry.
//
// Calls never overlap.
type ProgressFunc func(dlTotal, dlNow, ulTotal, ulNow int64) bool

// progress tracks one attempt.
type progress struct {
	fn     ProgressFunc
	cancel context.CancelCauseFunc

	mu                             sync.Mutex
	dlTotal, dlNow, ulTotal, ulNow int64
	aborted                        bool

	ctx            context.Context
	dlRate, ulRate *rate.Limiter
}

func newProgress(fn ProgressFunc, cancel context.CancelCauseFunc) *progress {
	return &progress{fn: fn, cancel: cancel}
}

// limit caps the transfer speeds in bytes per second. Zero leaves a
// direction unlimited.
func (p *progress) limit(ctx context.Context, dl, ul int64) {
	p.ctx = ctx
	p.dlRate = newLimiter(dl)
	p.ulRate = newLimiter(ul)
}

func newLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), int(min(bytesPerSec, _maxBurst)))
}

func (p *progress) setUploadTotal(n int64) {
	p.mu.Lock()
	p.ulTotal = max(n, 0)
	p.mu.Unlock()
}

// restartUpload zeroes the upload count before a body is sent again, on a
// 307/308 redirect or an auth challenge.
func (p *progress) restartUpload() {
	p.mu.Lock()
	p.ulNow = 0
	p.mu.Unlock()
}

func (p *progress) setDownloadTotal(n int64) {
	p.mu.Lock()
	p.dlTotal = max(n, 0)
	p.mu.Unlock()
	p.add(0, 0)
}

// add records transferred bytes and reports. It returns false once the
// callback asked to abort.
func (p *progress) add(dl, ul int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.aborted {
		return false
	}

	p.dlNow += dl
	p.ulNow += ul
	if p.fn != nil && p.fn(p.dlTotal, p.dlNow, p.ulTotal, p.ulNow) {
		p.aborted = true
		p.cancel(ErrAbortedByCallback)
		return false
	}
	return true
}

// _maxBurst bounds a single read of a rate limited transfer.
const _maxBurst = 32 << 10

// reader counts bytes flowing through r and applies the speed limit of its
// direction.
func (p *progress) reader(r io.Reader, upload bool) io.Reader {
	pr := &progressReader{r: r, p: p, upload: upload, limiter: p.dlRate}
	if upload {
		pr.limiter = p.ulRate
	}
	return pr
}

type progressReader struct {
	r       io.Reader
	p       *progress
	upload  bool
	limiter *rate.Limiter
}

func (r *progressReader) Read(b []byte) (int, error) {
	if r.limiter != nil && len(b) > r.limiter.Burst() {
		b = b[:r.limiter.Burst()]
	}

	n, err := r.r.Read(b)
	if n > 0 && r.limiter != nil {
		if werr := r.limiter.WaitN(r.p.ctx, n); werr != nil {
			return n, werr
		}
	}
	if n > 0 {
		var ok bool
		if r.upload {
			ok = r.p.add(0, int64(n))
		} else {
			ok = r.p.add(int64(n), 0)
		}
		if !ok {
			return n, ErrAbortedByCallback
		}
	}
	return n, err
}

type readCloser struct {
	io.Reader
	io.Closer
}
