package paystack

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
)

// Params configures one inline-checkout invocation.
type Params struct {
	Key       string
	Email     string
	Amount    int64 // minor currency units
	Currency  string
	Reference string
	OrderID   string
}

// Result is the single terminal outcome of a widget session: either the
// customer paid (Completed with the gateway's reference) or they closed the
// window.
type Result struct {
	Completed bool
	Reference string
}

// Session wraps the widget's success/close callback pair in a single
// awaitable result, so the reconciliation flow reads as straight-line code.
type Session struct {
	params Params
	done   chan Result
	once   sync.Once
}

// Params returns the configuration the session was opened with.
func (s *Session) Params() Params {
	return s.params
}

// Complete resolves the session from the widget's success callback. Later
// calls to Complete or Close are no-ops; a session settles exactly once.
func (s *Session) Complete(reference string) {
	s.once.Do(func() {
		s.done <- Result{Completed: true, Reference: reference}
		close(s.done)
	})
}

// Close resolves the session from the widget's close callback (abandonment).
func (s *Session) Close() {
	s.once.Do(func() {
		s.done <- Result{Completed: false, Reference: s.params.Reference}
		close(s.done)
	})
}

// Await blocks until the widget reports an outcome or ctx expires.
func (s *Session) Await(ctx context.Context) (Result, error) {
	select {
	case res := <-s.done:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

type scriptFetcher func(ctx context.Context, url string) error

// Widget manages the inline checkout script and the sessions opened against
// it. Loading is lazy and idempotent: the script is fetched at most once no
// matter how many checkouts run.
type Widget struct {
	scriptURL string
	fetch     scriptFetcher

	mu       sync.Mutex
	loaded   bool
	loads    int
	sessions map[string]*Session
}

// NewWidget builds the widget adapter for the given inline script URL.
func NewWidget(scriptURL string) *Widget {
	return &Widget{
		scriptURL: scriptURL,
		fetch:     defaultFetch,
		sessions:  make(map[string]*Session),
	}
}

func defaultFetch(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("widget script returned %d", resp.StatusCode)
	}
	return nil
}

// Load fetches the checkout script if it has not been fetched yet. A second
// call returns immediately once the script handle exists.
func (w *Widget) Load(ctx context.Context) error {
	w.mu.Lock()
	if w.loaded {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.fetch(ctx, w.scriptURL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment widget script")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		w.loaded = true
		w.loads++
	}
	return nil
}

// Open registers a session for the given parameters. The widget must be
// loaded first, and a reference can only ever belong to one session.
func (w *Widget) Open(params Params) (*Session, error) {
	if strings.TrimSpace(params.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment widget script not loaded")
	}
	if _, exists := w.sessions[params.Reference]; exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment session already open for reference")
	}
	session := &Session{
		params: params,
		done:   make(chan Result, 1),
	}
	w.sessions[params.Reference] = session
	return session, nil
}

// Session returns the open session for a reference, if any.
func (w *Widget) Session(reference string) (*Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	session, ok := w.sessions[reference]
	return session, ok
}

// Release drops a settled session from the registry.
func (w *Widget) Release(reference string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sessions, reference)
}
