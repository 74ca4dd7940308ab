package sessions

import (
	"context"
	"net/http"
	"sync"
)

// Jar is a request-scoped view over cookies. Reads see writes made earlier in
// the same request; writes are collected and applied to the response once.
type Jar struct {
	req *http.Request

	mu      sync.Mutex
	pending map[string]*http.Cookie
	order   []string
	applied bool
}

func NewJar(r *http.Request) *Jar {
	return &Jar{
		req:     r,
		pending: make(map[string]*http.Cookie),
	}
}

// Get returns the current value of a cookie. A pending deletion reads as absent.
func (j *Jar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c, ok := j.pending[name]; ok {
		if c.MaxAge < 0 {
			return "", false
		}
		return c.Value, true
	}
	c, err := j.req.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// Set queues a cookie write. The last write for a name wins.
func (j *Jar) Set(c *http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.pending[c.Name]; !ok {
		j.order = append(j.order, c.Name)
	}
	j.pending[c.Name] = c
}

// Delete queues removal of a cookie.
func (j *Jar) Delete(name, path string) {
	j.Set(&http.Cookie{Name: name, Value: "", Path: path, MaxAge: -1, HttpOnly: true})
}

// Names lists the cookies currently visible, including pending writes.
func (j *Jar) Names() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	seen := make(map[string]struct{})
	var names []string
	for _, c := range j.req.Cookies() {
		if _, ok := seen[c.Name]; !ok {
			seen[c.Name] = struct{}{}
			names = append(names, c.Name)
		}
	}
	for _, name := range j.order {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// Pending returns the queued writes in the order they were first made.
func (j *Jar) Pending() []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*http.Cookie, 0, len(j.order))
	for _, name := range j.order {
		out = append(out, j.pending[name])
	}
	return out
}

// Apply writes the queued cookies to the response headers. Only the first call
// has any effect; it must happen before the response header is written.
func (j *Jar) Apply(w http.ResponseWriter) {
	j.mu.Lock()
	if j.applied {
		j.mu.Unlock()
		return
	}
	j.applied = true
	j.mu.Unlock()

	for _, c := range j.Pending() {
		http.SetCookie(w, c)
	}
}

type jarContextKey struct{}

// WithJar attaches a jar to ctx
func WithJar(ctx context.Context, j *Jar) context.Context {
	return context.WithValue(ctx, jarContextKey{}, j)
}

// JarFromContext returns the request's jar, if any
func JarFromContext(ctx context.Context) (*Jar, bool) {
	j, ok := ctx.Value(jarContextKey{}).(*Jar)
	return j, ok
}
