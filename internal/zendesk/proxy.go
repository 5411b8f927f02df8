package zendesk

import (
	"io"
	"net/http"
	"time"
)

// Proxy forwards a request to Zendesk verbatim and copies the response
// back unmodified. Used for callers still running Zendesk-only, where this
// service must be invisible.
type Proxy struct {
	// BaseURL overrides the per-subdomain endpoint when set; tests use it.
	BaseURL    string
	HTTPClient *http.Client
}

func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, subdomain string) error {
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	base := p.BaseURL
	if base == "" {
		base = BaseURLForSubdomain(subdomain)
	}

	target := base + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", r.Header.Get("Authorization"))
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, err = io.Copy(w, resp.Body)
	return err
}
