package web

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

const proxyPrefix = "/proxy-api"

type corsOriginKey struct{}

// Proxy forwards /proxy-api/<path> to the upstream API, keeping the
// Authorization header and dropping Host and Cookie.
type Proxy struct {
	baseURL string
	cors    corsPolicy
	logger  logrus.FieldLogger
	rp      *httputil.ReverseProxy
}

// NewProxy creates a proxy to baseURL, which must end with a slash.
// A nil transport uses http.DefaultTransport.
func NewProxy(baseURL string, cors corsPolicy, transport http.RoundTripper, logger logrus.FieldLogger) *Proxy {
	p := &Proxy{
		baseURL: baseURL,
		cors:    cors,
		logger:  logger.WithField("component", "proxy"),
	}
	p.rp = &httputil.ReverseProxy{
		Rewrite:        p.rewrite,
		Transport:      transport,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.errorHandler,
	}
	return p
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := proxyPath(r.URL.Path)
	if target == "" {
		http.NotFound(w, r)
		return
	}
	if !validProxyPath(target) || !validProxyPath(proxyPath(r.URL.EscapedPath())) {
		http.Error(w, "Invalid proxy target", http.StatusBadRequest)
		return
	}

	ctx := context.WithValue(r.Context(), corsOriginKey{}, p.cors.origin(r))
	p.rp.ServeHTTP(w, r.WithContext(ctx))
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	target, err := url.Parse(p.baseURL + proxyPath(pr.In.URL.EscapedPath()))
	if err != nil {
		// ServeHTTP has already validated the path; keep the request unroutable.
		target = &url.URL{}
	}
	target.RawQuery = pr.In.URL.RawQuery

	pr.Out.URL = target
	pr.Out.Host = ""
	pr.Out.Header.Del("Cookie")

	if pr.In.Method == http.MethodGet || pr.In.Method == http.MethodHead {
		pr.Out.Body = nil
		pr.Out.ContentLength = 0
	}
}

func (p *Proxy) modifyResponse(resp *http.Response) error {
	origin, _ := resp.Request.Context().Value(corsOriginKey{}).(string)
	p.cors.apply(resp.Header, origin)
	return nil
}

func (p *Proxy) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.WithError(err).WithField("path", r.URL.Path).Error("proxy request failed")
	reportError(r, err)
	p.cors.build(w.Header(), r)
	http.Error(w, "Proxy request failed", http.StatusBadGateway)
}

// proxyPath strips the /proxy-api prefix and one following slash.
func proxyPath(p string) string {
	p = strings.TrimPrefix(p, proxyPrefix)
	return strings.TrimPrefix(p, "/")
}

func validProxyPath(p string) bool {
	return !strings.Contains(p, "://") && !strings.Contains(p, "..") && !strings.HasPrefix(p, "/")
}
