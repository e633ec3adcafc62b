package onemap

import (
	"net/http"
	"strings"
)

// newRewriteClient creates an HTTP client that rewrites requests to a test server URL.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if strings.HasPrefix(origURL, t.targetPrefix) {
		suffix := origURL[len(t.targetPrefix):]
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(t.testServer + suffix)
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}
