package azure

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

type fakeCredential struct{}

func (fakeCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "test-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

type reply struct {
	status int
	body   string
}

type recorded struct {
	method string
	path   string
	body   string
}

// fakeARM answers ARM requests from a table keyed by "METHOD path".
// Unknown routes get a 404.
type fakeARM struct {
	mu       sync.Mutex
	routes   map[string]reply
	requests []recorded
}

func newFakeARM(routes map[string]reply) *fakeARM {
	return &fakeARM{routes: routes}
}

func (f *fakeARM) Do(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recorded{method: req.Method, path: req.URL.Path, body: body})
	r, ok := f.routes[req.Method+" "+req.URL.Path]
	f.mu.Unlock()

	if !ok {
		r = reply{status: http.StatusNotFound, body: `{"error":{"code":"ResourceNotFound","message":"not found"}}`}
	}
	return &http.Response{
		StatusCode: r.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Request:    req,
	}, nil
}

func (f *fakeARM) requestsTo(method, path string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if r.method == method && r.path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeARM) options(t *testing.T) *arm.ClientOptions {
	t.Helper()
	return &arm.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Transport: f,
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
	}
}
