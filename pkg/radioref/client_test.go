package radioref

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalwatch/freqscan-cli/internal/faults"
)

func TestCallBuildsEnvelope(t *testing.T) {
	t.Parallel()

	var captured string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/xml; charset=utf-8", r.Header.Get("Content-Type"))
		assert.Equal(t, OpGetZipcodeInfo, r.Header.Get("SOAPAction"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = string(body)

		_, _ = w.Write([]byte("<SOAP-ENV:Envelope><zipcode>84770</zipcode></SOAP-ENV:Envelope>"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithAppKey("test-key"))
	creds := Credentials{Username: "alice", Password: "p&ss"}

	resp, err := client.Call(context.Background(), OpGetZipcodeInfo, creds, "<zipcode>84770</zipcode>")
	require.NoError(t, err)
	assert.Contains(t, resp, "<zipcode>84770</zipcode>")

	// Operation name appears in both the opening and closing wrapper.
	assert.Contains(t, captured, "<ns1:getZipcodeInfo>")
	assert.Contains(t, captured, "</ns1:getZipcodeInfo>")
	// Auth block with escaped credentials.
	assert.Contains(t, captured, "<appKey>test-key</appKey>")
	assert.Contains(t, captured, "<username>alice</username>")
	assert.Contains(t, captured, "<password>p&amp;ss</password>")
	assert.Contains(t, captured, "<version>latest</version>")
	assert.Contains(t, captured, "<style>rpc</style>")
	// Parameter fragment interpolated verbatim.
	assert.Contains(t, captured, "<zipcode>84770</zipcode>")
}

func TestCallNonSuccessStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
	}{
		{"server_error", http.StatusInternalServerError},
		{"not_found", http.StatusNotFound},
		{"rate_limited", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewClient(WithBaseURL(srv.URL))
			_, err := client.Call(context.Background(), OpGetCountyInfo, Credentials{}, "")
			require.Error(t, err)
			assert.True(t, faults.IsTransport(err))
		})
	}
}

func TestCallConnectFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed server: connection refused

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Call(context.Background(), OpGetStateInfo, Credentials{}, "")
	require.Error(t, err)
	assert.True(t, faults.IsTransport(err))
}

func TestEscape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a&b", "a&amp;b"},
		{"<tag>", "&lt;tag&gt;"},
		{`say "hi"`, "say &quot;hi&quot;"},
		{"it's", "it&apos;s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in))
	}
}
