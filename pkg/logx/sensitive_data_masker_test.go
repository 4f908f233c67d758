package logx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tranquiltaiwan/pkg/logx"
)

func TestSensitiveDataMaskerMask(t *testing.T) {
	rq := require.New(t)

	masker := logx.NewSensitiveDataMasker()

	testCases := []struct {
		name   string
		input  []byte
		output []byte
	}{
		{
			name:   "Password",
			input:  []byte(`{"hello":"world","password":"abc123"}`),
			output: []byte(`{"hello":"world","password":"[MASKED]"}`),
		},
		{
			name:   "Password capital letter",
			input:  []byte(`{"hello":"world","Password":"abc123"}`),
			output: []byte(`{"hello":"world","Password":"[MASKED]"}`),
		},
		{
			name:   "OAuth token response",
			input:  []byte(`{"access_token":"eyJhbGciOiJFUzI1NiIsInR5cC","refresh_token":"eyJhbGciOiJFUzI1NiIsInR5cCI6IkpXVCJ9","expires_in":86400}`),
			output: []byte(`{"access_token":"[MASKED]","refresh_token":"[MASKED]","expires_in":86400}`),
		},
		{
			name:   "Client credentials form body",
			input:  []byte(`grant_type=client_credentials&client_id=ttw-api&client_secret=s3cr3t-v4lue`),
			output: []byte(`grant_type=client_credentials&client_id=ttw-api&client_secret=[MASKED]`),
		},
		{
			name:   "API key query parameter",
			input:  []byte(`GET /api/v2/aqx_p_432?format=JSON&api_key=c1b2a3-d4e5&limit=1000 HTTP/1.1`),
			output: []byte(`GET /api/v2/aqx_p_432?format=JSON&api_key=[MASKED]&limit=1000 HTTP/1.1`),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			output := masker.Mask(tc.input)

			rq.Equal(tc.output, output, "%s vs %s", tc.output, output)
		})
	}
}
