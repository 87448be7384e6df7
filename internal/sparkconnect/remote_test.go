package sparkconnect_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kndndrj/sailcheck/internal/sparkconnect"
)

func TestParseRemote(t *testing.T) {
	type testCase struct {
		name     string
		input    string
		expected *sparkconnect.Remote
	}

	testCases := []testCase{
		{
			name:  "host only",
			input: "sc://localhost",
			expected: &sparkconnect.Remote{
				Host:      "localhost",
				Port:      sparkconnect.DefaultPort,
				UserAgent: sparkconnect.DefaultUserAgent,
				Headers:   map[string]string{},
			},
		},
		{
			name:  "host and port",
			input: "sc://sail.localhost:443",
			expected: &sparkconnect.Remote{
				Host:      "sail.localhost",
				Port:      443,
				UserAgent: sparkconnect.DefaultUserAgent,
				Headers:   map[string]string{},
			},
		},
		{
			name:  "params",
			input: "sc://spark:15002/;token=abc;user_id=me;user_agent=smoke;X-Trace=1",
			expected: &sparkconnect.Remote{
				Host:      "spark",
				Port:      15002,
				Token:     "abc",
				UserID:    "me",
				UserAgent: "smoke",
				UseSSL:    true,
				Headers:   map[string]string{"x-trace": "1"},
			},
		},
		{
			name:  "use ssl",
			input: "sc://spark/;use_ssl=true",
			expected: &sparkconnect.Remote{
				Host:      "spark",
				Port:      sparkconnect.DefaultPort,
				UserAgent: sparkconnect.DefaultUserAgent,
				UseSSL:    true,
				Headers:   map[string]string{},
			},
		},
		{
			name:  "token keeps ssl on",
			input: "sc://spark/;token=abc;use_ssl=false",
			expected: &sparkconnect.Remote{
				Host:      "spark",
				Port:      sparkconnect.DefaultPort,
				Token:     "abc",
				UserAgent: sparkconnect.DefaultUserAgent,
				UseSSL:    true,
				Headers:   map[string]string{},
			},
		},
		{
			name:  "session id",
			input: " sc://spark/;session_id=9f1c2a36-5b0e-4c47-9a57-2b6f3f4f2a10 ",
			expected: &sparkconnect.Remote{
				Host:      "spark",
				Port:      sparkconnect.DefaultPort,
				UserAgent: sparkconnect.DefaultUserAgent,
				SessionID: "9f1c2a36-5b0e-4c47-9a57-2b6f3f4f2a10",
				Headers:   map[string]string{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)

			remote, err := sparkconnect.ParseRemote(tc.input)
			r.NoError(err)
			r.Equal(tc.expected, remote)
		})
	}
}

func TestParseRemote_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"http://localhost:15002",
		"sc://",
		"sc://localhost:0",
		"sc://localhost:70000",
		"sc://localhost:abc",
		"sc://localhost/path",
		"sc://localhost/;novalue",
		"sc://localhost/;session_id=not-a-uuid",
		"sc://localhost/;use_ssl=maybe",
		"sc://user:pass@localhost",
		"sc://localhost?token=abc",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := sparkconnect.ParseRemote(input)
			require.ErrorIs(t, err, sparkconnect.ErrInvalidRemote)
		})
	}
}

func TestRemote_String(t *testing.T) {
	r := require.New(t)

	remote, err := sparkconnect.ParseRemote("sc://spark/;token=secret;user_id=me")
	r.NoError(err)

	r.Equal("spark:15002", remote.Address())
	r.Equal("sc://spark:15002/;token=***;user_id=me", remote.String())
	r.NotContains(remote.String(), "secret")
}
