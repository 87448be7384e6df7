package adapters

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDatabricks_Connect(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{
			name:    "invalid url",
			url:     "://invalid",
			wantErr: "failed to parse connection string",
		},
		{
			name: "token dsn",
			url:  "token:dummytoken@hostname:443/sql/1.0/warehouses/1234567890",
		},
		{
			name: "token dsn with catalog",
			url:  "token:dummytoken@hostname:443/sql/1.0/warehouses/1234567890?catalog=main&schema=default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)

			driver, err := new(Databricks).Connect(tt.url)
			if tt.wantErr != "" {
				r.ErrorContains(err, tt.wantErr)
				return
			}
			r.NoError(err)

			// opening a warehouse is lazy, nothing is dialed here
			_, ok := driver.(*databricksDriver)
			r.True(ok)
			driver.Close()
		})
	}
}

func TestDatabricks_Registered(t *testing.T) {
	adapter, err := new(Mux).GetAdapter("databricks")
	require.NoError(t, err)
	require.IsType(t, &Databricks{}, adapter)
}
