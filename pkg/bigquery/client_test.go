package bigquery

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/showcart-backend/pkg/config"
)

func TestTableNames(t *testing.T) {
	tables := tableNames(config.BigQueryConfig{LiveSaleEventsTable: " live_sale_events "})
	require.Equal(t, []string{"live_sale_events"}, tables)

	assert.Empty(t, tableNames(config.BigQueryConfig{LiveSaleEventsTable: "  "}))
}

func TestCredentialOptions(t *testing.T) {
	tests := []struct {
		name string
		gcp  config.GCPConfig
		want int
	}{
		{
			name: "inline json wins over file",
			gcp: config.GCPConfig{
				CredentialsJSON:        `{"dummy":"value"}`,
				ApplicationCredentials: "/tmp/creds",
			},
			want: 1,
		},
		{
			name: "file alone",
			gcp:  config.GCPConfig{ApplicationCredentials: "/tmp/creds"},
			want: 1,
		},
		{
			name: "ambient adc",
			gcp:  config.GCPConfig{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, credentialOptions(tt.gcp), tt.want)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&googleapi.Error{Code: http.StatusNotFound}))
	assert.False(t, isNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isNotFound(nil))
}
