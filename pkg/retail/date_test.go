package retail

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "date only", input: `"2026-08-30"`, want: "2026-08-30"},
		{name: "RFC3339", input: `"2026-08-30T15:04:05Z"`, want: "2026-08-30"},
		{name: "datetime without timezone", input: `"2026-08-30T15:04:05"`, want: "2026-08-30"},
		{name: "null", input: `null`, want: ""},
		{name: "empty string", input: `""`, want: ""},
		{name: "invalid", input: `"yesterday"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestDate_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Expense{Category: "fuel", Date: NewDate(2026, time.January, 9)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":"2026-01-09"`)

	data, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
