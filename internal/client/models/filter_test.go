package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		errLike string
	}{
		{"", FilterAll, ""},
		{"ALL", FilterAll, ""},
		{"active", "Active", ""},
		{"paidout", "PaidOut", ""},
		{"Refunded", "Refunded", ""},
		{"sucessful", "", `did you mean "Successful"`},
		{"xyzzyplugh", "", `unknown status "xyzzyplugh"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatusFilter(tt.in)
			if tt.errLike != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errLike)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches(t *testing.T) {
	c := Campaign{Title: "Save the Foo Forest", Status: StatusActive}

	assert.True(t, MatchesStatus(c, "all"))
	assert.True(t, MatchesStatus(c, "active"))
	assert.True(t, MatchesStatus(c, "ACTIVE"))
	assert.False(t, MatchesStatus(c, "failed"))

	assert.True(t, MatchesSearch(c, ""))
	assert.True(t, MatchesSearch(c, "foo"))
	assert.True(t, MatchesSearch(c, "FOREST"))
	assert.False(t, MatchesSearch(c, "bar"))
}
