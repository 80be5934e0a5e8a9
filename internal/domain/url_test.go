package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShortID(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    int64
		wantErr bool
	}{
		{name: "zero", token: "0", want: 0},
		{name: "one", token: "1", want: 1},
		{name: "large", token: "99999", want: 99999},
		{name: "surrounding whitespace", token: " 42 ", want: 42},
		{name: "leading zeros", token: "007", want: 7},
		{name: "empty", token: "", wantErr: true},
		{name: "blank", token: "   ", wantErr: true},
		{name: "letters", token: "abc", wantErr: true},
		{name: "mixed", token: "12abc", wantErr: true},
		{name: "negative", token: "-1", wantErr: true},
		{name: "explicit plus", token: "+1", wantErr: true},
		{name: "decimal", token: "1.5", wantErr: true},
		{name: "overflow", token: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseShortID(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLRecord_Validate(t *testing.T) {
	assert.NoError(t, NewURLRecord("https://freecodecamp.org", 1).Validate())
	assert.ErrorIs(t, NewURLRecord("  ", 1).Validate(), ErrInvalidURL)
	assert.ErrorIs(t, NewURLRecord("https://example.com", -1).Validate(), ErrInvalidRequest)
}
