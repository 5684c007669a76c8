package schema_test

import (
	"strings"
	"testing"

	"github.com/aretw0/chaptree/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "plain", input: "Chapter One", want: "Chapter One"},
		{name: "trims", input: "  spaced\t", want: "spaced"},
		{name: "strips escape", input: "red\x1b[31m", want: "red[31m"},
		{name: "newline becomes space", input: "two\nlines", want: "two lines"},
		{name: "invalid utf8", input: "bad\xff", wantErr: schema.ErrInvalidUTF8},
		{name: "too large", input: strings.Repeat("a", schema.DefaultMaxNameSize+1), wantErr: schema.ErrNameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := schema.SanitizeName(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeName_EnvLimit(t *testing.T) {
	t.Setenv(schema.EnvMaxNameSize, "4")
	_, err := schema.SanitizeName("12345")
	assert.ErrorIs(t, err, schema.ErrNameTooLarge)

	got, err := schema.SanitizeName("1234")
	require.NoError(t, err)
	assert.Equal(t, "1234", got)
}
