package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGroupLink(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "full https url", raw: "https://t.me/PhiloBots", want: "https://t.me/PhiloBots"},
		{name: "http url", raw: "http://t.me/PhiloBots", want: "https://t.me/PhiloBots"},
		{name: "bare t.me", raw: "t.me/PhiloBots", want: "https://t.me/PhiloBots"},
		{name: "whitespace trimmed", raw: "  t.me/PhiloBots  ", want: "https://t.me/PhiloBots"},
		{name: "username", raw: "@PhiloBots", want: "https://t.me/PhiloBots"},
		{name: "private invite plus", raw: "https://t.me/+AbCd-123", want: "https://t.me/+AbCd-123"},
		{name: "joinchat rewritten to plus", raw: "t.me/joinchat/AbCd123", want: "https://t.me/+AbCd123"},
		{name: "chat id", raw: "-1001234567890", want: "-1001234567890"},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace only", raw: "   ", wantErr: true},
		{name: "plain text", raw: "hello world", wantErr: true},
		{name: "wrong host", raw: "https://example.com/group", wantErr: true},
		{name: "short username", raw: "@ab", wantErr: true},
		{name: "short number", raw: "1234", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeGroupLink(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGroupLink)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeGroupLinkDuplicatesCompareEqual(t *testing.T) {
	a, err := NormalizeGroupLink("t.me/Spinify")
	require.NoError(t, err)
	b, err := NormalizeGroupLink("@Spinify")
	require.NoError(t, err)
	c, err := NormalizeGroupLink("https://t.me/Spinify")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestSplitLinks(t *testing.T) {
	links := SplitLinks("t.me/one\n\n  t.me/two  \nt.me/three\n")
	assert.Equal(t, []string{"t.me/one", "t.me/two", "t.me/three"}, links)

	assert.Nil(t, SplitLinks(""))
	assert.Nil(t, SplitLinks("\n\n  \n"))
}
