package hostenv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageInfo(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    PageInfo
		wantErr bool
	}{
		{
			name:  "bare",
			input: `{"URL":"https://example.com/path?x=1","title":"Example"}`,
			want:  PageInfo{URL: "https://example.com/path?x=1", Title: "Example"},
		},
		{
			name:  "wrapped",
			input: `{"NSExtensionJavaScriptPreprocessingResultsKey":{"URL":"https://sub.example.com","title":"Sub"}}`,
			want:  PageInfo{URL: "https://sub.example.com", Title: "Sub"},
		},
		{
			name:  "missing url",
			input: `{"title":"Only a title"}`,
			want:  PageInfo{Title: "Only a title"},
		},
		{name: "empty", input: "  \n", wantErr: true},
		{name: "not json", input: "https://example.com", wantErr: true},
		{name: "array", input: `[1,2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadPageInfo(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePageInfo_Empty(t *testing.T) {
	_, err := ParsePageInfo(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestFinalizePayload_Write(t *testing.T) {
	p := NewFinalizePayload("alert('<hi>');")

	var buf bytes.Buffer
	require.NoError(t, p.Write(&buf, false))
	assert.JSONEq(t, `{"customJavaScript":"alert('<hi>');"}`, buf.String())
	assert.Contains(t, buf.String(), "<hi>")

	buf.Reset()
	require.NoError(t, p.Write(&buf, true))
	assert.JSONEq(t,
		`{"NSExtensionJavaScriptFinalizeArgumentKey":{"customJavaScript":"alert('<hi>');"}}`,
		buf.String())
}
