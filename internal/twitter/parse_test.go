package twitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUserID_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"primary path", `{"data":{"id":"42"}}`, "42"},
		{"nested user object", `{"data":{"user":{"id":"43"}}}`, "43"},
		{"top level", `{"id":"44"}`, "44"},
		{"numeric id", `{"data":{"id":1234567890}}`, "1234567890"},
		{"numeric id above 2^53", `{"data":{"id":1888888888888888888}}`, "1888888888888888888"},
		{"missing entirely", `{"data":{"name":"x"}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractUserID([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractUserID_InvalidJSON(t *testing.T) {
	_, err := extractUserID([]byte(`not json`))
	require.Error(t, err)
}

func TestExtractLatestPost_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantID  string
		wantTxt string
	}{
		{"nested under data", `{"data":{"tweets":[{"id":"9","text":"hi"}]}}`, "9", "hi"},
		{"top level tweets", `{"tweets":[{"id":"10","text":"yo"}]}`, "10", "yo"},
		{"data as array", `{"data":[{"id":"11","text":"hey"}]}`, "11", "hey"},
		{"full_text fallback", `{"tweets":[{"id":"12","full_text":"long"}]}`, "12", "long"},
		{"numeric id", `{"tweets":[{"id":1888,"text":"n"}]}`, "1888", "n"},
		{"numeric id above 2^53", `{"tweets":[{"id":1888888888888888888,"text":"big"}]}`, "1888888888888888888", "big"},
		{"skips malformed entries", `{"tweets":[{"text":"no id"},{"id":"13","text":"ok"}]}`, "13", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, err := extractLatestPost([]byte(tt.payload))
			require.NoError(t, err)
			require.NotNil(t, post)
			assert.Equal(t, tt.wantID, post.ID)
			assert.Equal(t, tt.wantTxt, post.Text)
		})
	}
}

func TestExtractLatestPost_NoData(t *testing.T) {
	post, err := extractLatestPost([]byte(`{"data":{"tweets":[]}}`))
	require.NoError(t, err)
	assert.Nil(t, post)
}
