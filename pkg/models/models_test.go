package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ttscraper/pkg/errors"
)

func TestCursorUnmarshal(t *testing.T) {
	tests := []struct {
		body string
		want Cursor
	}{
		{`{"cursor": 40}`, 40},
		{`{"cursor": "1700000000000"}`, 1700000000000},
		{`{"cursor": ""}`, 0},
		{`{"cursor": null}`, 0},
		{`{}`, 0},
	}
	for _, tt := range tests {
		var resp ItemListResponse
		require.NoError(t, json.Unmarshal([]byte(tt.body), &resp), tt.body)
		assert.Equal(t, tt.want, resp.Cursor, tt.body)
	}

	var resp ItemListResponse
	assert.Error(t, json.Unmarshal([]byte(`{"cursor": "abc"}`), &resp))
}

func TestFailureOutcome(t *testing.T) {
	assert.Equal(t, OutcomeTransientError, Failure(errors.New(errors.ErrorTypeRateLimit, 429, "slow down")).Outcome)
	assert.Equal(t, OutcomeTerminalError, Failure(errors.New(errors.ErrorTypeNotFound, 400, "gone")).Outcome)
	assert.Equal(t, "empty", Empty().Outcome.String())
}

func TestRawItemImagePost(t *testing.T) {
	body := `{"id":"1","imagePost":{"images":[{"imageURL":{"urlList":["https://img/1.jpg","https://img/1b.jpg"]}}]}}`
	var item RawItem
	require.NoError(t, json.Unmarshal([]byte(body), &item))
	require.NotNil(t, item.ImagePost)
	assert.Nil(t, item.Video)
	assert.Equal(t, "https://img/1.jpg", item.ImagePost.Images[0].ImageURL.URLList[0])
}
