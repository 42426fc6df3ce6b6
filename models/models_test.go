package models_test

import (
	"encoding/json"
	"errors"
	"instaplan/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "plain day", input: "2024-01-10", expected: "2024-01-10"},
		{name: "timestamp with offset keeps written day", input: "2024-01-10T23:30:00.000+02:00", expected: "2024-01-10"},
		{name: "utc timestamp", input: "2024-03-01T08:00:00Z", expected: "2024-03-01"},
		{name: "naive timestamp", input: "2024-03-01T08:00:00", expected: "2024-03-01"},
		{name: "garbage", input: "next tuesday", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, err := models.ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, date.String())
		})
	}
}

func TestDateAddDaysCrossesMonths(t *testing.T) {
	date := models.NewDate(2024, time.February, 28)
	assert.Equal(t, "2024-02-29", date.AddDays(1).String())
	assert.Equal(t, "2024-03-01", date.AddDays(2).String())
	assert.Equal(t, "2024-02-27", date.AddDays(-1).String())
}

func TestDateJSON(t *testing.T) {
	post := models.Post{Id: "a", Date: models.NewDate(2024, time.January, 10)}
	data, err := json.Marshal(post)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":"2024-01-10"`)

	var decoded models.Post
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Date.Equal(post.Date.Time))
}

func TestWithDateDoesNotShareMedia(t *testing.T) {
	post := models.Post{Id: "a", MediaUrls: []string{"https://x/a.jpg"}}
	moved := post.WithDate(models.NewDate(2024, time.May, 1))
	moved.MediaUrls[0] = "changed"

	assert.Equal(t, "https://x/a.jpg", post.MediaUrls[0])
	assert.True(t, post.Date.IsZero())
}

func TestValidateCredential(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		valid      bool
	}{
		{name: "new format", credential: "ntn_abc", valid: true},
		{name: "legacy format", credential: "secret_abc", valid: true},
		{name: "empty", credential: "", valid: false},
		{name: "blank", credential: "   ", valid: false},
		{name: "unknown prefix", credential: "sk_abc", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := models.ValidateCredential(tt.credential)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var validationErr *models.ValidationError
			assert.True(t, errors.As(err, &validationErr))
			assert.Equal(t, "credential", validationErr.Field)
		})
	}
}

func TestNormalizeContainerId(t *testing.T) {
	id, err := models.NormalizeContainerId("0123abcd-0123-abcd-0123-0123456789ab")
	require.NoError(t, err)
	assert.Equal(t, "0123abcd0123abcd01230123456789ab", id)

	_, err = models.NormalizeContainerId("short")
	assert.Error(t, err)

	_, err = models.NormalizeContainerId("")
	assert.Error(t, err)
}

func TestSourceKeyAndLabel(t *testing.T) {
	src := models.Source{ContainerId: "db"}
	assert.Equal(t, "db", src.Key())
	assert.Equal(t, "db", src.DisplayLabel())

	src.Id = "main"
	assert.Equal(t, "main", src.Key())
	assert.Equal(t, "main", src.DisplayLabel())

	src.Label = "Main calendar"
	assert.Equal(t, "Main calendar", src.DisplayLabel())
}
