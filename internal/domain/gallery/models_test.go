package gallery

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatScore(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float64
		expected string
	}{
		{name: "nil", scores: nil, expected: "no data available"},
		{name: "empty", scores: []float64{}, expected: "no data available"},
		{name: "mean of three", scores: []float64{1, 2, 3}, expected: "2.0000 (3 detections)"},
		{name: "single", scores: []float64{0.98766}, expected: "0.9877 (1 detections)"},
		{name: "fractional mean", scores: []float64{0.1, 0.2}, expected: "0.1500 (2 detections)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatScore(tt.scores))
		})
	}
}

func TestLikeState(t *testing.T) {
	assert.Equal(t, "liked", Liked.String())
	assert.Equal(t, "unliked", Unliked.String())
	assert.Equal(t, Liked, Unliked.ToggleAction().Target())
	assert.Equal(t, Unliked, Liked.ToggleAction().Target())
	assert.Equal(t, ActionLike, Unliked.ToggleAction())
	assert.Equal(t, ActionUnlike, Liked.ToggleAction())
	assert.Equal(t, Liked, ActionLike.Target())
	assert.Equal(t, Unliked, ActionUnlike.Target())
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("like")
	require.NoError(t, err)
	assert.Equal(t, ActionLike, a)

	a, err = ParseAction("unlike")
	require.NoError(t, err)
	assert.Equal(t, ActionUnlike, a)

	_, err = ParseAction("love")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestCategoryURLs(t *testing.T) {
	assert.Equal(t, "/category/people", CategoryURL("people"))
	assert.Equal(t, "/all?page=2", CategoryPageURL("", 2))
	assert.Equal(t, "/category/a%2Fb/page/3", CategoryPageURL("a/b", 3))
	assert.True(t, IsShuffled(CategoryFavorites))
	assert.True(t, IsShuffled(CategoryUnfavorites))
	assert.False(t, IsShuffled("people"))
}

func TestAlertMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "application message", err: &ApplicationError{Message: "x"}, expected: "x"},
		{name: "application fallback", err: &ApplicationError{}, expected: UnknownErrorMessage},
		{name: "wrapped application", err: fmt.Errorf("toggle: %w", &ApplicationError{Message: "denied"}), expected: "denied"},
		{name: "status", err: &HTTPStatusError{StatusCode: 500}, expected: "HTTP error! status: 500"},
		{name: "network", err: &NetworkError{Err: errors.New("connection refused")}, expected: "network failure: connection refused"},
		{name: "malformed", err: &MalformedResponseError{Err: errors.New("unexpected EOF")}, expected: "malformed response: unexpected EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AlertMessage(tt.err))
		})
	}

	assert.Equal(t, "Operation failed: x", FailureAlert(&ApplicationError{Message: "x"}))
}

func TestNewApplicationError(t *testing.T) {
	err := NewApplicationError(400, map[string]any{"success": false, "message": "No paths provided"})
	assert.Equal(t, "No paths provided", err.Error())
	assert.Equal(t, 400, err.StatusCode)

	err = NewApplicationError(500, map[string]any{"error": "boom"})
	assert.Equal(t, "boom", err.Error())

	err = NewApplicationError(502, map[string]any{})
	assert.Equal(t, UnknownErrorMessage, err.Error())
}

func TestBatchSummary(t *testing.T) {
	assert.Equal(t, "Batch like finished: 2 succeeded, 1 not found", BatchSummary(2, 1))
	assert.Equal(t, "Batch like finished: 3 succeeded", BatchSummary(3, 0))
	assert.Equal(t, "Batch like finished: 0 succeeded, 4 not found", BatchSummary(0, 4))
}

func TestParseModalTarget(t *testing.T) {
	assert.Equal(t, TargetBackdrop, ParseModalTarget("backdrop"))
	assert.Equal(t, TargetContent, ParseModalTarget("content"))
	assert.Equal(t, TargetContent, ParseModalTarget(""))
}
