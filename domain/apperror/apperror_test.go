package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		code     Code
		expected Category
	}{
		{CodeMissingFolder, CategoryConfiguration},
		{CodeSessionRevoked, CategoryTransport},
		{CodeDownloadTimeout, CategoryTransport},
		{CodeFileTooLarge, CategoryStaging},
		{CodeNotAFolder, CategoryStorage},
		{CodeUnknown, CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, CategoryOf(New(tt.code, "x")))
		})
	}
	assert.Equal(t, CategoryUnknown, CategoryOf(errors.New("plain")))
}

func TestGetCode_ThroughWrapping(t *testing.T) {
	base := New(CodeListTimeout, "listing messages timed out")
	wrapped := fmt.Errorf("locate: %w", base)

	assert.Equal(t, CodeListTimeout, GetCode(wrapped))
	assert.True(t, IsTransportTimeout(wrapped))
	assert.False(t, IsTransportTimeout(New(CodeNoVideo, "none")))
	assert.True(t, IsTransportTimeout(New(CodeConnectTimeout, "connect")))
	assert.Equal(t, CategoryTransport, CategoryOf(New(CodeConnectTimeout, "connect")))
	assert.Equal(t, CodeUnknown, GetCode(errors.New("boom")))
}

func TestUnknown_AddsContextOnlyForUnclassifiedErrors(t *testing.T) {
	err := Unknown(errors.New("mongo down"), "precheck", "c1", "u1")
	require.Equal(t, CodeUnknown, err.Code)
	assert.Equal(t, "precheck", err.Context["step"])
	assert.Equal(t, "c1", err.Context["channel_id"])
	assert.Equal(t, "u1", err.Context["user_id"])

	typed := New(CodeNoVideo, "no video")
	assert.Same(t, typed, Unknown(typed, "download", "c1", "u1"))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "", Display(nil))
	assert.Equal(t, "no destination folder", Display(New(CodeMissingFolder, "no destination folder")))
	assert.Equal(t, "friendly", Display(New(CodeUnknown, "raw").WithUserMessage("friendly")))
	assert.Equal(t, "upload failed: quota", Display(Wrap(errors.New("quota"), CodeUploadFailed, "upload failed")))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("get history: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(context.Canceled))
}
