package apperror

import (
	"context"
	"errors"
	"fmt"
)

// Code identifies a reportable failure kind.
type Code string

// Category groups codes into the five failure families surfaced to callers.
type Category string

const (
	CategoryConfiguration Category = "configuration"
	CategoryTransport     Category = "transport"
	CategoryStaging       Category = "staging"
	CategoryStorage       Category = "storage"
	CategoryUnknown       Category = "unknown"
)

const (
	// Configuration
	CodeMissingSession Code = "MISSING_SESSION"
	CodeMissingChatID  Code = "MISSING_CHAT_ID"
	CodeMissingFolder  Code = "MISSING_FOLDER"

	// Transport
	CodeSessionRevoked  Code = "SESSION_REVOKED"
	CodeConnectTimeout  Code = "CONNECT_TIMEOUT"
	CodeListTimeout     Code = "LIST_TIMEOUT"
	CodeDownloadTimeout Code = "DOWNLOAD_TIMEOUT"
	CodeAnchorNotFound  Code = "ANCHOR_NOT_FOUND"
	CodeNoVideo         Code = "NO_VIDEO"

	// Staging
	CodeEmptyFile    Code = "EMPTY_FILE"
	CodeFileTooLarge Code = "FILE_TOO_LARGE"

	// Storage
	CodeFolderNotFound             Code = "FOLDER_NOT_FOUND"
	CodeNotAFolder                 Code = "NOT_A_FOLDER"
	CodeFolderPermissionDenied     Code = "FOLDER_PERMISSION_DENIED"
	CodeDelegatedCredentialInvalid Code = "DELEGATED_CREDENTIAL_INVALID"
	CodeUploadFailed               Code = "UPLOAD_FAILED"

	CodeUnknown Code = "UNKNOWN"
)

var categories = map[Code]Category{
	CodeMissingSession:             CategoryConfiguration,
	CodeMissingChatID:              CategoryConfiguration,
	CodeMissingFolder:              CategoryConfiguration,
	CodeSessionRevoked:             CategoryTransport,
	CodeConnectTimeout:             CategoryTransport,
	CodeListTimeout:                CategoryTransport,
	CodeDownloadTimeout:            CategoryTransport,
	CodeAnchorNotFound:             CategoryTransport,
	CodeNoVideo:                    CategoryTransport,
	CodeEmptyFile:                  CategoryStaging,
	CodeFileTooLarge:               CategoryStaging,
	CodeFolderNotFound:             CategoryStorage,
	CodeNotAFolder:                 CategoryStorage,
	CodeFolderPermissionDenied:     CategoryStorage,
	CodeDelegatedCredentialInvalid: CategoryStorage,
	CodeUploadFailed:               CategoryStorage,
}

// AppError is a structured error carrying a failure code and a display message.
type AppError struct {
	Code        Code                   `json:"code"`
	Message     string                 `json:"message"`
	Cause       error                  `json:"-"`
	Context     map[string]interface{} `json:"context,omitempty"`
	UserMessage string                 `json:"user_message,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Category returns the failure family of the error code.
func (e *AppError) Category() Category {
	if c, ok := categories[e.Code]; ok {
		return c
	}
	return CategoryUnknown
}

// WithContext adds a key/value pair describing where the error happened.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithUserMessage sets a message suitable for direct display.
func (e *AppError) WithUserMessage(msg string) *AppError {
	e.UserMessage = msg
	return e
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: err}
}

// As returns the first AppError in the chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the code of the first AppError in the chain, or CodeUnknown.
func GetCode(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeUnknown
}

func CategoryOf(err error) Category {
	if appErr, ok := As(err); ok {
		return appErr.Category()
	}
	return CategoryUnknown
}

func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// IsTransportTimeout reports whether a chat transport round trip ran out of time.
func IsTransportTimeout(err error) bool {
	code := GetCode(err)
	return code == CodeConnectTimeout || code == CodeListTimeout || code == CodeDownloadTimeout
}

// IsTimeout reports whether err was caused by an expired context deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// Display returns the message meant for end users.
func Display(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		if appErr.UserMessage != "" {
			return appErr.UserMessage
		}
		if appErr.Cause != nil {
			return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
		}
		return appErr.Message
	}
	return err.Error()
}

// Unknown wraps an unclassified collaborator error with where it happened.
func Unknown(err error, step, channelID, userID string) *AppError {
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, fmt.Sprintf("%s failed", step)).
		WithContext("step", step).
		WithContext("channel_id", channelID).
		WithContext("user_id", userID)
}
