package domain

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationDirUnset = errors.New("conversation directory not set")
	ErrSecretNotFound       = errors.New("secret not found")
	ErrInvalidSettings      = errors.New("invalid settings")
	ErrEmptyPrompt          = errors.New("prompt is empty")
	ErrShellNotReady        = errors.New("backend shell not ready")
	ErrCodexNotInstalled    = errors.New("codex CLI not installed")
)
