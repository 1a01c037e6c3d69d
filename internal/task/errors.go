package task

import "errors"

var (
	ErrNotFound      = errors.New("task not found")
	ErrScopeRequired = errors.New("task is part of a recurring series: choose series or single deletion")
	ErrTagNotFound   = errors.New("tag not found")
	ErrTagExists     = errors.New("tag already exists")
	ErrEmptyTagName  = errors.New("tag name cannot be empty")
	ErrInvalidBackup = errors.New("invalid backup")
	ErrEmptyBackup   = errors.New("backup contains neither tasks nor tags")
)
