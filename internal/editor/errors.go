package editor

import "errors"

var (
	ErrNoSelection      = errors.New("no element selected")
	ErrUnknownElement   = errors.New("unknown element")
	ErrUnknownKind      = errors.New("unknown element kind")
	ErrUnknownTemplate  = errors.New("unknown template")
	ErrUnknownAsset     = errors.New("unknown media asset")
	ErrNotTextual       = errors.New("element content is not text")
	ErrAlreadyCaptured  = errors.New("pointer capture already held")
	ErrEmptyWorkspace   = errors.New("workspace is empty")
	ErrInvalidPageName  = errors.New("invalid page name")
	ErrInvalidSnapshot  = errors.New("invalid page snapshot")
	ErrUnknownEventType = errors.New("unknown pointer event type")
)
