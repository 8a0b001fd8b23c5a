package app

import "errors"

// Sentinel errors for the app package.
var (
	ErrPurge     = errors.New("purge prior import")
	ErrWatermark = errors.New("resolve watermark")
	ErrAudit     = errors.New("audit log")
	ErrDecode    = errors.New("decode dump")
)
