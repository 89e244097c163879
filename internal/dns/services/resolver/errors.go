package resolver

import "errors"

// Alias (CNAME) chasing sentinel errors.
var (
	ErrAliasDepthExceeded = errors.New("alias resolution max depth exceeded")
	ErrAliasLoopDetected  = errors.New("alias loop detected")
	ErrAliasTargetInvalid = errors.New("alias target invalid")
	ErrAliasQuestionBuild = errors.New("alias question build failed")
)

// Zone cache sentinel errors.
var (
	ErrInvalidZoneRoot   = errors.New("invalid zone root")
	ErrZoneNotFound      = errors.New("zone not found")
	ErrAuthorityNotFound = errors.New("authority record not found")
)
