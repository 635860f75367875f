package model

import (
	"errors"
)

// Error kinds shared by the parser, the analyses and the snapshot loaders.
// Callers wrap them with context and test with errors.Is.
var (
	ErrInvalidFilter          = errors.New("invalid filter")
	ErrUnrecognizedFilter     = errors.New("unrecognized filter")
	ErrUndecodableFingerprint = errors.New("undecodable fingerprint")
	ErrWrongFingerprintLength = errors.New("wrong fingerprint length")
	ErrWrongPolicy            = errors.New("wrong policy")
	ErrWrongIO                = errors.New("i/o failure")
	ErrRelayNotFound          = errors.New("relay fingerprint not found")
	ErrSnapshot               = errors.New("unusable snapshot")
)
