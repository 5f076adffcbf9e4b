package model

import "errors"

var (
	// ErrSessionNotFound is returned when a session is not known to the gateway.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTokenRequired is returned when an operation needs an auth token and none is set.
	ErrTokenRequired = errors.New("auth token is required")

	// ErrNoQRCode is returned when a session has no actionable QR code.
	// A connected session never has one.
	ErrNoQRCode = errors.New("no QR code available")

	// ErrGatewayRejected is returned when the gateway answered with success=false.
	ErrGatewayRejected = errors.New("gateway rejected request")
)
