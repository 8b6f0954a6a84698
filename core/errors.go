package core

import (
	"errors"
)

var (
	// ErrAuthentication marks requests whose signature or task credentials could not be verified
	ErrAuthentication = errors.New("authentication failed")

	// ErrProtocol marks interactions with an unexpected type, shape or command
	ErrProtocol = errors.New("protocol error")

	// ErrConfiguration marks missing credentials or identifiers
	ErrConfiguration = errors.New("configuration error")

	// ErrUpstream marks failures of the token exchange, roster storage or followup calls
	ErrUpstream = errors.New("upstream error")
)

func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocol)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrUpstream)
}
