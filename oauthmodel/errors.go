package oauthmodel

import "errors"

var (
	ErrMalformedTokenRequest = errors.New("malformed token request body")
)
