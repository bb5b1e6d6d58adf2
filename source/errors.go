package source

import (
	"errors"
	"net/http"
)

// ErrInvalidAddress signals an empty or unusable endpoint address
var ErrInvalidAddress = errors.New("invalid endpoint address")

// ErrInvalidFrame signals a stream frame that is not a JSON metrics object
var ErrInvalidFrame = errors.New("invalid metrics frame")

// ErrNotConnected signals an operation on an endpoint without an established connection
var ErrNotConnected = errors.New("endpoint not connected")

type errStatusNotOK int

func (e errStatusNotOK) Error() string {
	return "non-2xx HTTP status code: " + http.StatusText(int(e))
}
