package backend

import "errors"

// ErrNilEndpoint signals that a nil endpoint was provided
var ErrNilEndpoint = errors.New("nil endpoint")

// ErrAlreadyConnected signals that the backend already runs an ingestion loop
var ErrAlreadyConnected = errors.New("already connected")
