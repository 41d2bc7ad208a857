package backend

import "errors"

// Sentinel kinds for backend errors.
var (
	// ErrEmptyResult is returned when a query that must yield a row yields none.
	ErrEmptyResult = errors.New("backend returned no results")
	// ErrParse is returned when the Parse server answers with an error body.
	ErrParse = errors.New("parse server error")
	// ErrStatus is returned for non-2xx responses without a Parse error body.
	ErrStatus = errors.New("unexpected backend status")
	// ErrMalformed is returned when a response body cannot be decoded.
	ErrMalformed = errors.New("malformed backend response")
)
