package models

import "errors"

// ErrTransientConnection marks connection failures that are worth
// retrying. The session manager retries only errors wrapping this
// sentinel; everything else propagates immediately.
var ErrTransientConnection = errors.New("transient connection error")

// ErrConnectionFailure is returned once the session manager has
// exhausted its attempt budget. Fatal for the affected ingestion unit.
var ErrConnectionFailure = errors.New("connection failure")

// ErrAnchorResolution is returned when the anchor probe fails to
// converge within its iteration cap or the cursor stops decreasing.
var ErrAnchorResolution = errors.New("anchor resolution failure")
