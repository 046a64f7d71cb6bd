package drawing

import "errors"

var ErrMalformedAction = errors.New("malformed-action")
