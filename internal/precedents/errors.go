package precedents

import "errors"

var ErrNotFound = errors.New("precedent not found")
