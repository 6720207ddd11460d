package ingest

import "errors"

var ErrJobNotFound = errors.New("ingest job not found")
