package metadata

import "fmt"

// MetaErrorKind enumerates metadata failures.
type MetaErrorKind uint8

const (
	MetaErrMissingPlan MetaErrorKind = iota + 1
	MetaErrEncode
	MetaErrDecode
	MetaErrVersion
	MetaErrCorrupt
)

// MetadataError reports a failure to build, encode or read metadata.
type MetadataError struct {
	Kind   MetaErrorKind
	Detail string
	Err    error
}

func (e *MetadataError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var msg string
	switch e.Kind {
	case MetaErrMissingPlan:
		msg = "no final plan for " + e.Detail
	case MetaErrEncode:
		msg = "cannot encode metadata"
	case MetaErrDecode:
		msg = "cannot decode metadata"
	case MetaErrVersion:
		msg = "unsupported metadata version " + e.Detail
	case MetaErrCorrupt:
		msg = "corrupt metadata: " + e.Detail
	default:
		msg = fmt.Sprintf("metadata error (kind=%d)", e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *MetadataError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
