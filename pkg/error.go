package pkg

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedStream               = errors.New("truncated stream")
	ErrInvalidSize                   = errors.New("invalid atom size")
	ErrInvalidFileHeader             = errors.New("invalid file header")
	ErrInvalidSegment                = errors.New("invalid segment")
	ErrInvalidInitSegment            = fmt.Errorf("%w: init segment", ErrInvalidSegment)
	ErrInvalidContextID              = errors.New("invalid context id")
	ErrInvalidItemID                 = errors.New("invalid item id")
	ErrInvalidSampleDescriptionIndex = errors.New("invalid sample description index")
	ErrUnsupportedCodec              = errors.New("unsupported codec")
	ErrMemoryTooSmallBuffer          = errors.New("memory too small buffer")
	ErrOperationFailed               = errors.New("operation failed")
	ErrPropertyNotFound              = errors.New("property not found")
)
