package codec6

import "github.com/chilidb/chili/value"

var (
	errShortRead    = value.NewError(value.KindNotAbleToDeserialize, "v6 lz: truncated compressed stream")
	errBadReference = value.NewError(value.KindNotAbleToDeserialize, "v6 lz: back-reference to unset pair table entry")
)
