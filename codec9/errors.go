package codec9

import "github.com/chilidb/chili/value"

var (
	errShortRead = value.NewError(value.KindNotAbleToDeserialize, "v9: truncated record")
)
