// Package testwebp provides a small checked-in WebP image for tests:
// a 16x16 lossy bitmap with an alpha channel (VP8X + ALPH + VP8 chunks).
package testwebp

import (
	"encoding/base64"
	"strings"
)

const encoded = `UklGRqgBAABXRUJQVlA4WAoAAAAQAAAADwAADwAAQUxQSMMAAAABJ6KokSTleucYX+ffKpmImP90
cY3gJjDi4Yt3MsjBEVyDKzDosHgVjnhRNcEIDAJPkqBqsFUZHNa2bUYvTsZ2PLbtd/uvKa4hov9J
0f2PkPe6REkkGzolkTTzFG0Ox9PlFiD0CxS+kOGDtxoynjaCfx0pfk52CPuInrOR75lzRugygtv4
zEiy90UwfSD9NheMITJWLaXWayO8XeOlWRXVnIGk2W6WdYoYMQ+KqixQNPowgt+6a1BSKbUtz+lU
FAoBAAAAVlA4IL4AAACQAgCdASoQABAAAwA0JbACdDBPCIUMfAMdCCz96AD+/XSg/QKbH4r3Q3yc
N/bSDK/T/zVo4u6nvclvG/SqxWOuup+XhN9BojvaW+Tv+MvxvX/hr/o/5Qns9LtmX/+qKdl/yWzn
huasl7nkxvSTI4xf3Y85VSB/lU/8Ofj/b9JrA+ifvIOYZm2x1RP/dhfmsf5diuSfR7+z+r/+HR3z
Eo/+XM/B+vkYw73Pzx+ROaAB/ZoBSzEs3rzZe6qsAAAA`

// Bytes returns the WebP file content.
func Bytes() []byte {
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(encoded, "\n", ""))
	if err != nil {
		panic("testwebp: corrupt fixture: " + err.Error())
	}
	return data
}

// Width and Height of the fixture image.
const (
	Width  = 16
	Height = 16
)
