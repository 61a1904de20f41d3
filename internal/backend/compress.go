package backend

import "strings"

// EncodingZstd is the content coding negotiated between client and server.
const EncodingZstd = "zstd"

// AcceptsZstd reports whether an Accept-Encoding or Content-Encoding header
// names zstd.
func AcceptsZstd(header string) bool {
	for part := range strings.SplitSeq(header, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(name, EncodingZstd) {
			return true
		}
	}
	return false
}
