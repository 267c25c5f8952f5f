package validation

const (
	// MaxBodySize is the default cap on JSON request bodies.
	MaxBodySize = 64 * 1024

	// MaxImageSize bounds multipart image uploads.
	MaxImageSize = 8 << 20

	// MaxSearchLength bounds list search terms; longer input is cut.
	MaxSearchLength = 200
)
