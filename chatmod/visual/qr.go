// QR extraction for images attached to messages. Decoding itself runs in an
// external service; this package holds the client and the decoder contract
// used by the classifier.
package visual

import (
	"context"
)

// Decodes a QR code from a local image file. Returns empty text when the image
// holds no decodable code. Errors are advisory; callers treat any failure as
// "no code found".
type QRDecoder interface {
	Decode(ctx context.Context, imagePath string) (string, error)
}
