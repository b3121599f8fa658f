package domain

import (
	"fmt"
	"regexp"
)

var encodedImagePattern = regexp.MustCompile(`^data:image/(\w+);base64,(.+)$`)

// EncodedImage is an inline image: MIME subtype plus untouched base64 payload.
type EncodedImage struct {
	Subtype string
	Payload string
}

// MIMEType returns the full media type, e.g. "image/png".
func (i EncodedImage) MIMEType() string {
	return "image/" + i.Subtype
}

// String renders the image back into its data-URL form.
func (i EncodedImage) String() string {
	return fmt.Sprintf("data:image/%s;base64,%s", i.Subtype, i.Payload)
}

// ParseEncodedImage splits "data:image/<subtype>;base64,<payload>".
// The payload is returned as-is; it is neither decoded nor re-encoded.
func ParseEncodedImage(value string) (EncodedImage, error) {
	m := encodedImagePattern.FindStringSubmatch(value)
	if m == nil {
		return EncodedImage{}, &ValidationError{Field: "imageData", Message: "invalid image data format"}
	}
	return EncodedImage{Subtype: m[1], Payload: m[2]}, nil
}

// ParseEncodedImages parses every element in order. An empty list is a validation error.
func ParseEncodedImages(values []string) ([]EncodedImage, error) {
	if len(values) == 0 {
		return nil, &ValidationError{Field: "imageData", Message: "no image data provided"}
	}
	out := make([]EncodedImage, 0, len(values))
	for i, v := range values {
		img, err := ParseEncodedImage(v)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out = append(out, img)
	}
	return out, nil
}
