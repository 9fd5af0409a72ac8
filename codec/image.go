package codec

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/milk9111/assetman/asset"
	"golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Image decodes png, jpeg, gif, bmp and webp files. It encodes bmp and jpeg
// by extension and png otherwise.
type Image struct{}

func (Image) Decode(name string, data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, asset.DecodeError(name, "image", err)
	}
	return img, nil
}

func (Image) Encode(name string, img image.Image) ([]byte, error) {
	if img == nil {
		return nil, asset.EncodeError(name, "nil image", nil)
	}
	var buf bytes.Buffer
	var err error
	switch Ext(name) {
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "jpg", "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, asset.EncodeError(name, "image", err)
	}
	return buf.Bytes(), nil
}
