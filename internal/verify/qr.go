package verify

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRDecoder extracts the payload of a QR code from an image file. A receipt
// without a readable code returns an empty payload, not an error.
type QRDecoder interface {
	Decode(imagePath string) (string, error)
}

// ZXingDecoder decodes QR codes with the zxing port.
type ZXingDecoder struct{}

// NewZXingDecoder returns the default QR decoder.
func NewZXingDecoder() *ZXingDecoder {
	return &ZXingDecoder{}
}

// Decode returns the QR payload, or empty when no code is found.
func (d *ZXingDecoder) Decode(imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize image: %w", err)
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		// Not-found is the common case for photos without a code.
		return "", nil
	}
	return result.GetText(), nil
}
