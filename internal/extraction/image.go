package extraction

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// Receipts photographed below this resolution are unreadable for the model;
// they are rejected up front instead of burning a model call.
const (
	minImageWidth  = 100
	minImageHeight = 100
)

// prepareImage normalizes any supported input (JPEG, PNG, GIF, HEIC, PDF)
// into PNG bytes and enforces the minimum resolution. Every failure here is
// an invalid-input failure: nothing has touched the model yet.
func prepareImage(data []byte, contentType string) ([]byte, error) {
	if len(data) == 0 {
		return nil, newError(KindInvalidInput, "empty image data")
	}

	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() < minImageWidth || bounds.Dy() < minImageHeight {
		return nil, newError(KindInvalidInput, "image resolution %dx%d below minimum %dx%d",
			bounds.Dx(), bounds.Dy(), minImageWidth, minImageHeight)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, newError(KindInvalidInput, "encoding png: %v", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte, mimeType string) (image.Image, error) {
	switch {
	case mimeType == "application/pdf":
		return pdfToImage(data)
	case isHEIC(data, mimeType):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, newError(KindInvalidInput, "decoding heic image: %v", err)
		}
		return img, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, newError(KindInvalidInput, "decoding image: %v", err)
		}
		return img, nil
	}
}

// pdfToImage renders the first page; receipts are single-page in practice.
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, newError(KindInvalidInput, "opening pdf: %v", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, newError(KindInvalidInput, "rendering pdf page: %v", err)
	}
	return img, nil
}

// isHEIC detects iPhone HEIC/HEIF photos, which the stdlib decoder does not
// handle. The ftyp box brand sits at offset 8.
func isHEIC(data []byte, mimeType string) bool {
	if strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return true
	}
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
	}
	return false
}
