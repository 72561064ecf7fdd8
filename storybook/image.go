package storybook

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/webp"
)

var imageTypes = map[string]string{
	"data:image/png;base64,":  "PNG",
	"data:image/jpeg;base64,": "JPG",
	"data:image/jpg;base64,":  "JPG",
	"data:image/webp;base64,": "WEBP",
}

// illustration embeds a data-URI image centered on the page. Unsupported
// formats and remote URLs are skipped: the book is still complete without
// the picture.
func (c *Compiler) illustration(pdf *gofpdf.Fpdf, imageRef string) {
	var imageType string
	var payload string
	for prefix, t := range imageTypes {
		if strings.HasPrefix(imageRef, prefix) {
			imageType = t
			payload = imageRef[len(prefix):]
			break
		}
	}
	if imageType == "" {
		log.Debug().Msg("skipping illustration with unsupported format")
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		log.Warn().Err(err).Msg("decoding illustration")
		return
	}
	// A mislabeled payload would poison the whole document, so the magic
	// bytes must agree with the declared type.
	if !magicMatches(data, imageType) {
		log.Warn().Msg("illustration payload does not match its declared format")
		return
	}
	// gofpdf has no webp support, so the horde backend's output is
	// transcoded to PNG before embedding.
	if imageType == "WEBP" {
		converted, ok := webpToPNG(data)
		if !ok {
			return
		}
		data, imageType = converted, "PNG"
	}

	name := fmt.Sprintf("illustration-%d", pdf.PageNo())
	opts := gofpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))

	// Centered, 120mm wide, height scaled by the library.
	pdf.ImageOptions(name, 45, pdf.GetY(), 120, 0, true, opts, 0, "")
	pdf.Ln(8)
}

func magicMatches(data []byte, imageType string) bool {
	switch imageType {
	case "PNG":
		return bytes.HasPrefix(data, []byte("\x89PNG"))
	case "JPG":
		return bytes.HasPrefix(data, []byte{0xff, 0xd8})
	case "WEBP":
		return len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) &&
			bytes.Equal(data[8:12], []byte("WEBP"))
	}
	return false
}

func webpToPNG(data []byte) ([]byte, bool) {
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warn().Err(err).Msg("decoding webp illustration")
		return nil, false
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Warn().Err(err).Msg("encoding transcoded illustration")
		return nil, false
	}
	return buf.Bytes(), true
}
