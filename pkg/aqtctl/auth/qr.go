package auth

import (
	"fmt"
	"io"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// Blank modules are written as no-break spaces so terminals that collapse or
// trim runs of spaces keep the code intact.
const (
	qrBoth   = "█"
	qrTop    = "▀"
	qrBottom = "▄"
	qrNone   = "\u00a0"
)

// RenderQR encodes content as a QR code drawn with half-block characters,
// two module rows per text line.
func RenderQR(content string) (string, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	bounds := code.Bounds()
	var sb strings.Builder
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			top := isDark(code, x, y)
			bottom := y+1 < bounds.Max.Y && isDark(code, x, y+1)
			switch {
			case top && bottom:
				sb.WriteString(qrBoth)
			case top:
				sb.WriteString(qrTop)
			case bottom:
				sb.WriteString(qrBottom)
			default:
				sb.WriteString(qrNone)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func isDark(code barcode.Barcode, x, y int) bool {
	r, g, b, _ := code.At(x, y).RGBA()
	return r+g+b < 3*0x8000
}

// WriteQR renders content to out. Encoding failures are not fatal to the
// caller since the URI is printed alongside.
func WriteQR(out io.Writer, content string) error {
	art, err := RenderQR(content)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, art)
	return err
}
