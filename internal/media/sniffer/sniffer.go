package sniffer

import (
	"bytes"
	"errors"
	"net/textproto"
	"strings"
)

// Visit photos are restricted to the formats the mobile clients produce.
type ImageType string

const (
	TypeJPEG ImageType = "jpeg"
	TypePNG  ImageType = "png"
	TypeGIF  ImageType = "gif"
)

var ErrUnknownType = errors.New("unknown image type")

type Result struct {
	Type ImageType
	MIME string
}

// Detect identifies the payload from its magic bytes, independent of any
// client-declared content type.
func Detect(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrUnknownType
	}

	if isJPEG(data) {
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	}
	if isPNG(data) {
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	}
	if isGIF(data) {
		return Result{Type: TypeGIF, MIME: "image/gif"}, nil
	}

	return Result{}, ErrUnknownType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

// NormalizeMIME strips parameters from a declared content type.
func NormalizeMIME(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// MIMEFromHeader extracts the declared content type from a multipart part.
func MIMEFromHeader(header textproto.MIMEHeader) string {
	return NormalizeMIME(header.Get("Content-Type"))
}
