package models

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ContentKind tags the payload variant carried by a message.
type ContentKind string

const (
	KindText  ContentKind = "text"
	KindImage ContentKind = "image"
)

const imagePrefix = "data:image/"

// ErrBadImage is returned for a data URI that claims to be an image but
// cannot be decoded.
var ErrBadImage = errors.New("malformed image data uri")

// Content is either a text body or an image with its mime type. The zero
// value is an empty text.
type Content struct {
	Kind     ContentKind
	Text     string
	Data     []byte
	MimeType string
}

// Text builds a text payload.
func Text(s string) Content {
	return Content{Kind: KindText, Text: s}
}

// Image builds an image payload. mimeType must be an image/* type.
func Image(data []byte, mimeType string) Content {
	return Content{Kind: KindImage, Data: data, MimeType: mimeType}
}

// IsEmpty reports whether there is nothing to send.
func (c Content) IsEmpty() bool {
	if c.Kind == KindImage {
		return len(c.Data) == 0
	}
	return c.Text == ""
}

// String returns the canonical wire form: the text itself, or a base64 data
// URI for images.
func (c Content) String() string {
	if c.Kind != KindImage {
		return c.Text
	}
	return "data:" + c.MimeType + ";base64," + base64.StdEncoding.EncodeToString(c.Data)
}

// ParseContent turns the wire form back into a Content. Anything that does
// not start with "data:image/" is text.
func ParseContent(s string) (Content, error) {
	if !strings.HasPrefix(s, imagePrefix) {
		return Text(s), nil
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return Content{}, ErrBadImage
	}
	mimeType, enc, ok := strings.Cut(header, ";")
	if !ok || enc != "base64" || mimeType == "image/" {
		return Content{}, ErrBadImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return Content{}, ErrBadImage
	}
	return Image(data, mimeType), nil
}
