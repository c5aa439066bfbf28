package importer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// Payload is the check-in key printed into each attendee's QR code.
type Payload struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// RenderFunc turns payload text into an image data URL.
type RenderFunc func(content string) (string, error)

// RenderPNG encodes content as a PNG QR code data URL.
func RenderPNG(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// QRAssigner stamps candidates with a payload unique within the upload:
// startMillis plus the row index.
type QRAssigner struct {
	startMillis int64
	render      RenderFunc
}

func NewQRAssigner(startMillis int64, render RenderFunc) *QRAssigner {
	if render == nil {
		render = RenderPNG
	}
	return &QRAssigner{startMillis: startMillis, render: render}
}

// Assign fills QRData and QRCode on c.Attendee.
func (q *QRAssigner) Assign(c *Candidate) error {
	p := Payload{
		Name:      c.Name,
		Timestamp: q.startMillis + int64(c.RowIndex),
	}
	if c.Email != nil {
		p.Email = *c.Email
	}
	if c.Phone != nil {
		p.Phone = *c.Phone
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal qr payload: %w", err)
	}
	code, err := q.render(string(data))
	if err != nil {
		return err
	}

	c.Attendee.QRData = string(data)
	c.Attendee.QRCode = code
	return nil
}
