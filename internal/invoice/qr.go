package invoice

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"ms-invoicing/internal/models"

	"github.com/skip2/go-qrcode"
)

var ErrInvalidReference = errors.New("invalid invoice reference")

// Reference is what a printed invoice's QR code carries.
type Reference struct {
	InvoiceNo      string
	RegistrationID string
	Total          string
	Status         models.PaymentStatus
}

func (r Reference) String() string {
	return strings.Join([]string{r.InvoiceNo, r.RegistrationID, r.Total, string(r.Status)}, "|")
}

// QRGenerator renders signed invoice references as PNG QR codes.
type QRGenerator struct {
	secret []byte
	size   int
}

func NewQRGenerator(secret string, size int) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	if size <= 0 {
		size = 256
	}
	return &QRGenerator{secret: hashed[:], size: size}
}

func ReferenceFor(reg models.Registration) Reference {
	return Reference{
		InvoiceNo:      reg.InvoiceNo,
		RegistrationID: reg.ID,
		Total:          reg.TotalAmount.String(),
		Status:         reg.PaymentStatus,
	}
}

// Payload is the reference followed by a truncated HMAC of it.
func (q *QRGenerator) Payload(ref Reference) string {
	return ref.String() + "|" + q.sign(ref.String())
}

func (q *QRGenerator) GeneratePNG(reg models.Registration) ([]byte, error) {
	png, err := qrcode.Encode(q.Payload(ReferenceFor(reg)), qrcode.Medium, q.size)
	if err != nil {
		return nil, fmt.Errorf("encode invoice QR: %w", err)
	}
	return png, nil
}

// Verify parses a scanned payload and checks its signature.
func (q *QRGenerator) Verify(payload string) (Reference, error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 5 {
		return Reference{}, ErrInvalidReference
	}
	ref := Reference{
		InvoiceNo:      parts[0],
		RegistrationID: parts[1],
		Total:          parts[2],
		Status:         models.PaymentStatus(parts[3]),
	}
	if !hmac.Equal([]byte(parts[4]), []byte(q.sign(ref.String()))) {
		return Reference{}, ErrInvalidReference
	}
	return ref, nil
}

func (q *QRGenerator) sign(data string) string {
	mac := hmac.New(sha256.New, q.secret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}
