package domain

import (
	"fmt"
	"time"
)

type UploadStatus string

const (
	Uploaded UploadStatus = "uploaded"

	// an order for the upload is placed.
	Ordered UploadStatus = "ordered"
)

func AsUploadStatus(s string) (UploadStatus, error) {
	switch st := UploadStatus(s); st {
	case Uploaded, Ordered:
		return st, nil
	}
	return "", fmt.Errorf("unknown upload status: %s", s)
}

// MaxUploadBytes is the largest artwork accepted.
const MaxUploadBytes = 10 << 20

// UploadTypes are media types of artworks accepted.
var UploadTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Upload is an artwork of a customer to be etched.
type Upload struct {
	Id          string
	Email       string
	Name        string
	Description string

	Filename string
	FileType string
	FileSize int

	// image bytes. Empty when listed.
	Data []byte

	Status UploadStatus

	// proof that the artwork is minted. Either of them is given.
	MintTxHash    string
	MintSignature string
	Wallet        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ImageURL is the path where the upload is served.
func (u Upload) ImageURL() string {
	return "/api/uploads/" + u.Id + "/image"
}
