package uploads

import (
	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/utils/rfctime"
)

type Upload struct {
	Id          string          `json:"uploadId"`
	Email       string          `json:"userEmail"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Filename    string          `json:"originalFilename,omitempty"`
	FileType    string          `json:"fileType"`
	FileSize    int             `json:"fileSize"`
	ImageURL    string          `json:"imageUrl"`
	Status      string          `json:"status"`
	MintTxHash  string          `json:"mintTxHash,omitempty"`
	Signature   string          `json:"mintSignature,omitempty"`
	Wallet      string          `json:"walletAddress,omitempty"`
	CreatedAt   rfctime.RFC3339 `json:"createdAt"`
}

func Compose(u domain.Upload) Upload {
	return Upload{
		Id:          u.Id,
		Email:       u.Email,
		Name:        u.Name,
		Description: u.Description,
		Filename:    u.Filename,
		FileType:    u.FileType,
		FileSize:    u.FileSize,
		ImageURL:    u.ImageURL(),
		Status:      string(u.Status),
		MintTxHash:  u.MintTxHash,
		Signature:   u.MintSignature,
		Wallet:      u.Wallet,
		CreatedAt:   rfctime.RFC3339(u.CreatedAt),
	}
}
