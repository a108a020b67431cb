package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	apiuploads "github.com/cozyartz/etchNFT/pkg/api/types/uploads"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kupload "github.com/cozyartz/etchNFT/pkg/domain/upload/db"
	"github.com/cozyartz/etchNFT/pkg/utils"
)

// UploadHandler stores an artwork of a customer to be etched.
//
// The body is multipart/form-data with fields
// "file", "name", "description", "userEmail", "mintTxHash", "mintSignature" and "walletAddress".
// Without "mintTxHash" nor "mintSignature", it answers 402.
func UploadHandler(uploads kupload.UploadInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return apierr.BadRequest(`"file" is required`, err)
		}
		name := strings.TrimSpace(c.FormValue("name"))
		email := strings.TrimSpace(c.FormValue("userEmail"))
		if name == "" || email == "" {
			return apierr.BadRequest(`"name" and "userEmail" are required`, nil)
		}
		if _, err := mail.ParseAddress(email); err != nil {
			return apierr.BadRequest(`"userEmail" should be an e-mail address`, err)
		}

		txHash := c.FormValue("mintTxHash")
		signature := c.FormValue("mintSignature")
		if txHash == "" && signature == "" {
			return apierr.PaymentRequired("mint the artwork before uploading it", nil)
		}

		if domain.MaxUploadBytes < fh.Size {
			return apierr.BadRequest(fmt.Sprintf("the file should be up to %dMB", domain.MaxUploadBytes>>20), nil)
		}
		f, err := fh.Open()
		if err != nil {
			return apierr.BadRequest("the file cannot be read", err)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, domain.MaxUploadBytes+1))
		if err != nil {
			return apierr.BadRequest("the file cannot be read", err)
		}
		if domain.MaxUploadBytes < len(data) {
			return apierr.BadRequest(fmt.Sprintf("the file should be up to %dMB", domain.MaxUploadBytes>>20), nil)
		}
		if len(data) == 0 {
			return apierr.BadRequest("the file is empty", nil)
		}

		fileType := http.DetectContentType(data)
		if !slices.Contains(domain.UploadTypes, fileType) {
			return apierr.BadRequest("the file should be JPEG, PNG, GIF or WebP", nil)
		}

		u, err := uploads.Create(c.Request().Context(), domain.Upload{
			Email:         email,
			Name:          name,
			Description:   c.FormValue("description"),
			Filename:      fh.Filename,
			FileType:      fileType,
			Data:          data,
			MintTxHash:    txHash,
			MintSignature: signature,
			Wallet:        c.FormValue("walletAddress"),
		})
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusCreated, apiuploads.Compose(u))
	}
}

// FindUploadsHandler lists uploads of the customer e-mail, newest first. Query: userEmail.
func FindUploadsHandler(uploads kupload.UploadInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		email := c.QueryParam("userEmail")
		if _, err := mail.ParseAddress(email); email == "" || err != nil {
			return apierr.BadRequest(`"userEmail" should be an e-mail address`, err)
		}
		found, err := uploads.Find(c.Request().Context(), email)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(found, apiuploads.Compose))
	}
}

// UploadImageHandler serves the image of the upload.
func UploadImageHandler(uploads kupload.UploadInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := uploads.Get(c.Request().Context(), c.Param(param))
		if err != nil {
			return asHTTPError(err)
		}
		c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		return c.Blob(http.StatusOK, u.FileType, u.Data)
	}
}
