package postgres_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool/testenv"
	"github.com/cozyartz/etchNFT/pkg/domain"
	domerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	kpgupload "github.com/cozyartz/etchNFT/pkg/domain/upload/db/postgres"
	"github.com/cozyartz/etchNFT/pkg/utils/try"
)

func artwork(email string, name string) domain.Upload {
	return domain.Upload{
		Email:      email,
		Name:       name,
		Filename:   name + ".png",
		FileType:   "image/png",
		Data:       []byte("\x89PNG\r\n\x1a\n" + name),
		MintTxHash: "0xabc",
	}
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	pool := testenv.NewPoolBroaker(ctx, t).GetPool(ctx, t)
	testee := kpgupload.New(pool)

	first := try.To(testee.Create(ctx, artwork("alice@example.com", "sunrise"))).OrFatal(t)
	if first.Id == "" || first.Status != domain.Uploaded || first.FileSize != len(first.Data) {
		t.Errorf("unexpected upload: %+v", first)
	}
	second := try.To(testee.Create(ctx, artwork("alice@example.com", "sunset"))).OrFatal(t)
	try.To(testee.Create(ctx, artwork("bob@example.com", "night"))).OrFatal(t)

	t.Run("it returns the upload with its image", func(t *testing.T) {
		got := try.To(testee.Get(ctx, first.Id)).OrFatal(t)
		if got.Name != "sunrise" || !bytes.Equal(got.Data, first.Data) || got.MintTxHash != "0xabc" {
			t.Errorf("unexpected upload: %+v", got)
		}
	})

	t.Run("unknown uploads are missing", func(t *testing.T) {
		if _, err := testee.Get(ctx, "no-such-upload"); !errors.Is(err, domerr.ErrMissing) {
			t.Errorf("error = %v", err)
		}
		if err := testee.SetStatus(ctx, "no-such-upload", domain.Ordered); !errors.Is(err, domerr.ErrMissing) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("uploads of the email are listed newest first without images", func(t *testing.T) {
		found := try.To(testee.Find(ctx, "Alice@Example.com")).OrFatal(t)
		if len(found) != 2 || found[0].Id != second.Id || found[1].Id != first.Id {
			t.Fatalf("unexpected uploads: %+v", found)
		}
		if found[0].Data != nil {
			t.Errorf("image is loaded: %d bytes", len(found[0].Data))
		}
	})

	t.Run("the status can be changed", func(t *testing.T) {
		if err := testee.SetStatus(ctx, first.Id, domain.Ordered); err != nil {
			t.Fatal(err)
		}
		got := try.To(testee.Get(ctx, first.Id)).OrFatal(t)
		if got.Status != domain.Ordered {
			t.Errorf("status = %s", got.Status)
		}
	})
}
