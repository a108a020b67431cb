package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool/testenv"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kpgdrop "github.com/cozyartz/etchNFT/pkg/domain/drop/db/postgres"
	domerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	"github.com/cozyartz/etchNFT/pkg/utils/try"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func genesis() domain.Drop {
	return domain.Drop{
		Slug: "genesis", Name: "Genesis",
		Price:    decimal.RequireFromString("120.00"),
		LaunchAt: ptr(now.Add(-24 * time.Hour)), EndAt: ptr(now.Add(24 * time.Hour)),
		Active: true, TotalSupply: 10, MaxPerUser: 1,
		Material: "wood",
	}
}

func readyItem(dropId string, name string) domain.DropItem {
	return domain.DropItem{
		DropId: dropId, Name: name,
		OriginalImageURL: "https://img.example.com/" + name + ".png",
		LaserFileStatus:  domain.LaserFileReady,
		Available:        true,
	}
}

func TestDrop_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	pool := testenv.NewPoolBroaker(ctx, t).GetPool(ctx, t)
	testee := kpgdrop.New(pool)

	live := try.To(testee.Create(ctx, genesis())).OrFatal(t)
	if live.Id == "" || !live.Price.Equal(decimal.NewFromInt(120)) || !live.LaunchAt.Equal(now.Add(-24*time.Hour)) {
		t.Errorf("unexpected drop: %+v", live)
	}

	upcoming := genesis()
	upcoming.Slug, upcoming.Featured = "upcoming", true
	upcoming.LaunchAt, upcoming.EndAt = ptr(now.Add(time.Hour)), nil
	try.To(testee.Create(ctx, upcoming)).OrFatal(t)

	t.Run("slug is unique", func(t *testing.T) {
		if _, err := testee.Create(ctx, genesis()); !errors.Is(err, domerr.ErrConflict) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("featured drops come first", func(t *testing.T) {
		all := try.To(testee.Find(ctx, domain.DropFindQuery{})).OrFatal(t)
		if len(all) != 2 || all[0].Slug != "upcoming" || all[1].Slug != "genesis" {
			t.Errorf("unexpected drops: %+v", all)
		}
	})

	t.Run("only live drops are found with LiveAt", func(t *testing.T) {
		found := try.To(testee.Find(ctx, domain.DropFindQuery{LiveAt: &now})).OrFatal(t)
		if len(found) != 1 || found[0].Id != live.Id {
			t.Errorf("unexpected drops: %+v", found)
		}
	})

	t.Run("items come with the slug", func(t *testing.T) {
		item := try.To(testee.CreateItem(ctx, readyItem(live.Id, "one"))).OrFatal(t)
		d, items := try.To2(testee.GetBySlug(ctx, "genesis")).OrFatal(t)
		if d.Id != live.Id || len(items) != 1 || items[0].Id != item.Id {
			t.Errorf("unexpected drop: %+v, %+v", d, items)
		}
	})

	t.Run("items of unknown drop are missing", func(t *testing.T) {
		if _, err := testee.CreateItem(ctx, readyItem("drop_missing", "x")); !errors.Is(err, domerr.ErrMissing) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("items are filtered by laser file status", func(t *testing.T) {
		pending := readyItem(live.Id, "two")
		pending.LaserFileStatus = domain.LaserFilePending
		two := try.To(testee.CreateItem(ctx, pending)).OrFatal(t)

		found := try.To(testee.Items(ctx, live.Id, domain.LaserFilePending)).OrFatal(t)
		if len(found) != 1 || found[0].Id != two.Id {
			t.Errorf("pending items: %+v", found)
		}
		all := try.To(testee.Items(ctx, live.Id, "")).OrFatal(t)
		if len(all) != 2 {
			t.Errorf("all items: %+v", all)
		}
		if _, err := testee.Items(ctx, "drop_missing", ""); !errors.Is(err, domerr.ErrMissing) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("deleting drops removes them", func(t *testing.T) {
		if err := testee.Delete(ctx, live.Id); err != nil {
			t.Fatal(err)
		}
		if _, err := testee.Get(ctx, live.Id); !errors.Is(err, domerr.ErrMissing) {
			t.Errorf("error = %v", err)
		}
		if err := testee.Delete(ctx, live.Id); !errors.Is(err, domerr.ErrMissing) {
			t.Errorf("deleting twice: %v", err)
		}
	})
}

func TestDrop_Reserve(t *testing.T) {
	ctx := context.Background()
	pool := testenv.NewPoolBroaker(ctx, t).GetPool(ctx, t)
	testee := kpgdrop.New(pool)

	drop := try.To(testee.Create(ctx, genesis())).OrFatal(t)
	first := try.To(testee.CreateItem(ctx, readyItem(drop.Id, "first"))).OrFatal(t)
	second := try.To(testee.CreateItem(ctx, readyItem(drop.Id, "second"))).OrFatal(t)

	_, held, err := testee.Reserve(ctx, first.Id, "alice@example.com", now, domain.ReservationTTL)
	if err != nil {
		t.Fatal(err)
	}
	if held.ReservedBy != "alice@example.com" || !held.ReservedUntil.Equal(now.Add(domain.ReservationTTL)) {
		t.Errorf("unexpected reservation: %+v", held)
	}

	t.Run("others cannot take a held item", func(t *testing.T) {
		_, _, err := testee.Reserve(ctx, first.Id, "bob@example.com", now.Add(time.Minute), domain.ReservationTTL)
		if !errors.Is(err, domerr.ErrNotPurchasable) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("the holder can reserve it again", func(t *testing.T) {
		if _, _, err := testee.Reserve(ctx, first.Id, "alice@example.com", now.Add(time.Minute), domain.ReservationTTL); err != nil {
			t.Error(err)
		}
	})

	t.Run("the limit per user counts reservations", func(t *testing.T) {
		_, _, err := testee.Reserve(ctx, second.Id, "alice@example.com", now.Add(time.Minute), domain.ReservationTTL)
		if !errors.Is(err, domerr.ErrNotPurchasable) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("expired reservations are released", func(t *testing.T) {
		released := try.To(testee.ReleaseExpired(ctx, now.Add(time.Hour))).OrFatal(t)
		if released != 1 {
			t.Errorf("released %d", released)
		}
		if _, _, err := testee.Reserve(ctx, first.Id, "bob@example.com", now.Add(time.Hour), domain.ReservationTTL); err != nil {
			t.Error(err)
		}
	})

	t.Run("released items can be reserved by others", func(t *testing.T) {
		if err := testee.Release(ctx, []string{first.Id}); err != nil {
			t.Fatal(err)
		}
		got := try.To(testee.GetItem(ctx, first.Id)).OrFatal(t)
		if got.ReservedUntil != nil || got.ReservedBy != "" {
			t.Errorf("reservation remains: %+v", got)
		}
	})

	t.Run("items of ended drops are not purchasable", func(t *testing.T) {
		_, _, err := testee.Reserve(ctx, second.Id, "carol@example.com", now.Add(48*time.Hour), domain.ReservationTTL)
		if !errors.Is(err, domerr.ErrNotPurchasable) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("items without laser file are not purchasable", func(t *testing.T) {
		pending := readyItem(drop.Id, "pending")
		pending.LaserFileStatus = domain.LaserFilePending
		item := try.To(testee.CreateItem(ctx, pending)).OrFatal(t)
		_, _, err := testee.Reserve(ctx, item.Id, "dave@example.com", now, domain.ReservationTTL)
		if !errors.Is(err, domerr.ErrNotPurchasable) {
			t.Errorf("error = %v", err)
		}
	})
}

func TestDrop_LaserFileAndTemplates(t *testing.T) {
	ctx := context.Background()
	pool := testenv.NewPoolBroaker(ctx, t).GetPool(ctx, t)
	testee := kpgdrop.New(pool)

	drop := try.To(testee.Create(ctx, genesis())).OrFatal(t)
	pending := readyItem(drop.Id, "one")
	pending.LaserFileStatus = ""
	item := try.To(testee.CreateItem(ctx, pending)).OrFatal(t)
	if item.LaserFileStatus != domain.LaserFilePending {
		t.Errorf("laser file status = %s", item.LaserFileStatus)
	}

	ready := try.To(testee.SetLaserFile(
		ctx, item.Id, domain.LaserFileReady, "https://img.example.com/one_laser.svg", "quality: good",
	)).OrFatal(t)
	failed := try.To(testee.SetLaserFile(ctx, item.Id, domain.LaserFileFailed, "", "broken image")).OrFatal(t)
	if ready.LaserFileURL != failed.LaserFileURL || failed.ProcessingNotes != "broken image" {
		t.Errorf("empty url should keep the last one: %+v", failed)
	}
	if _, err := testee.SetLaserFile(ctx, "item_missing", domain.LaserFileReady, "", ""); !errors.Is(err, domerr.ErrMissing) {
		t.Errorf("error = %v", err)
	}

	for _, tpl := range []domain.DesignTemplate{
		{Name: "Wood 4x6", Material: "wood", TemplateSVG: "<svg>{{IMAGE}}</svg>", ImageMaxWidth: 400, ImageMaxHeight: 600},
		{Name: "Acrylic 5x5", Material: "acrylic", TemplateSVG: "<svg>{{IMAGE}}</svg>", ImageMaxWidth: 500, ImageMaxHeight: 500},
	} {
		try.To(testee.CreateTemplate(ctx, tpl)).OrFatal(t)
	}
	wood := try.To(testee.Templates(ctx, "wood")).OrFatal(t)
	if len(wood) != 1 || wood[0].Name != "Wood 4x6" || wood[0].ImageMaxHeight != 600 {
		t.Errorf("unexpected templates: %+v", wood)
	}
	if all := try.To(testee.Templates(ctx, "")).OrFatal(t); len(all) != 2 {
		t.Errorf("unexpected templates: %+v", all)
	}
	if _, err := testee.GetTemplate(ctx, "template_missing"); !errors.Is(err, domerr.ErrMissing) {
		t.Errorf("error = %v", err)
	}
}
