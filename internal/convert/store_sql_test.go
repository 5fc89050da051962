package convert_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/openassess/qtibridge/internal/convert"
	"github.com/openassess/qtibridge/internal/db"
)

func newSQLiteStore(t *testing.T) *convert.SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return convert.NewSQLStore(h)
}

func TestSQLStoreRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)

	c := convert.Conversion{
		ID:         "cnv-abc123def456",
		SourceName: "sample.xml",
		SourceKind: convert.KindQTI,
		Status:     convert.StatusSucceeded,
		MoodleXML:  "<quiz></quiz>",
		CreatedAt:  1700000000,
	}
	if err := store.PutConversion(c); err != nil {
		t.Fatalf("PutConversion: %v", err)
	}

	got, err := store.GetConversion(c.ID)
	if err != nil {
		t.Fatalf("GetConversion: %v", err)
	}
	if got != c {
		t.Errorf("got %+v, want %+v", got, c)
	}

	if _, err := store.GetConversion("cnv-unknown"); err == nil {
		t.Error("unknown id must fail")
	}
}

func TestSQLStoreUpsert(t *testing.T) {
	store := newSQLiteStore(t)

	c := convert.Conversion{
		ID:         "cnv-upsert000001",
		SourceName: "sample.xml",
		SourceKind: convert.KindQTI,
		Status:     convert.StatusFailed,
		Error:      "first attempt broke",
		CreatedAt:  1,
	}
	if err := store.PutConversion(c); err != nil {
		t.Fatal(err)
	}

	c.Status = convert.StatusSucceeded
	c.Error = ""
	c.MoodleXML = "<quiz></quiz>"
	if err := store.PutConversion(c); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetConversion(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != convert.StatusSucceeded || got.Error != "" || got.MoodleXML != "<quiz></quiz>" {
		t.Errorf("got %+v", got)
	}
}

func TestSQLStoreListNewestFirst(t *testing.T) {
	store := newSQLiteStore(t)
	for i, id := range []string{"cnv-old000000000", "cnv-mid000000000", "cnv-new000000000"} {
		err := store.PutConversion(convert.Conversion{
			ID:         id,
			SourceName: "s.xml",
			SourceKind: convert.KindQTI,
			Status:     convert.StatusSucceeded,
			CreatedAt:  int64(i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListConversions(context.Background(), convert.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].ID != "cnv-new000000000" || list[2].ID != "cnv-old000000000" {
		t.Errorf("list order = %v", ids(list))
	}

	page, err := store.ListConversions(context.Background(), convert.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != "cnv-mid000000000" {
		t.Errorf("page = %v", ids(page))
	}
}

func ids(list []convert.Conversion) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}
