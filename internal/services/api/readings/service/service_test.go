package service

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"meterbox/internal/core/extract"
	"meterbox/internal/core/period"
	perr "meterbox/internal/platform/errors"

	"meterbox/internal/modkit/repokit"
	"meterbox/internal/services/api/readings/domain"
	readrepo "meterbox/internal/services/api/readings/repo"

	"github.com/google/uuid"
)

// fakeDB satisfies repokit.TxRunner; the repo itself is faked so the
// queryer methods are never reached
type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }
func (fakeDB) Query(context.Context, string, ...any) (repokit.Rows, error)      { return nil, nil }
func (fakeDB) QueryRow(context.Context, string, ...any) repokit.Row             { return nil }
func (fakeDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error {
	return fn(fakeDB{})
}

// fakeRepo is an in-memory Repo with the same conflict semantics as the
// Postgres implementation
type fakeRepo struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]*domain.Reading
	inserted int
}

func newFakeRepo() *fakeRepo { return &fakeRepo{rows: map[uuid.UUID]*domain.Reading{}} }

func (f *fakeRepo) Insert(_ context.Context, r domain.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, have := range f.rows {
		if have.CustomerCode == r.CustomerCode && have.Kind == r.Kind && period.Same(have.TakenAt, r.TakenAt) {
			return perr.DoubleReportf("reading for this month already reported")
		}
	}
	cp := r
	f.rows[r.ID] = &cp
	f.inserted++
	return nil
}

func (f *fakeRepo) ExistsInMonth(
	_ context.Context,
	customerCode string,
	kind domain.Kind,
	from, to time.Time,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.CustomerCode == customerCode && r.Kind == kind &&
			!r.TakenAt.Before(from) && r.TakenAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ConfirmValue(_ context.Context, id uuid.UUID, value int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Confirmed {
		return 0, nil
	}
	r.Value = value
	r.Confirmed = true
	return 1, nil
}

func (f *fakeRepo) Confirmed(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return false, perr.NotFoundf("reading not found")
	}
	return r.Confirmed, nil
}

func (f *fakeRepo) ListByCustomer(
	_ context.Context,
	customerCode string,
	kind domain.Kind,
) ([]domain.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reading
	for _, r := range f.rows {
		if r.CustomerCode != customerCode {
			continue
		}
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, *r)
	}
	// callers rely on ascending capture time
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].TakenAt.Before(out[j-1].TakenAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

type fakeVision struct {
	answer string
	err    error
	calls  int
	gotB64 string
	gotMT  string
}

func (f *fakeVision) Recognize(_ context.Context, imageB64, mimeType string) (string, error) {
	f.calls++
	f.gotB64 = imageB64
	f.gotMT = mimeType
	return f.answer, f.err
}

type fakeImages struct {
	saved map[string][]byte
}

func (f *fakeImages) Save(_ context.Context, name string, data []byte) (string, error) {
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[name] = data
	return "/files/" + name, nil
}

func newSvc(repo *fakeRepo, vision *fakeVision, images *fakeImages) *Svc {
	return New(
		fakeDB{},
		repokit.BindFunc[readrepo.Repo](func(repokit.Queryer) readrepo.Repo { return repo }),
		vision,
		images,
		extract.New(""),
	)
}

func validUpload() domain.UploadInput {
	return domain.UploadInput{
		Image:           base64.StdEncoding.EncodeToString([]byte("not a real png")),
		CustomerCode:    "CUST-001",
		MeasureDatetime: "2026-08-15T10:30:00Z",
		MeasureType:     "WATER",
	}
}

func TestUploadHappyPath(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	vision := &fakeVision{answer: "12345"}
	images := &fakeImages{}
	svc := newSvc(repo, vision, images)

	out, err := svc.Upload(context.Background(), validUpload())
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if out.MeasureValue != 12345 {
		t.Fatalf("value = %d, want 12345", out.MeasureValue)
	}
	if _, err := uuid.Parse(out.MeasureUUID); err != nil {
		t.Fatalf("measure_uuid not a uuid: %q", out.MeasureUUID)
	}
	if out.ImageURL == "" {
		t.Fatal("image_url missing")
	}

	if repo.inserted != 1 {
		t.Fatalf("inserted = %d, want 1", repo.inserted)
	}
	r := repo.rows[uuid.MustParse(out.MeasureUUID)]
	if r == nil || r.Confirmed || r.Value != 12345 || r.Kind != domain.KindWater {
		t.Fatalf("stored reading wrong: %+v", r)
	}
	if len(images.saved) != 1 {
		t.Fatalf("saved images = %d, want 1", len(images.saved))
	}
}

func TestUploadAcceptsDataURI(t *testing.T) {
	t.Parallel()

	vision := &fakeVision{answer: "7"}
	svc := newSvc(newFakeRepo(), vision, &fakeImages{})

	b64 := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff})
	in := validUpload()
	in.Image = "data:image/jpeg;base64," + b64

	out, err := svc.Upload(context.Background(), in)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if vision.gotMT != "image/jpeg" {
		t.Fatalf("mime = %q, want image/jpeg", vision.gotMT)
	}
	if vision.gotB64 != b64 {
		t.Fatal("vision should receive the bare base64 payload")
	}
	if got := out.ImageURL; got[len(got)-4:] != ".jpg" {
		t.Fatalf("image_url = %q, want .jpg suffix", got)
	}
}

func TestUploadValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*domain.UploadInput)
	}{
		{"blank customer", func(in *domain.UploadInput) { in.CustomerCode = "  " }},
		{"unknown type", func(in *domain.UploadInput) { in.MeasureType = "OIL" }},
		{"bad datetime", func(in *domain.UploadInput) { in.MeasureDatetime = "yesterday" }},
		{"bad base64", func(in *domain.UploadInput) { in.Image = "%%%not-base64%%%" }},
		{"empty image", func(in *domain.UploadInput) { in.Image = "" }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			repo := newFakeRepo()
			vision := &fakeVision{answer: "12345"}
			svc := newSvc(repo, vision, &fakeImages{})

			in := validUpload()
			c.mutate(&in)

			_, err := svc.Upload(context.Background(), in)
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
			if vision.calls != 0 {
				t.Fatal("vision should not be called for invalid input")
			}
			if repo.inserted != 0 {
				t.Fatal("nothing should be stored for invalid input")
			}
		})
	}
}

func TestUploadRejectsSecondReadingInMonth(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	vision := &fakeVision{answer: "12345"}
	svc := newSvc(repo, vision, &fakeImages{})

	if _, err := svc.Upload(context.Background(), validUpload()); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	in := validUpload()
	in.MeasureDatetime = "2026-08-30T08:00:00Z" // same month, different day
	_, err := svc.Upload(context.Background(), in)
	if !perr.IsCode(err, perr.ErrorCodeDoubleReport) {
		t.Fatalf("err = %v, want double report", err)
	}
	if repo.inserted != 1 {
		t.Fatalf("inserted = %d, want 1", repo.inserted)
	}
}

func TestUploadAllowsSameMonthDifferentKind(t *testing.T) {
	t.Parallel()

	svc := newSvc(newFakeRepo(), &fakeVision{answer: "10"}, &fakeImages{})

	if _, err := svc.Upload(context.Background(), validUpload()); err != nil {
		t.Fatalf("water upload failed: %v", err)
	}
	in := validUpload()
	in.MeasureType = "gas" // case-insensitive
	if _, err := svc.Upload(context.Background(), in); err != nil {
		t.Fatalf("gas upload failed: %v", err)
	}
}

func TestUploadUnrecognizedImageStoresNothing(t *testing.T) {
	t.Parallel()

	for _, answer := range []string{"ERRO", "sorry, that is a cat", ""} {
		repo := newFakeRepo()
		images := &fakeImages{}
		svc := newSvc(repo, &fakeVision{answer: answer}, images)

		_, err := svc.Upload(context.Background(), validUpload())
		if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("answer %q: err = %v, want invalid argument", answer, err)
		}
		if repo.inserted != 0 || len(images.saved) != 0 {
			t.Fatalf("answer %q: nothing should be persisted", answer)
		}
	}
}

func TestUploadUpstreamFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	vision := &fakeVision{err: perr.Upstreamf("vision model unavailable")}
	svc := newSvc(repo, vision, &fakeImages{})

	_, err := svc.Upload(context.Background(), validUpload())
	if !perr.IsCode(err, perr.ErrorCodeUpstream) {
		t.Fatalf("err = %v, want upstream", err)
	}
	if repo.inserted != 0 {
		t.Fatal("nothing should be stored when the model fails")
	}
}

func int64p(v int64) *int64 { return &v }

func TestConfirmLifecycle(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newSvc(repo, &fakeVision{answer: "100"}, &fakeImages{})

	up, err := svc.Upload(context.Background(), validUpload())
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	out, err := svc.Confirm(context.Background(), domain.ConfirmInput{
		MeasureUUID:    up.MeasureUUID,
		ConfirmedValue: int64p(102),
	})
	if err != nil || !out.Success {
		t.Fatalf("confirm failed: out=%+v err=%v", out, err)
	}

	r := repo.rows[uuid.MustParse(up.MeasureUUID)]
	if !r.Confirmed || r.Value != 102 {
		t.Fatalf("confirmed value not stored: %+v", r)
	}

	// second confirmation must fail, even with the same value
	_, err = svc.Confirm(context.Background(), domain.ConfirmInput{
		MeasureUUID:    up.MeasureUUID,
		ConfirmedValue: int64p(102),
	})
	if !perr.IsCode(err, perr.ErrorCodeConfirmationDuplicate) {
		t.Fatalf("err = %v, want confirmation duplicate", err)
	}
}

func TestConfirmUnknownReading(t *testing.T) {
	t.Parallel()

	svc := newSvc(newFakeRepo(), &fakeVision{answer: "1"}, &fakeImages{})

	_, err := svc.Confirm(context.Background(), domain.ConfirmInput{
		MeasureUUID:    uuid.NewString(),
		ConfirmedValue: int64p(5),
	})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestConfirmValidation(t *testing.T) {
	t.Parallel()

	svc := newSvc(newFakeRepo(), &fakeVision{answer: "1"}, &fakeImages{})

	if _, err := svc.Confirm(context.Background(), domain.ConfirmInput{
		MeasureUUID:    "not-a-uuid",
		ConfirmedValue: int64p(5),
	}); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("bad uuid: err = %v, want validation", err)
	}

	if _, err := svc.Confirm(context.Background(), domain.ConfirmInput{
		MeasureUUID:    uuid.NewString(),
		ConfirmedValue: int64p(-1),
	}); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("negative value: err = %v, want validation", err)
	}
}

func TestConfirmConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newSvc(repo, &fakeVision{answer: "100"}, &fakeImages{})

	up, err := svc.Upload(context.Background(), validUpload())
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		dups int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			out, err := svc.Confirm(context.Background(), domain.ConfirmInput{
				MeasureUUID:    up.MeasureUUID,
				ConfirmedValue: int64p(v),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && out.Success:
				wins++
			case perr.IsCode(err, perr.ErrorCodeConfirmationDuplicate):
				dups++
			}
		}(int64(100 + i))
	}
	wg.Wait()

	if wins != 1 || dups != workers-1 {
		t.Fatalf("wins=%d dups=%d, want exactly one winner", wins, dups)
	}
}

func TestListReadings(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newSvc(repo, &fakeVision{answer: "50"}, &fakeImages{})

	months := []string{
		"2026-06-10T09:00:00Z",
		"2026-07-11T09:00:00Z",
		"2026-08-12T09:00:00Z",
	}
	for _, m := range months {
		in := validUpload()
		in.MeasureDatetime = m
		if _, err := svc.Upload(context.Background(), in); err != nil {
			t.Fatalf("upload %s failed: %v", m, err)
		}
	}
	gas := validUpload()
	gas.MeasureType = "GAS"
	gas.MeasureDatetime = "2026-08-01T00:00:00Z"
	if _, err := svc.Upload(context.Background(), gas); err != nil {
		t.Fatalf("gas upload failed: %v", err)
	}

	out, err := svc.List(context.Background(), "CUST-001", "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if out.CustomerCode != "CUST-001" || len(out.Measures) != 4 {
		t.Fatalf("list = %+v, want 4 measures", out)
	}
	for i := 1; i < len(out.Measures); i++ {
		if out.Measures[i].MeasureDatetime.Before(out.Measures[i-1].MeasureDatetime) {
			t.Fatal("measures should be ordered oldest first")
		}
	}
	if out.Measures[0].HasConfirmed {
		t.Fatal("fresh readings should not be confirmed")
	}

	water, err := svc.List(context.Background(), "CUST-001", "water")
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(water.Measures) != 3 {
		t.Fatalf("water measures = %d, want 3", len(water.Measures))
	}
	for _, m := range water.Measures {
		if m.MeasureType != domain.KindWater {
			t.Fatalf("unexpected kind %s in filtered list", m.MeasureType)
		}
	}
}

func TestListValidationAndNotFound(t *testing.T) {
	t.Parallel()

	svc := newSvc(newFakeRepo(), &fakeVision{answer: "1"}, &fakeImages{})

	if _, err := svc.List(context.Background(), "  ", ""); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("blank customer: err = %v, want validation", err)
	}
	if _, err := svc.List(context.Background(), "CUST-001", "OIL"); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("bad filter: err = %v, want validation", err)
	}
	if _, err := svc.List(context.Background(), "CUST-404", ""); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("no rows: err = %v, want not found", err)
	}
}
