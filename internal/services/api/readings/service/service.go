// Package service implements the readings workflow: submit a meter photo,
// let the vision model read it, store one reading per customer/type/month,
// and settle it with a single human confirmation
package service

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"meterbox/internal/core/extract"
	"meterbox/internal/core/period"
	perr "meterbox/internal/platform/errors"

	"meterbox/internal/modkit/repokit"
	"meterbox/internal/services/api/readings/domain"
	readrepo "meterbox/internal/services/api/readings/repo"

	"github.com/google/uuid"
)

// Svc wires the readings workflow over storage, the vision provider,
// and the image store
type Svc struct {
	db     repokit.TxRunner
	repo   repokit.Binder[readrepo.Repo]
	vision domain.Recognizer
	images domain.ImageStore
	ext    extract.Extractor

	newID func() uuid.UUID
}

// compile-time contract check
var _ domain.ServicePort = (*Svc)(nil)

// New builds the readings service. All collaborators are required
func New(
	db repokit.TxRunner,
	repo repokit.Binder[readrepo.Repo],
	vision domain.Recognizer,
	images domain.ImageStore,
	ext extract.Extractor,
) *Svc {
	if db == nil {
		panic("readings: nil TxRunner")
	}
	if repo == nil {
		panic("readings: nil repo binder")
	}
	if vision == nil {
		panic("readings: nil recognizer")
	}
	if images == nil {
		panic("readings: nil image store")
	}
	return &Svc{
		db:     db,
		repo:   repo,
		vision: vision,
		images: images,
		ext:    ext,
		newID:  uuid.New,
	}
}

// Upload validates the submission, rejects month duplicates, asks the vision
// model for the displayed number, and stores an unconfirmed reading.
// Nothing is persisted when the photo cannot be read as a meter
func (s *Svc) Upload(ctx context.Context, in domain.UploadInput) (domain.UploadResult, error) {
	var out domain.UploadResult

	customer := strings.TrimSpace(in.CustomerCode)
	if customer == "" {
		return out, perr.Validationf("customer_code must not be blank")
	}

	kind, ok := domain.ParseKind(in.MeasureType)
	if !ok {
		return out, perr.Validationf("measure_type must be WATER or GAS")
	}

	takenAt, err := time.Parse(time.RFC3339, in.MeasureDatetime)
	if err != nil {
		return out, perr.Validationf("measure_datetime must be RFC 3339")
	}

	raw, mimeType, b64, err := decodeImage(in.Image)
	if err != nil {
		return out, err
	}

	q := repokit.MustBind(s.repo, s.db)

	from, to := period.Window(takenAt)
	exists, err := q.ExistsInMonth(ctx, customer, kind, from, to)
	if err != nil {
		return out, err
	}
	if exists {
		return out, perr.DoubleReportf("reading for this month already reported")
	}

	answer, err := s.vision.Recognize(ctx, b64, mimeType)
	if err != nil {
		return out, err
	}

	value, ok := s.ext.Extract(answer)
	if !ok {
		return out, perr.InvalidArgf("meter value could not be recognized from the image")
	}

	id := s.newID()
	imageURL, err := s.images.Save(ctx, id.String()+extFor(mimeType), raw)
	if err != nil {
		return out, err
	}

	reading := domain.Reading{
		ID:           id,
		CustomerCode: customer,
		Kind:         kind,
		TakenAt:      takenAt.UTC(),
		ImageURL:     imageURL,
		Value:        value,
		Confirmed:    false,
	}
	// the unique month index backstops races past the ExistsInMonth check
	if err := q.Insert(ctx, reading); err != nil {
		return out, err
	}

	out = domain.UploadResult{
		ImageURL:     imageURL,
		MeasureValue: value,
		MeasureUUID:  id.String(),
	}
	return out, nil
}

// Confirm settles a reading exactly once. The conditional update is the
// arbiter under concurrency: whoever flips the flag wins, everyone else
// sees a duplicate-confirmation conflict
func (s *Svc) Confirm(ctx context.Context, in domain.ConfirmInput) (domain.ConfirmResult, error) {
	var out domain.ConfirmResult

	id, err := uuid.Parse(strings.TrimSpace(in.MeasureUUID))
	if err != nil {
		return out, perr.Validationf("measure_uuid must be a valid UUID")
	}
	if in.ConfirmedValue == nil || *in.ConfirmedValue < 0 {
		return out, perr.Validationf("confirmed_value must be a non-negative integer")
	}

	q := repokit.MustBind(s.repo, s.db)

	affected, err := q.ConfirmValue(ctx, id, *in.ConfirmedValue)
	if err != nil {
		return out, err
	}
	if affected == 1 {
		return domain.ConfirmResult{Success: true}, nil
	}

	confirmed, err := q.Confirmed(ctx, id)
	if err != nil {
		return out, err // not found or db trouble
	}
	if confirmed {
		return out, perr.ConfirmationDupf("reading already confirmed")
	}
	return out, perr.Internalf("confirm matched no row for an unconfirmed reading")
}

// List returns the customer's readings oldest first. Stored values stay
// private; only confirmation state is exposed
func (s *Svc) List(ctx context.Context, customerCode, measureType string) (domain.CustomerReadings, error) {
	var out domain.CustomerReadings

	customer := strings.TrimSpace(customerCode)
	if customer == "" {
		return out, perr.Validationf("customer_code must not be blank")
	}

	var kind domain.Kind
	if strings.TrimSpace(measureType) != "" {
		k, ok := domain.ParseKind(measureType)
		if !ok {
			return out, perr.Validationf("measure_type must be WATER or GAS")
		}
		kind = k
	}

	q := repokit.MustBind(s.repo, s.db)

	rows, err := q.ListByCustomer(ctx, customer, kind)
	if err != nil {
		return out, err
	}
	if len(rows) == 0 {
		return out, perr.NotFoundf("no readings found")
	}

	measures := make([]domain.ReadingSummary, 0, len(rows))
	for _, r := range rows {
		measures = append(measures, domain.ReadingSummary{
			MeasureUUID:     r.ID.String(),
			MeasureDatetime: r.TakenAt,
			MeasureType:     r.Kind,
			HasConfirmed:    r.Confirmed,
			ImageURL:        r.ImageURL,
		})
	}

	return domain.CustomerReadings{CustomerCode: customer, Measures: measures}, nil
}

// decodeImage accepts plain base64 or a data URI and returns the raw bytes,
// the mime type, and the bare base64 payload handed to the vision provider
func decodeImage(image string) (raw []byte, mimeType, b64 string, err error) {
	b64 = strings.TrimSpace(image)
	mimeType = "image/png"

	if strings.HasPrefix(b64, "data:") {
		head, rest, found := strings.Cut(b64, ",")
		if !found || !strings.HasSuffix(head, ";base64") {
			return nil, "", "", perr.Validationf("image data URI must be base64 encoded")
		}
		if mt := strings.TrimSuffix(strings.TrimPrefix(head, "data:"), ";base64"); mt != "" {
			mimeType = mt
		}
		b64 = rest
	}

	raw, err = base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, "", "", perr.Validationf("image must be valid base64")
	}
	if len(raw) == 0 {
		return nil, "", "", perr.Validationf("image must not be empty")
	}
	return raw, mimeType, b64, nil
}

func extFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
