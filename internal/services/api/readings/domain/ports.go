package domain

import "context"

// ServicePort is the readings service surface consumed by transports
// and by other modules through the registry
type ServicePort interface {
	Upload(ctx context.Context, in UploadInput) (UploadResult, error)
	Confirm(ctx context.Context, in ConfirmInput) (ConfirmResult, error)
	List(ctx context.Context, customerCode, measureType string) (CustomerReadings, error)
}

// Recognizer turns a meter photo into the raw text the vision model saw.
// Implementations return the provider's verbatim answer; extraction policy
// stays with the caller
type Recognizer interface {
	Recognize(ctx context.Context, imageB64, mimeType string) (string, error)
}

// ImageStore persists a decoded meter photo and returns its public URL
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}
