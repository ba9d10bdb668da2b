package domain

import "time"

// UploadInput is the submit-reading request body.
// Image carries the meter photo as base64, with or without a data-URI prefix;
// decoding and format policy live in the service, not the validator
type UploadInput struct {
	Image           string `json:"image"            validate:"required"`
	CustomerCode    string `json:"customer_code"    validate:"required"`
	MeasureDatetime string `json:"measure_datetime" validate:"required"`
	MeasureType     string `json:"measure_type"     validate:"required"`
}

// UploadResult is the submit-reading success body
type UploadResult struct {
	ImageURL     string `json:"image_url"`
	MeasureValue int64  `json:"measure_value"`
	MeasureUUID  string `json:"measure_uuid"`
}

// ConfirmInput is the confirm-reading request body.
// ConfirmedValue is a pointer so an explicit zero survives required validation
type ConfirmInput struct {
	MeasureUUID    string `json:"measure_uuid"    validate:"required,uuid4"`
	ConfirmedValue *int64 `json:"confirmed_value" validate:"required,gte=0"`
}

// ConfirmResult is the confirm-reading success body
type ConfirmResult struct {
	Success bool `json:"success"`
}

// ReadingSummary is one row of a customer listing. The stored value is
// deliberately absent: listings expose confirmation state, not numbers
type ReadingSummary struct {
	MeasureUUID     string    `json:"measure_uuid"`
	MeasureDatetime time.Time `json:"measure_datetime"`
	MeasureType     Kind      `json:"measure_type"`
	HasConfirmed    bool      `json:"has_confirmed"`
	ImageURL        string    `json:"image_url"`
}

// CustomerReadings is the list-readings success body
type CustomerReadings struct {
	CustomerCode string           `json:"customer_code"`
	Measures     []ReadingSummary `json:"measures"`
}
