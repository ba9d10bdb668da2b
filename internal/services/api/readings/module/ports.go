package module

import "meterbox/internal/services/api/readings/domain"

// Options carries the collaborators the readings module cannot derive
// from shared deps
type Options struct {
	Vision   domain.Recognizer
	Images   domain.ImageStore
	Sentinel string
}

// Ports is the cross-module surface the readings module registers
type Ports struct {
	Readings domain.ServicePort
}
