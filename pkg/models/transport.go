package models

// MeasureURLRequest asks for a protocol run on a remote image
type MeasureURLRequest struct {
	URL      string `json:"url" binding:"required"`
	Protocol string `json:"protocol" binding:"required"`
	Version  string `json:"version,omitempty"`

	// Frontal style reference: ReferencePixels pixels are ReferenceCm centimeters (default 100)
	ReferencePixels float64 `json:"reference_pixels,omitempty" binding:"omitempty,gt=0"`
	ReferenceCm     float64 `json:"reference_cm,omitempty" binding:"omitempty,gt=0"`

	// Sagittal style reference: segment (X1,Y1)-(X2,Y2) is ReferenceLength in ReferenceUnit
	RefX1           *float64 `json:"ref_x1,omitempty"`
	RefY1           *float64 `json:"ref_y1,omitempty"`
	RefX2           *float64 `json:"ref_x2,omitempty"`
	RefY2           *float64 `json:"ref_y2,omitempty"`
	ReferenceLength float64  `json:"reference_length,omitempty" binding:"omitempty,gt=0"`
	ReferenceUnit   string   `json:"reference_unit,omitempty" binding:"omitempty,oneof=mm cm m"`

	Detection string `json:"detection,omitempty"`
	DebugMask bool   `json:"debug_mask,omitempty"`
}

// HasSegmentReference reports whether all four reference coordinates were sent
func (r MeasureURLRequest) HasSegmentReference() bool {
	return r.RefX1 != nil && r.RefY1 != nil && r.RefX2 != nil && r.RefY2 != nil
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
