package models

import "time"

// DistanceMeasurement is the real-world length of one topology segment
type DistanceMeasurement struct {
	LandmarkA   string  `json:"landmark_a"`
	LandmarkB   string  `json:"landmark_b"`
	IndexA      int     `json:"index_a"`
	IndexB      int     `json:"index_b"`
	DistanceCm  float64 `json:"distance_cm"`
	Description string  `json:"description"`
}

// AngleMeasurement is a joint angle in degrees
type AngleMeasurement struct {
	Name           string  `json:"name"`
	VertexLandmark string  `json:"vertex_landmark"`
	Degrees        float64 `json:"degrees"`
}

// Measurements holds the engine output in topology order
type Measurements struct {
	Distances []DistanceMeasurement `json:"distances"`
	Angles    []AngleMeasurement    `json:"angles,omitempty"`
}

// LandmarkPosition is a resolved landmark, kept for diagnostic overlays on the client
type LandmarkPosition struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Present bool   `json:"present"`
}

// PhotoQuality reports exposure and focus of the submitted photograph
type PhotoQuality struct {
	Brightness float64 `json:"brightness"`
	Sharpness  float64 `json:"sharpness"`
}

// MeasurementResult is the full response of one protocol run
type MeasurementResult struct {
	Protocol          string    `json:"protocol"`
	TopologyVersion   string    `json:"topology_version"`
	Detection         string    `json:"detection"`
	Timestamp         time.Time `json:"timestamp"`
	ProcessingTimeSec float64   `json:"processing_time_sec"`

	Measurements

	ScaleCmPerPixel   float64            `json:"scale_cm_per_pixel"`
	MarkersDetected   int                `json:"markers_detected"`
	LandmarksExpected int                `json:"landmarks_expected"`
	Landmarks         []LandmarkPosition `json:"landmarks"`

	Photo PhotoQuality `json:"photo"`

	// Detection warnings, e.g. fewer markers than landmarks
	Warnings []string `json:"warnings,omitempty"`

	// Base64 PNG of the binary marker mask, only when requested
	DebugMask string `json:"debug_mask,omitempty"`
}
