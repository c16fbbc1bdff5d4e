// Package models - Definitions for model output class styles and sets.
package models

// ModelFamily is the family of models.
type ModelFamily string

const (
	// ModelFamilyCOCO is the COCO model family (80 classes + background).
	ModelFamilyCOCO ModelFamily = "coco"
	// ModelFamilyYOLO is the YOLO model family (80 COCO classes, no background).
	ModelFamilyYOLO ModelFamily = "yolo"
)
