package gallery

import "fmt"

// NoScoreData is shown for an item without detections
const NoScoreData = "no data available"

// FormatScore summarizes detection scores as their mean and count
func FormatScore(scores []float64) string {
	if len(scores) == 0 {
		return NoScoreData
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return fmt.Sprintf("%.4f (%d detections)", sum/float64(len(scores)), len(scores))
}

// Detail is the content of the detail modal
type Detail struct {
	Path          string `json:"path"`
	FaceScore     string `json:"face_score"`
	LandmarkScore string `json:"landmark_score"`
	CategoryHref  string `json:"category_href"`
	CategoryLabel string `json:"category_label"`
}

// NewDetail builds the modal content for one item
func NewDetail(category, path string, faceScores, landmarkScores []float64) Detail {
	return Detail{
		Path:          path,
		FaceScore:     FormatScore(faceScores),
		LandmarkScore: FormatScore(landmarkScores),
		CategoryHref:  CategoryURL(category),
		CategoryLabel: category,
	}
}

// ModalTarget identifies what a click on the open modal landed on
type ModalTarget string

const (
	TargetBackdrop ModalTarget = "backdrop"
	TargetContent  ModalTarget = "content"
)

// ParseModalTarget maps a click target name; anything unknown counts as content
func ParseModalTarget(s string) ModalTarget {
	if ModalTarget(s) == TargetBackdrop {
		return TargetBackdrop
	}
	return TargetContent
}

// Modal is the detail modal state; Display is "flex" when open
type Modal struct {
	Display string `json:"display"`
	Detail  Detail `json:"detail"`
}

const (
	displayOpen   = "flex"
	displayClosed = "none"
)

// Open reports whether the modal is shown
func (m Modal) Open() bool {
	return m.Display == displayOpen
}
