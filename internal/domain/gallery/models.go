// Package gallery holds the view-state model of the gallery UI: items, their
// like state, the detail modal and the transitions that mutate them.
package gallery

import (
	"fmt"
	"net/url"
	"time"
)

// LikeState is the two-state like status of an item
type LikeState bool

const (
	Unliked LikeState = false
	Liked   LikeState = true
)

// String returns the CSS class that represents the state
func (s LikeState) String() string {
	if s {
		return "liked"
	}
	return "unliked"
}

// ToggleAction returns the action that moves an item out of this state
func (s LikeState) ToggleAction() Action {
	if s {
		return ActionUnlike
	}
	return ActionLike
}

// Action is the mutation sent to the like endpoint
type Action string

const (
	ActionLike   Action = "like"
	ActionUnlike Action = "unlike"
)

// Valid reports whether the action is one the endpoint accepts
func (a Action) Valid() bool {
	return a == ActionLike || a == ActionUnlike
}

// Target returns the state an item ends up in once the action is confirmed
func (a Action) Target() LikeState {
	return LikeState(a == ActionLike)
}

// ParseAction converts a string into an Action
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	return a, nil
}

// Item is one displayed image as read from the gallery index
type Item struct {
	Path           string    `json:"path"`
	Filename       string    `json:"filename"`
	Category       string    `json:"category"`
	FaceScores     []float64 `json:"face_scores"`
	LandmarkScores []float64 `json:"landmark_scores"`
	Liked          bool      `json:"like"`
}

// Special categories that aggregate items across the whole catalog
const (
	CategoryFavorites   = "_favorites"
	CategoryUnfavorites = "_unfavorites"
)

// IsShuffled reports whether a category is rendered in seeded random order
func IsShuffled(category string) bool {
	return category == CategoryFavorites || category == CategoryUnfavorites
}

// CategoryURL is the navigable link for a category
func CategoryURL(category string) string {
	return "/category/" + category
}

// CategoryPageURL is the link to a given page of a category listing
func CategoryPageURL(category string, page int) string {
	if category == "" {
		return fmt.Sprintf("/all?page=%d", page)
	}
	return fmt.Sprintf("/category/%s/page/%d", url.PathEscape(category), page)
}

// LikeRequest is the single-item body of POST /like_image
type LikeRequest struct {
	Path   string `json:"path"`
	Action Action `json:"action"`
}

// BatchLikeRequest is the batch body of POST /like_image
type BatchLikeRequest struct {
	Paths  []string `json:"paths"`
	Action Action   `json:"action"`
}

// LikeResponse is the single-item reply of POST /like_image
type LikeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Action  Action `json:"action,omitempty"`
}

// BatchLikeResponse is the batch reply of POST /like_image
type BatchLikeResponse struct {
	Found    []string `json:"found"`
	NotFound []string `json:"not_found"`
}

// ImageInfo is what a completed image load tells us about the resource
type ImageInfo struct {
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Format string `json:"format,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Failed reports whether the load ended with an error
func (i ImageInfo) Failed() bool {
	return i.Err != ""
}

// Visibility of the like-affordance
type Visibility string

const (
	Hidden  Visibility = "hidden"
	Visible Visibility = "visible"
)

// ItemView is the per-item view-state record
type ItemView struct {
	Item       Item       `json:"item"`
	URL        string     `json:"url"`
	Like       LikeState  `json:"liked"`
	Loaded     bool       `json:"loaded"`
	Affordance Visibility `json:"affordance"`
	Image      ImageInfo  `json:"image"`
}

// LikeClass returns the single like class the affordance carries
func (iv ItemView) LikeClass() string {
	return iv.Like.String()
}

// WrapperClass returns the classes of the image wrapper
func (iv ItemView) WrapperClass() string {
	if iv.Loaded {
		return "image-wrapper loaded"
	}
	return "image-wrapper"
}

// Alert is a blocking, user-visible message
type Alert struct {
	Message string    `json:"message"`
	Level   string    `json:"level"`
	At      time.Time `json:"at"`
}

const (
	AlertInfo  = "info"
	AlertError = "error"
)

// BatchSummary is the alert text reported after a batch like
func BatchSummary(found, notFound int) string {
	msg := fmt.Sprintf("Batch like finished: %d succeeded", found)
	if notFound > 0 {
		msg += fmt.Sprintf(", %d not found", notFound)
	}
	return msg
}

// PageQuery selects which items a new view shows
type PageQuery struct {
	CatalogIndex int
	Category     string
	Page         int
	Seed         string
}

// CategorySummary is one entry of the categories listing
type CategorySummary struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	ThumbURL  string `json:"thumb_url"`
	ItemCount int    `json:"item_count"`
}

// CategoryPage is a paginated categories listing
type CategoryPage struct {
	Categories  []CategorySummary `json:"categories"`
	CurrentPage int               `json:"current_page"`
	TotalPages  int               `json:"total_pages"`
	DateUpdated string            `json:"date_updated,omitempty"`
}
