package gallery

import (
	"fmt"
	"time"
)

// View is the state of one rendered gallery page. All mutation goes through
// its methods so the like classes and modal stay consistent.
type View struct {
	ID           string     `json:"id"`
	CatalogIndex int        `json:"catalog_index"`
	Category     string     `json:"category"`
	Page         int        `json:"page"`
	TotalPages   int        `json:"total_pages"`
	Seed         string     `json:"seed,omitempty"`
	Items        []ItemView `json:"items"`
	Modal        Modal      `json:"modal"`
	Alerts       []Alert    `json:"alerts,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewView initializes the view state from stored item data. Every item starts
// with its stored like flag, an unloaded wrapper and a hidden affordance.
func NewView(id string, items []Item) *View {
	v := &View{
		ID:        id,
		Items:     make([]ItemView, 0, len(items)),
		Modal:     Modal{Display: displayClosed},
		CreatedAt: time.Now().UTC(),
	}
	for _, it := range items {
		v.Items = append(v.Items, ItemView{
			Item:       it,
			Like:       LikeState(it.Liked),
			Affordance: Hidden,
		})
	}
	return v
}

func (v *View) index(path string) (int, error) {
	for i := range v.Items {
		if v.Items[i].Item.Path == path {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrItemNotFound, path)
}

// Item returns a copy of the item view for path
func (v *View) Item(path string) (ItemView, error) {
	i, err := v.index(path)
	if err != nil {
		return ItemView{}, err
	}
	return v.Items[i], nil
}

// AffordancePaths lists the path of every like-affordance on the page
func (v *View) AffordancePaths() []string {
	paths := make([]string, 0, len(v.Items))
	for _, iv := range v.Items {
		paths = append(paths, iv.Item.Path)
	}
	return paths
}

// MarkLoaded reveals an item once its image finished loading, successfully or
// not. Calling it again only refreshes the image info.
func (v *View) MarkLoaded(path string, info ImageInfo) error {
	i, err := v.index(path)
	if err != nil {
		return err
	}
	v.Items[i].Loaded = true
	v.Items[i].Affordance = Visible
	v.Items[i].Image = info
	return nil
}

// AllLoaded reports whether every item finished loading
func (v *View) AllLoaded() bool {
	for _, iv := range v.Items {
		if !iv.Loaded {
			return false
		}
	}
	return true
}

// SetLike records a server-confirmed like state for path
func (v *View) SetLike(path string, state LikeState) error {
	i, err := v.index(path)
	if err != nil {
		return err
	}
	v.Items[i].Like = state
	v.Items[i].Item.Liked = bool(state)
	return nil
}

// ApplyBatchFound marks every item whose path was found as liked and returns
// how many items changed. Items not in found are left alone.
func (v *View) ApplyBatchFound(found []string) int {
	set := make(map[string]struct{}, len(found))
	for _, p := range found {
		set[p] = struct{}{}
	}
	marked := 0
	for i := range v.Items {
		if _, ok := set[v.Items[i].Item.Path]; !ok {
			continue
		}
		v.Items[i].Like = Liked
		v.Items[i].Item.Liked = true
		marked++
	}
	return marked
}

// ShowDetail opens the modal with detail
func (v *View) ShowDetail(detail Detail) {
	v.Modal = Modal{Display: displayOpen, Detail: detail}
}

// OpenDetail opens the modal for the item at path
func (v *View) OpenDetail(path string) (Detail, error) {
	iv, err := v.Item(path)
	if err != nil {
		return Detail{}, err
	}
	detail := NewDetail(iv.Item.Category, iv.Item.Path, iv.Item.FaceScores, iv.Item.LandmarkScores)
	v.ShowDetail(detail)
	return detail, nil
}

// CloseModal hides the modal
func (v *View) CloseModal() {
	v.Modal.Display = displayClosed
}

// ClickModal closes the modal only when the click landed on its backdrop.
// It returns whether the modal was closed.
func (v *View) ClickModal(target ModalTarget) bool {
	if !v.Modal.Open() || target != TargetBackdrop {
		return false
	}
	v.CloseModal()
	return true
}

// PushAlert queues a user-visible message
func (v *View) PushAlert(level, message string) {
	v.Alerts = append(v.Alerts, Alert{Message: message, Level: level, At: time.Now().UTC()})
}

// DismissAlerts clears every pending alert
func (v *View) DismissAlerts() {
	v.Alerts = nil
}

// LikedCount returns the number of liked items on the page
func (v *View) LikedCount() int {
	n := 0
	for _, iv := range v.Items {
		if iv.Like == Liked {
			n++
		}
	}
	return n
}
