package domain

// ChangeKind names what a change event refers to.
type ChangeKind string

const (
	ChangeSlot     ChangeKind = "slot_changed"
	ChangeWorkshop ChangeKind = "workshop_changed"
	ChangeReview   ChangeKind = "review_changed"
)

// Change is broadcast after a committed mutation so that clients can refresh.
type Change struct {
	Type   ChangeKind `json:"type"`
	ID     string     `json:"id"`
	TsUnix int64      `json:"tsUnix"`
}
