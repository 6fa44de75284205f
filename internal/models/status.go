package models

import "strings"

// Status is the lifecycle state of an order
type Status string

// Order statuses
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDelivered  Status = "delivered"
	StatusCanceled   Status = "canceled"
)

// UnknownLabelPolicy is the status chosen for any label that matches none of
// the known phrases. Callers are told the label was unrecognized but the
// lookup itself never fails.
const UnknownLabelPolicy = StatusPending

var statusLabels = map[Status]string{
	StatusPending:    "Processing",
	StatusInProgress: "On the way",
	StatusDelivered:  "Delivered",
	StatusCanceled:   "Canceled",
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusDelivered, StatusCanceled},
	StatusInProgress: {StatusDelivered, StatusCanceled},
}

// Label returns the human readable phrase for a status. Unknown statuses
// render as the pending label.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return statusLabels[StatusPending]
}

// StatusFromLabel maps an administrative label to a status using a
// case-insensitive exact phrase match. ok is false when the label was not
// recognized and UnknownLabelPolicy was applied.
func StatusFromLabel(label string) (status Status, ok bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	for s, phrase := range statusLabels {
		if strings.ToLower(phrase) == normalized {
			return s, true
		}
	}
	return UnknownLabelPolicy, false
}

// CanTransition reports whether from -> to is one of the transitions the
// workflow actually uses. It is advisory: status updates are not rejected.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
