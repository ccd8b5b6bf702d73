package count

import (
	"math"
	"time"

	"github.com/countwise/countwise/internal/shared"
)

// RequestStatus enumerates inventory request lifecycle states.
type RequestStatus string

const (
	RequestStatusDraft      RequestStatus = "DRAFT"
	RequestStatusSent       RequestStatus = "SENT"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusCompleted  RequestStatus = "COMPLETED"
	RequestStatusCancelled  RequestStatus = "CANCELLED"
)

// ParseRequestStatus validates an externally supplied status value.
// Unknown values are an error, never a silent default.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch RequestStatus(s) {
	case RequestStatusDraft, RequestStatusSent, RequestStatusInProgress, RequestStatusCompleted, RequestStatusCancelled:
		return RequestStatus(s), nil
	}
	return "", shared.NewValidationError("status", "unknown request status "+s)
}

// Terminal reports whether the request can no longer change.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

// ItemStatus enumerates count item lifecycle states.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "PENDING"
	ItemStatusAssigned  ItemStatus = "ASSIGNED"
	ItemStatusCounted   ItemStatus = "COUNTED"
	ItemStatusReviewing ItemStatus = "REVIEWING"
	ItemStatusApproved  ItemStatus = "APPROVED"
	ItemStatusRejected  ItemStatus = "REJECTED"
)

// ParseItemStatus validates an externally supplied item status value.
func ParseItemStatus(s string) (ItemStatus, error) {
	switch ItemStatus(s) {
	case ItemStatusPending, ItemStatusAssigned, ItemStatusCounted, ItemStatusReviewing, ItemStatusApproved, ItemStatusRejected:
		return ItemStatus(s), nil
	}
	return "", shared.NewValidationError("status", "unknown item status "+s)
}

// itemTransitions is the legal item status graph. The only back-edge is
// REJECTED -> ASSIGNED (rework); REJECTED -> COUNTED covers a rejected item
// being recounted directly by its current assignee.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusPending:   {ItemStatusAssigned},
	ItemStatusAssigned:  {ItemStatusCounted},
	ItemStatusCounted:   {ItemStatusCounted, ItemStatusReviewing},
	ItemStatusReviewing: {ItemStatusApproved, ItemStatusRejected},
	ItemStatusRejected:  {ItemStatusAssigned, ItemStatusCounted},
	ItemStatusApproved:  nil,
}

// CanTransition reports whether from -> to is a legal item status edge.
func CanTransition(from, to ItemStatus) bool {
	for _, next := range itemTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AdjustmentType classifies the difference between physical and system quantity.
type AdjustmentType string

const (
	AdjustmentNone     AdjustmentType = "NONE"
	AdjustmentSurplus  AdjustmentType = "SURPLUS"
	AdjustmentShortage AdjustmentType = "SHORTAGE"
)

// ClassifyDifference maps a quantity difference to its adjustment type.
func ClassifyDifference(diff float64) AdjustmentType {
	switch {
	case diff > 0:
		return AdjustmentSurplus
	case diff < 0:
		return AdjustmentShortage
	default:
		return AdjustmentNone
	}
}

// InventoryRequest is a coordinator-issued instruction to count inventory
// across one or more centers.
type InventoryRequest struct {
	ID          int64
	Number      string
	Type        string
	CenterIDs   []int64
	Status      RequestStatus
	Comment     string
	DueAt       time.Time
	CreatedBy   int64
	CreatedAt   time.Time
	SentAt      time.Time
	CompletedAt time.Time
	CancelledAt time.Time
}

// CountItem is one catalog line within a request, at one center, with a
// system quantity to be physically verified.
type CountItem struct {
	ID             int64
	RequestID      int64
	CenterID       int64
	ItemCode       string
	Description    string
	DivisionCode   string
	CategoryCode   string
	GroupCode      string
	Unit           string
	SystemQty      float64
	PhysicalQty    *float64
	Difference     float64
	AdjustmentType AdjustmentType
	CounterComment string
	ManagerComment string
	AssignedTo     int64
	Status         ItemStatus
	DueAt          time.Time
	LastRemindedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ApplyCount records a physical count on the item and recomputes the
// derived difference and adjustment type.
func (i *CountItem) ApplyCount(qty float64, comment string) error {
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return shared.NewValidationError("physical_count", "must be a finite number")
	}
	if qty < 0 {
		return shared.NewValidationError("physical_count", "must not be negative")
	}
	i.PhysicalQty = &qty
	i.Difference = qty - i.SystemQty
	i.AdjustmentType = ClassifyDifference(i.Difference)
	i.CounterComment = comment
	i.Status = ItemStatusCounted
	return nil
}

// CatalogEntry is one line of a center's stock snapshot; sending a request
// fans out one CountItem per center x catalog entry.
type CatalogEntry struct {
	CenterID     int64
	ItemCode     string
	Description  string
	DivisionCode string
	CategoryCode string
	GroupCode    string
	Unit         string
	SystemQty    float64
}

// ClassificationFilter narrows a candidate item set by classification codes.
// The zero value matches everything.
type ClassificationFilter struct {
	DivisionCode string
	CategoryCode string
	GroupCode    string
}

// Matches reports whether the item satisfies every set constraint.
func (f ClassificationFilter) Matches(item CountItem) bool {
	if f.DivisionCode != "" && item.DivisionCode != f.DivisionCode {
		return false
	}
	if f.CategoryCode != "" && item.CategoryCode != f.CategoryCode {
		return false
	}
	if f.GroupCode != "" && item.GroupCode != f.GroupCode {
		return false
	}
	return true
}

// RequestFilter selects requests for listing.
type RequestFilter struct {
	Status RequestStatus
	Search string
	Page   int
	Limit  int
}

// ItemFilter selects items for listing.
type ItemFilter struct {
	RequestID      int64
	CenterID       int64
	Status         ItemStatus
	Classification ClassificationFilter
	AssignedTo     int64
	Page           int
	Limit          int
}
