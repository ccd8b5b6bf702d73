package count

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/countwise/countwise/internal/shared"
)

func TestParseRequestStatusRejectsUnknown(t *testing.T) {
	_, err := ParseRequestStatus("ARCHIVED")
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)

	status, err := ParseRequestStatus("IN_PROGRESS")
	require.NoError(t, err)
	require.Equal(t, RequestStatusInProgress, status)
}

func TestParseItemStatusRejectsUnknown(t *testing.T) {
	_, err := ParseItemStatus("FROZEN")
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = ParseItemStatus("counted")
	require.Error(t, err)
}

func TestItemTransitions(t *testing.T) {
	require.True(t, CanTransition(ItemStatusPending, ItemStatusAssigned))
	require.True(t, CanTransition(ItemStatusAssigned, ItemStatusCounted))
	require.True(t, CanTransition(ItemStatusCounted, ItemStatusCounted))
	require.True(t, CanTransition(ItemStatusCounted, ItemStatusReviewing))
	require.True(t, CanTransition(ItemStatusReviewing, ItemStatusApproved))
	require.True(t, CanTransition(ItemStatusReviewing, ItemStatusRejected))
	require.True(t, CanTransition(ItemStatusRejected, ItemStatusAssigned))
	require.True(t, CanTransition(ItemStatusRejected, ItemStatusCounted))

	require.False(t, CanTransition(ItemStatusApproved, ItemStatusReviewing))
	require.False(t, CanTransition(ItemStatusApproved, ItemStatusAssigned))
	require.False(t, CanTransition(ItemStatusPending, ItemStatusCounted))
	require.False(t, CanTransition(ItemStatusReviewing, ItemStatusCounted))
}

func TestClassifyDifference(t *testing.T) {
	require.Equal(t, AdjustmentSurplus, ClassifyDifference(2.5))
	require.Equal(t, AdjustmentShortage, ClassifyDifference(-0.5))
	require.Equal(t, AdjustmentNone, ClassifyDifference(0))
}

func TestApplyCountDerivesFields(t *testing.T) {
	item := CountItem{SystemQty: 10, Status: ItemStatusAssigned}
	require.NoError(t, item.ApplyCount(7, "three missing"))
	require.Equal(t, ItemStatusCounted, item.Status)
	require.NotNil(t, item.PhysicalQty)
	require.Equal(t, 7.0, *item.PhysicalQty)
	require.Equal(t, -3.0, item.Difference)
	require.Equal(t, AdjustmentShortage, item.AdjustmentType)
	require.Equal(t, "three missing", item.CounterComment)
}

func TestApplyCountZeroIsValid(t *testing.T) {
	item := CountItem{SystemQty: 4, Status: ItemStatusAssigned}
	require.NoError(t, item.ApplyCount(0, ""))
	require.NotNil(t, item.PhysicalQty)
	require.Equal(t, 0.0, *item.PhysicalQty)
	require.Equal(t, -4.0, item.Difference)
	require.Equal(t, AdjustmentShortage, item.AdjustmentType)
}

func TestApplyCountRejectsInvalidQuantities(t *testing.T) {
	item := CountItem{SystemQty: 4}
	require.Error(t, item.ApplyCount(-1, ""))
	require.Error(t, item.ApplyCount(math.NaN(), ""))
	require.Error(t, item.ApplyCount(math.Inf(1), ""))
	require.Nil(t, item.PhysicalQty)
}

func TestClassificationFilterMatches(t *testing.T) {
	item := CountItem{DivisionCode: "D1", CategoryCode: "C2", GroupCode: "G3"}
	require.True(t, ClassificationFilter{}.Matches(item))
	require.True(t, ClassificationFilter{DivisionCode: "D1"}.Matches(item))
	require.True(t, ClassificationFilter{DivisionCode: "D1", CategoryCode: "C2", GroupCode: "G3"}.Matches(item))
	require.False(t, ClassificationFilter{DivisionCode: "D2"}.Matches(item))
	require.False(t, ClassificationFilter{DivisionCode: "D1", GroupCode: "G9"}.Matches(item))
}
