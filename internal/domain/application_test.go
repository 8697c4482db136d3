package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingApp() *VendorApplication {
	return &VendorApplication{
		Base:              Base{ID: "app-1"},
		UserID:            "user-a",
		StoreName:         "Green Farm",
		City:              "Riyadh",
		Region:            "Central",
		YearsOfExperience: 4,
		WhatsappNumber:    "+966500000001",
		CallNumber:        "+966500000002",
		Status:            ApplicationPending,
		Version:           1,
		Specialization:    []string{"cat-cow", "cat-sheep"},
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.False(t, ApplicationPending.IsTerminal())
	assert.True(t, ApplicationApproved.IsTerminal())
	assert.True(t, ApplicationRejected.IsTerminal())
	assert.True(t, ApplicationPending.IsValid())
	assert.False(t, ApplicationStatus("ARCHIVED").IsValid())
}

func TestTransitionApprove(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	app := pendingApp()

	d, err := Transition(app, Approve{ReviewerID: "admin-1"}, now)
	require.NoError(t, err)
	assert.Equal(t, ApplicationPending, d.From)
	assert.Equal(t, ApplicationApproved, d.To)
	assert.Equal(t, "admin-1", d.ReviewedBy)
	assert.Equal(t, now, d.ReviewedAt)
	assert.Empty(t, d.RejectionReason)

	ev, ok := d.Event.(VendorApproved)
	require.True(t, ok)
	assert.Equal(t, EventVendorApproved, ev.EventType())
	assert.Equal(t, "app-1", ev.AggregateID())
	assert.Equal(t, []string{"cat-cow", "cat-sheep"}, ev.CategoryIDs)
	assert.Equal(t, "user-a", ev.Vendor.UserID)
	assert.Equal(t, "Green Farm", ev.Vendor.StoreName)
	assert.True(t, ev.Vendor.IsApproved)
	require.NotNil(t, ev.Vendor.ApprovedAt)
	assert.Equal(t, now, *ev.Vendor.ApprovedAt)

	// 纯函数：不修改入参
	assert.Equal(t, ApplicationPending, app.Status)
}

func TestTransitionRejectNeedsReason(t *testing.T) {
	now := time.Now()
	_, err := Transition(pendingApp(), Reject{ReviewerID: "admin-1", Reason: "   "}, now)
	assert.ErrorIs(t, err, ErrRejectionReasonRequired)
	assert.Equal(t, KindValidation, KindOf(err))

	d, err := Transition(pendingApp(), Reject{ReviewerID: "admin-1", Reason: " Incomplete documents "}, now)
	require.NoError(t, err)
	assert.Equal(t, ApplicationRejected, d.To)
	assert.Equal(t, "Incomplete documents", d.RejectionReason)
	_, isApproval := d.Event.(VendorApproved)
	assert.False(t, isApproval)
	assert.Equal(t, EventApplicationRejected, d.Event.EventType())
}

func TestTransitionFromTerminalIsConflict(t *testing.T) {
	actions := []ReviewAction{
		Approve{ReviewerID: "admin-2"},
		Reject{ReviewerID: "admin-2", Reason: "late"},
	}
	for _, st := range []ApplicationStatus{ApplicationApproved, ApplicationRejected} {
		for _, a := range actions {
			app := pendingApp()
			app.Status = st
			_, err := Transition(app, a, time.Now())
			assert.ErrorIs(t, err, ErrAlreadyReviewed)
			assert.Equal(t, KindConflict, KindOf(err))
		}
	}
}

func TestTransitionNilInputs(t *testing.T) {
	_, err := Transition(nil, Approve{}, time.Now())
	assert.ErrorIs(t, err, ErrApplicationNotFound)
	_, err = Transition(pendingApp(), nil, time.Now())
	assert.ErrorIs(t, err, ErrUnknownReviewAction)
}

func TestParseReviewAction(t *testing.T) {
	a, err := ParseReviewAction(ApplicationApproved, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, Approve{ReviewerID: "admin"}, a)

	a, err = ParseReviewAction(ApplicationRejected, "admin", "nope")
	require.NoError(t, err)
	assert.Equal(t, Reject{ReviewerID: "admin", Reason: "nope"}, a)

	_, err = ParseReviewAction(ApplicationPending, "admin", "")
	assert.ErrorIs(t, err, ErrUnknownReviewAction)
}

func TestDecisionApply(t *testing.T) {
	app := pendingApp()
	d, err := Transition(app, Reject{ReviewerID: "admin-1", Reason: "Incomplete documents"}, time.Now())
	require.NoError(t, err)
	d.Apply(app)
	assert.Equal(t, ApplicationRejected, app.Status)
	assert.Equal(t, "admin-1", app.ReviewedBy)
	assert.Equal(t, "Incomplete documents", app.RejectionReason)
	assert.NotNil(t, app.ReviewedAt)
	assert.Equal(t, 2, app.Version)
}

func TestFillSpecialization(t *testing.T) {
	app := &VendorApplication{Categories: []ApplicationCategory{{CategoryID: "a"}, {CategoryID: "b"}}}
	app.FillSpecialization()
	assert.Equal(t, []string{"a", "b"}, app.Specialization)

	empty := &VendorApplication{}
	empty.FillSpecialization()
	assert.NotNil(t, empty.Specialization)
	assert.Empty(t, empty.Specialization)
}

func TestErrorKinds(t *testing.T) {
	wrapped := Internal("db down", errors.New("conn refused"))
	assert.Equal(t, KindInternal, KindOf(wrapped))
	assert.Equal(t, "conn refused", errors.Unwrap(wrapped).Error())
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("x")))
	assert.Equal(t, "not_found", KindNotFound.String())
}
