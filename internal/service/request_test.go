package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/campuskit/equipment-service/internal/repository"
	"github.com/campuskit/equipment-service/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	type tr struct {
		from, to model.RequestStatus
	}
	allowed := map[tr]bool{
		{model.RequestStatusUnseen, model.RequestStatusSeen}:     true,
		{model.RequestStatusUnseen, model.RequestStatusApproved}: true,
		{model.RequestStatusUnseen, model.RequestStatusDenied}:   true,
		{model.RequestStatusSeen, model.RequestStatusApproved}:   true,
		{model.RequestStatusSeen, model.RequestStatusDenied}:     true,
		{model.RequestStatusDenied, model.RequestStatusApproved}: true,
	}
	statuses := []model.RequestStatus{
		model.RequestStatusUnseen,
		model.RequestStatusSeen,
		model.RequestStatusApproved,
		model.RequestStatusDenied,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			require.Equalf(t, allowed[tr{from, to}], service.CanTransition(from, to),
				"%s -> %s", from, to)
		}
	}
}

// fakeRepo is a lightweight in-memory repository; only the methods the
// lifecycle exercises are implemented, everything else panics via the
// embedded nil interface.
type fakeRepo struct {
	repository.Repository

	row       model.CheckoutRequest
	items     []model.RequestItem
	msgs      []model.Message
	checkouts []model.Checkout

	markErr     error
	markCalls   int
	deleteCalls int
}

func (f *fakeRepo) GetRequestRow(_ context.Context, requestUid string) (model.CheckoutRequest, error) {
	if requestUid != f.row.RequestUid {
		return model.CheckoutRequest{}, errs.ErrNotFound
	}
	return f.row, nil
}

func (f *fakeRepo) ListRequestItems(context.Context, int) ([]model.RequestItem, error) {
	return f.items, nil
}

func (f *fakeRepo) ListMessages(context.Context, int) ([]model.Message, error) {
	return f.msgs, nil
}

func (f *fakeRepo) ListCheckoutsByRequest(context.Context, int) ([]model.Checkout, error) {
	return f.checkouts, nil
}

func (f *fakeRepo) SetRequestStatus(_ context.Context, _ int, status model.RequestStatus) error {
	f.row.Status = status
	return nil
}

func (f *fakeRepo) DenyRequest(_ context.Context, _ int, reason model.Message) error {
	f.row.Status = model.RequestStatusDenied
	f.msgs = append(f.msgs, reason)
	return nil
}

func (f *fakeRepo) SetReadyForPickup(_ context.Context, _ int, pickupAt *time.Time, loc string) error {
	f.row.ReadyForPickup = true
	f.row.PickupAt = pickupAt
	f.row.PickupLocation = loc
	return nil
}

func (f *fakeRepo) MarkPickedUp(_ context.Context, req model.CheckoutRequest, lines []model.CheckoutLine) ([]model.Checkout, error) {
	f.markCalls++
	if f.markErr != nil {
		return nil, f.markErr
	}
	f.row.PickedUp = true
	var created []model.Checkout
	for _, line := range lines {
		for n := 0; n < line.Quantity; n++ {
			c := model.Checkout{
				ItemUid:      line.ItemUid,
				RequestID:    line.RequestID,
				CheckedOutBy: line.CheckedOutBy,
				Status:       model.CheckoutStatusCheckedOut,
			}
			created = append(created, c)
			f.checkouts = append(f.checkouts, c)
		}
	}
	return created, nil
}

func (f *fakeRepo) ReturnAll(context.Context, int) ([]model.Checkout, error) {
	var returned []model.Checkout
	for i := range f.checkouts {
		if f.checkouts[i].Status == model.CheckoutStatusCheckedOut {
			f.checkouts[i].Status = model.CheckoutStatusReturned
			returned = append(returned, f.checkouts[i])
		}
	}
	return returned, nil
}

func (f *fakeRepo) AppendMessage(_ context.Context, msg model.Message) (model.Message, error) {
	f.msgs = append(f.msgs, msg)
	return msg, nil
}

func (f *fakeRepo) DeleteRequest(context.Context, int) error {
	f.deleteCalls++
	return nil
}

func newTestService(repo repository.Repository) *service.Service {
	return service.NewService(repo, nil, zap.NewNop())
}

func statusPtr(s model.RequestStatus) *model.RequestStatus { return &s }
func boolPtr(b bool) *bool                                 { return &b }

func pendingRequest(status model.RequestStatus) *fakeRepo {
	return &fakeRepo{
		row: model.CheckoutRequest{
			ID:            1,
			RequestUid:    "req-1",
			RequesterName: "Sam Keel",
			Status:        status,
		},
		items: []model.RequestItem{
			{RequestID: 1, ItemUid: "item-a", Quantity: 2},
			{RequestID: 1, ItemUid: "item-b", Quantity: 1},
		},
	}
}

func TestUpdateRequest_DenialRequiresReason(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusSeen)
	svc := newTestService(repo)

	_, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
		Status: statusPtr(model.RequestStatusDenied),
	})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Equal(t, model.RequestStatusSeen, repo.row.Status)
	require.Empty(t, repo.msgs)
}

func TestUpdateRequest_DenialAppendsReason(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusSeen)
	svc := newTestService(repo)

	req, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
		Status:  statusPtr(model.RequestStatusDenied),
		Message: "out for repairs until April",
	})
	require.NoError(t, err)
	require.Equal(t, model.RequestStatusDenied, req.Status)
	require.Len(t, req.Messages, 1)
	require.Equal(t, model.SenderAdmin, req.Messages[0].Sender)
	require.Equal(t, "out for repairs until April", req.Messages[0].Body)
}

func TestUpdateRequest_Transitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    model.RequestStatus
		to      model.RequestStatus
		message string
		wantErr error
	}{
		{name: "unseen to seen", from: model.RequestStatusUnseen, to: model.RequestStatusSeen},
		{name: "seen to approved", from: model.RequestStatusSeen, to: model.RequestStatusApproved},
		{name: "re-approval of denied", from: model.RequestStatusDenied, to: model.RequestStatusApproved},
		{name: "approved cannot be denied", from: model.RequestStatusApproved, to: model.RequestStatusDenied,
			message: "too late", wantErr: errs.ErrInvalidTransition},
		{name: "seen cannot go back to unseen", from: model.RequestStatusSeen, to: model.RequestStatusUnseen,
			wantErr: errs.ErrInvalidTransition},
		{name: "approved cannot regress to seen", from: model.RequestStatusApproved, to: model.RequestStatusSeen,
			wantErr: errs.ErrInvalidTransition},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := pendingRequest(tt.from)
			svc := newTestService(repo)

			req, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
				Status:  statusPtr(tt.to),
				Message: tt.message,
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Equal(t, tt.from, repo.row.Status)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.to, req.Status)
		})
	}
}

func TestUpdateRequest_SameStatusIsNoop(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusSeen)
	svc := newTestService(repo)

	req, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
		Status: statusPtr(model.RequestStatusSeen),
	})
	require.NoError(t, err)
	require.Equal(t, model.RequestStatusSeen, req.Status)
}

func TestUpdateRequest_ReadyForPickupRequiresApproval(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusSeen)
	svc := newTestService(repo)

	_, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
		ReadyForPickup: boolPtr(true),
	})
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	require.False(t, repo.row.ReadyForPickup)
}

func TestUpdateRequest_ApproveAndMarkReadyInOneCall(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusSeen)
	svc := newTestService(repo)

	pickup := time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)
	req, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
		Status:         statusPtr(model.RequestStatusApproved),
		ReadyForPickup: boolPtr(true),
		PickupAt:       &pickup,
		PickupLocation: "front desk",
	})
	require.NoError(t, err)
	require.True(t, req.ReadyForPickup)
	require.Equal(t, "front desk", req.PickupLocation)
}

func TestUpdateRequest_PickupRequiresApproval(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusSeen)
	svc := newTestService(repo)

	_, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
		PickedUp: boolPtr(true),
	})
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	require.Zero(t, repo.markCalls)
}

func TestUpdateRequest_PickupMaterializesUnitCheckouts(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusApproved)
	svc := newTestService(repo)

	req, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
		PickedUp: boolPtr(true),
	})
	require.NoError(t, err)
	require.True(t, req.PickedUp)
	// one row per unit: 2 of item-a, 1 of item-b
	require.Len(t, req.Checkouts, 3)
	for _, c := range req.Checkouts {
		require.Equal(t, model.CheckoutStatusCheckedOut, c.Status)
		require.Equal(t, "Sam Keel", c.CheckedOutBy)
	}
	require.False(t, req.Returned)
}

func TestUpdateRequest_InsufficientPickupIsAtomic(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusApproved)
	repo.markErr = &errs.InsufficientAvailabilityError{
		ItemUid:   "item-b",
		ItemName:  "tripod",
		Requested: 1,
		Available: 0,
	}
	svc := newTestService(repo)

	_, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
		PickedUp: boolPtr(true),
	})
	require.True(t, errs.IsInsufficientAvailability(err))
	require.Contains(t, err.Error(), "tripod")
	require.Empty(t, repo.checkouts)
	require.False(t, repo.row.PickedUp)
}

func TestUpdateRequest_DoublePickupRejected(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusApproved)
	svc := newTestService(repo)

	_, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{PickedUp: boolPtr(true)})
	require.NoError(t, err)

	_, err = svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{PickedUp: boolPtr(true)})
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	require.Equal(t, 1, repo.markCalls)
}

func TestUpdateRequest_ReturnAll(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusApproved)
	svc := newTestService(repo)

	_, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{PickedUp: boolPtr(true)})
	require.NoError(t, err)

	req, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{Returned: boolPtr(true)})
	require.NoError(t, err)
	require.True(t, req.Returned)
	for _, c := range req.Checkouts {
		require.Equal(t, model.CheckoutStatusReturned, c.Status)
	}
}

func TestUpdateRequest_ReturnBeforePickupRejected(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusApproved)
	svc := newTestService(repo)

	_, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{Returned: boolPtr(true)})
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestUpdateRequest_StatusFrozenAfterPickup(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusApproved)
	svc := newTestService(repo)

	_, err := svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{PickedUp: boolPtr(true)})
	require.NoError(t, err)

	_, err = svc.UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
		Status:  statusPtr(model.RequestStatusDenied),
		Message: "never mind",
	})
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestPostMessage_DoesNotTouchStatus(t *testing.T) {
	t.Parallel()

	repo := pendingRequest(model.RequestStatusUnseen)
	svc := newTestService(repo)

	msg, err := svc.PostMessage(context.Background(), "req-1", model.PostMessageRequest{
		Sender:     model.SenderRequester,
		SenderName: "Sam Keel",
		Message:    "any update?",
	})
	require.NoError(t, err)
	require.Equal(t, "any update?", msg.Body)
	require.Equal(t, model.RequestStatusUnseen, repo.row.Status)
}
