package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/handler"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/campuskit/equipment-service/pkg/validate"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	service_mocks "github.com/campuskit/equipment-service/internal/handler/mocks"
)

func statusPtr(s model.RequestStatus) *model.RequestStatus { return &s }

func TestHandler_CreateCheckout(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockEquipmentService)

	checkedOutAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			body: `{"inventoryId":"itm-1","checkedOutBy":"Dana Reyes"}`,
			mockBehavior: func(r *service_mocks.MockEquipmentService) {
				r.EXPECT().
					CreateCheckout(context.Background(), model.CreateCheckoutRequest{
						ItemUid:      "itm-1",
						CheckedOutBy: "Dana Reyes",
					}).
					Return(model.Checkout{
						CheckoutUid:  "77f0f183-6bfd-4f37-9e31-57ebb6f2b7bb",
						ItemUid:      "itm-1",
						CheckedOutBy: "Dana Reyes",
						Status:       model.CheckoutStatusCheckedOut,
						CheckedOutAt: checkedOutAt,
					}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"checkoutUid":"77f0f183-6bfd-4f37-9e31-57ebb6f2b7bb","itemUid":"itm-1","checkedOutBy":"Dana Reyes","status":"CHECKED_OUT","checkedOutAt":"2026-09-01T10:00:00Z"}`,
			},
			wantErr: false,
		},
		{
			name: "err. insufficient availability",
			body: `{"inventoryId":"itm-2","checkedOutBy":"Dana Reyes"}`,
			mockBehavior: func(r *service_mocks.MockEquipmentService) {
				r.EXPECT().
					CreateCheckout(context.Background(), model.CreateCheckoutRequest{
						ItemUid:      "itm-2",
						CheckedOutBy: "Dana Reyes",
					}).
					Return(model.Checkout{}, &errs.InsufficientAvailabilityError{
						ItemUid:   "itm-2",
						ItemName:  "tripod",
						Requested: 1,
						Available: 0,
					})
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"insufficient availability for item \"tripod\" (itm-2): requested 1, available 0"}`,
			},
			wantErr: true,
		},
		{
			name:         "err. checkedOutBy required",
			body:         `{"inventoryId":"itm-1"}`,
			mockBehavior: func(r *service_mocks.MockEquipmentService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"Key: 'CreateCheckoutRequest.CheckedOutBy' Error:Field validation for 'CheckedOutBy' failed on the 'required' tag"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockEquipmentService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/checkouts", h.CreateCheckout)

			r := httptest.NewRequest(http.MethodPost, "/checkouts", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ReturnCheckout(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockEquipmentService, checkoutUid string)

	checkedOutAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	returnedAt := time.Date(2026, 9, 5, 16, 30, 0, 0, time.UTC)

	var tests = []struct {
		name         string
		checkoutUid  string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name:        "ok",
			checkoutUid: "77f0f183-6bfd-4f37-9e31-57ebb6f2b7bb",
			mockBehavior: func(r *service_mocks.MockEquipmentService, checkoutUid string) {
				r.EXPECT().
					ReturnCheckout(context.Background(), checkoutUid).
					Return(model.Checkout{
						CheckoutUid:  checkoutUid,
						ItemUid:      "itm-1",
						CheckedOutBy: "Dana Reyes",
						Status:       model.CheckoutStatusReturned,
						CheckedOutAt: checkedOutAt,
						ReturnedAt:   &returnedAt,
					}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"checkoutUid":"77f0f183-6bfd-4f37-9e31-57ebb6f2b7bb","itemUid":"itm-1","checkedOutBy":"Dana Reyes","status":"RETURNED","checkedOutAt":"2026-09-01T10:00:00Z","returnedAt":"2026-09-05T16:30:00Z"}`,
			},
			wantErr: false,
		},
		{
			name:        "err. already returned",
			checkoutUid: "77f0f183-6bfd-4f37-9e31-57ebb6f2b7bb",
			mockBehavior: func(r *service_mocks.MockEquipmentService, checkoutUid string) {
				r.EXPECT().
					ReturnCheckout(context.Background(), checkoutUid).
					Return(model.Checkout{}, errs.ErrAlreadyReturned)
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"checkout already returned"}`,
			},
			wantErr: true,
		},
		{
			name:        "err. not found",
			checkoutUid: "00000000-0000-0000-0000-000000000000",
			mockBehavior: func(r *service_mocks.MockEquipmentService, checkoutUid string) {
				r.EXPECT().
					ReturnCheckout(context.Background(), checkoutUid).
					Return(model.Checkout{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockEquipmentService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/checkouts/:checkoutUid/return", h.ReturnCheckout)

			r := httptest.NewRequest(
				http.MethodPost, fmt.Sprintf("/checkouts/%s/return", tt.checkoutUid), http.NoBody)
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.checkoutUid)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_UpdateRequest(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockEquipmentService)

	createdAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var tests = []struct {
		name         string
		requestUid   string
		body         string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name:       "ok. approve",
			requestUid: "req-1",
			body:       `{"status":"APPROVED","adminName":"Priya"}`,
			mockBehavior: func(r *service_mocks.MockEquipmentService) {
				r.EXPECT().
					UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
						Status:    statusPtr(model.RequestStatusApproved),
						AdminName: "Priya",
					}).
					Return(model.CheckoutRequest{
						RequestUid:     "req-1",
						RequesterName:  "Sam Keel",
						RequesterEmail: "sam@example.com",
						Status:         model.RequestStatusApproved,
						CreatedAt:      createdAt,
					}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"requestUid":"req-1","requesterName":"Sam Keel","requesterEmail":"sam@example.com","status":"APPROVED","readyForPickup":false,"pickedUp":false,"createdAt":"2026-03-01T09:00:00Z","items":null,"messages":null,"checkouts":null,"returned":false}`,
			},
			wantErr: false,
		},
		{
			name:       "err. denial without reason",
			requestUid: "req-1",
			body:       `{"status":"DENIED"}`,
			mockBehavior: func(r *service_mocks.MockEquipmentService) {
				r.EXPECT().
					UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
						Status: statusPtr(model.RequestStatusDenied),
					}).
					Return(model.CheckoutRequest{}, errors.Wrap(errs.ErrValidation, "denial requires a reason message"))
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"denial requires a reason message: validation failed"}`,
			},
			wantErr: true,
		},
		{
			name:       "err. pickup before approval",
			requestUid: "req-1",
			body:       `{"pickedUp":true}`,
			mockBehavior: func(r *service_mocks.MockEquipmentService) {
				pickedUp := true
				r.EXPECT().
					UpdateRequest(context.Background(), "req-1", model.UpdateRequest{
						PickedUp: &pickedUp,
					}).
					Return(model.CheckoutRequest{}, errors.Wrap(errs.ErrInvalidTransition, "pickup requires an approved request"))
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"pickup requires an approved request: invalid request transition"}`,
			},
			wantErr: true,
		},
		{
			name:         "err. unknown status",
			requestUid:   "req-1",
			body:         `{"status":"SHREDDED"}`,
			mockBehavior: func(r *service_mocks.MockEquipmentService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"Key: 'UpdateRequest.Status' Error:Field validation for 'Status' failed on the 'oneof' tag"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockEquipmentService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.PUT("/requests/:requestUid", h.UpdateRequest)

			r := httptest.NewRequest(
				http.MethodPut, fmt.Sprintf("/requests/%s", tt.requestUid), strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_GetAvailability(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockEquipmentService, itemUid string)

	var tests = []struct {
		name         string
		itemUid      string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name:    "ok",
			itemUid: "itm-1",
			mockBehavior: func(r *service_mocks.MockEquipmentService, itemUid string) {
				r.EXPECT().
					GetAvailability(context.Background(), itemUid).
					Return(model.Availability{
						ItemUid:    itemUid,
						Quantity:   5,
						Ceiling:    4,
						CheckedOut: 1,
						Available:  3,
					}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"itemUid":"itm-1","quantity":5,"ceiling":4,"checkedOut":1,"available":3}`,
			},
			wantErr: false,
		},
		{
			name:    "err. not found",
			itemUid: "itm-404",
			mockBehavior: func(r *service_mocks.MockEquipmentService, itemUid string) {
				r.EXPECT().
					GetAvailability(context.Background(), itemUid).
					Return(model.Availability{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockEquipmentService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.GET("/inventory/:itemUid/availability", h.GetAvailability)

			r := httptest.NewRequest(
				http.MethodGet, fmt.Sprintf("/inventory/%s/availability", tt.itemUid), http.NoBody)
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.itemUid)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_DeleteItem(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockEquipmentService, itemUid string)

	var tests = []struct {
		name         string
		itemUid      string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name:    "ok",
			itemUid: "itm-1",
			mockBehavior: func(r *service_mocks.MockEquipmentService, itemUid string) {
				r.EXPECT().
					DeleteItem(context.Background(), itemUid).
					Return(nil)
			},
			response: response{
				expectedCode: http.StatusNoContent,
				expectedBody: ``,
			},
			wantErr: false,
		},
		{
			name:    "err. active checkouts",
			itemUid: "itm-1",
			mockBehavior: func(r *service_mocks.MockEquipmentService, itemUid string) {
				r.EXPECT().
					DeleteItem(context.Background(), itemUid).
					Return(errs.ErrActiveCheckouts)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"active checkouts exist"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockEquipmentService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.DELETE("/inventory/:itemUid", h.DeleteItem)

			r := httptest.NewRequest(
				http.MethodDelete, fmt.Sprintf("/inventory/%s", tt.itemUid), http.NoBody)
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.itemUid)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}
