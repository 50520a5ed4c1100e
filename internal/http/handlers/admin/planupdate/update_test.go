package planupdate

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Update(ctx context.Context, id string, req models.DummyPlan) (*models.MembershipPlan, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MembershipPlan), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestPlanUpdateHandler_ServeHTTP(t *testing.T) {
	const id = "9c1d4e2a-3b5f-4c6d-8e7f-1a2b3c4d5e6f"
	body := `{"name":"30 Days","description":"Monthly pass","duration_days":30,"original_price":1999,"discount_price":899,"is_active":false}`

	tests := []struct {
		name           string
		body           string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "updated",
			body: body,
			setupMocks: func(s *MockService) {
				s.On("Update", mock.Anything, id, mock.MatchedBy(func(p models.DummyPlan) bool {
					return p.DiscountPrice == 899 && p.IsActive != nil && !*p.IsActive
				})).Return(&models.MembershipPlan{ID: id, DiscountPrice: 899}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"discount_price":899`,
		},
		{
			name: "not found",
			body: body,
			setupMocks: func(s *MockService) {
				s.On("Update", mock.Anything, id, mock.Anything).Return(nil, models.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"code":"NOT_FOUND"`,
		},
		{
			name:           "price above limit",
			body:           `{"name":"30 Days","description":"Monthly pass","duration_days":30,"original_price":92233720368547758,"discount_price":92233720368547758}`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `must not exceed 1000000`,
		},
		{
			name:           "validation error",
			body:           `{"name":"30 Days"}`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"code":"VALIDATION_ERROR"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodPut, "/admin/plans/"+id, strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			rr := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
