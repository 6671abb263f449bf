package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/docuforge/backend/internal/application/services"
	"github.com/docuforge/backend/internal/domain/models"
	"github.com/docuforge/backend/internal/interfaces/rest"
	"github.com/docuforge/backend/pkg/auth"
	apperrors "github.com/docuforge/backend/pkg/errors"
)

// MockApprovalService is a mock implementation of the ApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) Submit(ctx context.Context, req services.SubmitRequest, reviewer *auth.ReviewerSession) (string, error) {
	args := m.Called(ctx, req, reviewer)
	return args.String(0), args.Error(1)
}

func (m *MockApprovalService) Approve(ctx context.Context, workItemID, comments string, reviewer *auth.ReviewerSession) error {
	args := m.Called(ctx, workItemID, comments, reviewer)
	return args.Error(0)
}

func (m *MockApprovalService) Reject(ctx context.Context, workItemID, comments string, reviewer *auth.ReviewerSession) error {
	args := m.Called(ctx, workItemID, comments, reviewer)
	return args.Error(0)
}

func (m *MockApprovalService) Pending(ctx context.Context, reviewer *auth.ReviewerSession) ([]*models.ApprovalWorkItem, error) {
	args := m.Called(ctx, reviewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ApprovalWorkItem), args.Error(1)
}

func (m *MockApprovalService) History(ctx context.Context, documentID string) ([]*models.ApprovalWorkItem, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ApprovalWorkItem), args.Error(1)
}

func reviewerContext(w *httptest.ResponseRecorder) (*gin.Context, *auth.ReviewerSession) {
	c, _ := gin.CreateTestContext(w)
	session := auth.ReviewerSession{
		ID:    "rev-1",
		Name:  "Kim Reviewer",
		Email: "kim@example.com",
		Role:  auth.RoleReviewer,
	}
	c.Set(rest.ContextKeyReviewer, session)
	return c, &session
}

func TestApprovalHandler_Submit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockApprovalService)
	handler := rest.NewApprovalHandler(mockService)

	t.Run("Success", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, reviewer := reviewerContext(w)

		reqBody := rest.SubmitRequest{
			DocumentID: "doc-1",
			Comments:   "Please review",
		}
		jsonBytes, _ := json.Marshal(reqBody)
		c.Request = httptest.NewRequest("POST", "/api/approvals/submit", bytes.NewBuffer(jsonBytes))

		serviceReq := services.SubmitRequest{
			DocumentID: "doc-1",
			Comments:   "Please review",
		}
		mockService.On("Submit", mock.Anything, serviceReq, reviewer).Return("wi-1", nil).Once()

		handler.Submit(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "wi-1", resp["work_item_id"])
		mockService.AssertExpectations(t)
	})

	t.Run("Missing document_id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := reviewerContext(w)

		c.Request = httptest.NewRequest("POST", "/api/approvals/submit", bytes.NewBufferString(`{"comments":"x"}`))

		handler.Submit(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Duplicate pending", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, reviewer := reviewerContext(w)

		reqBody := rest.SubmitRequest{DocumentID: "doc-1"}
		jsonBytes, _ := json.Marshal(reqBody)
		c.Request = httptest.NewRequest("POST", "/api/approvals/submit", bytes.NewBuffer(jsonBytes))

		mockService.On("Submit", mock.Anything, services.SubmitRequest{DocumentID: "doc-1"}, reviewer).
			Return("", apperrors.NewConflictError("approval work item", "document_id", "doc-1")).Once()

		handler.Submit(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestApprovalHandler_Decisions(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockApprovalService)
	handler := rest.NewApprovalHandler(mockService)

	t.Run("Approve success", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, reviewer := reviewerContext(w)

		c.Params = gin.Params{{Key: "workItemId", Value: "wi-1"}}
		c.Request = httptest.NewRequest("POST", "/api/approvals/wi-1/approve", bytes.NewBufferString(`{"comments":"LGTM"}`))

		mockService.On("Approve", mock.Anything, "wi-1", "LGTM", reviewer).Return(nil).Once()

		handler.Approve(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Reject forwards comments", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, reviewer := reviewerContext(w)

		c.Params = gin.Params{{Key: "workItemId", Value: "wi-2"}}
		c.Request = httptest.NewRequest("POST", "/api/approvals/wi-2/reject", bytes.NewBufferString(`{"comments":"Purpose section is wrong"}`))

		mockService.On("Reject", mock.Anything, "wi-2", "Purpose section is wrong", reviewer).Return(nil).Once()

		handler.Reject(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Approve permission denied", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, reviewer := reviewerContext(w)

		c.Params = gin.Params{{Key: "workItemId", Value: "wi-3"}}
		c.Request = httptest.NewRequest("POST", "/api/approvals/wi-3/approve", bytes.NewBufferString(`{}`))

		mockService.On("Approve", mock.Anything, "wi-3", "", reviewer).
			Return(apperrors.NewPermissionError("decide", "this approval work item")).Once()

		handler.Approve(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestApprovalHandler_GetPending(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockApprovalService)
	handler := rest.NewApprovalHandler(mockService)

	w := httptest.NewRecorder()
	c, reviewer := reviewerContext(w)
	c.Request = httptest.NewRequest("GET", "/api/approvals/pending", nil)

	items := []*models.ApprovalWorkItem{
		{ID: "wi-1", DocumentID: "doc-1", Status: models.ApprovalStatusPending},
	}
	mockService.On("Pending", mock.Anything, reviewer).Return(items, nil).Once()

	handler.GetPending(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.ApprovalWorkItem `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "wi-1", resp.Data[0].ID)
	mockService.AssertExpectations(t)
}
