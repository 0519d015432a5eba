package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"homzy/server/internal/api/handlers"
	"homzy/server/internal/api/middleware"
	"homzy/server/internal/listing"
	"homzy/server/internal/models"
	"homzy/server/internal/services"
)

// fakeAuth injects the auth context the real middleware would set.
func fakeAuth(userID primitive.ObjectID, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID.Hex())
		c.Set(middleware.ContextKeyIsAdmin, isAdmin)
		c.Next()
	}
}

func TestApproveRent_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockBookings := new(MockBookingService)
	h := handlers.NewBookingHandler(mockBookings, nil, testConfig(), nil)

	propertyID := primitive.NewObjectID().Hex()
	mockBookings.On("Approve", mock.Anything, listing.KindRent, propertyID).Return(nil).Once()

	router := gin.New()
	router.PUT("/api/rent/approverent/:id", h.ApproveRent)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/rent/approverent/"+propertyID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockBookings.AssertExpectations(t)
}

func TestApproveSale_AlreadyDecided(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockBookings := new(MockBookingService)
	h := handlers.NewBookingHandler(mockBookings, nil, testConfig(), nil)

	propertyID := primitive.NewObjectID().Hex()
	mockBookings.On("Approve", mock.Anything, listing.KindSale, propertyID).
		Return(services.ErrTransitionConflict).Once()

	router := gin.New()
	router.PUT("/api/sale/approvesale/:id", h.ApproveSale)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/sale/approvesale/"+propertyID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestApproveRent_NoPendingBooking(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockBookings := new(MockBookingService)
	h := handlers.NewBookingHandler(mockBookings, nil, testConfig(), nil)

	propertyID := primitive.NewObjectID().Hex()
	mockBookings.On("Approve", mock.Anything, listing.KindRent, propertyID).
		Return(services.ErrNoPendingBooking).Once()

	router := gin.New()
	router.PUT("/api/rent/approverent/:id", h.ApproveRent)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/rent/approverent/"+propertyID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeclineBooking_InFlight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockBookings := new(MockBookingService)
	h := handlers.NewBookingHandler(mockBookings, nil, testConfig(), nil)

	userID := primitive.NewObjectID().Hex()
	propertyID := primitive.NewObjectID().Hex()
	mockBookings.On("Decline", mock.Anything, userID, propertyID).
		Return(services.ErrTransitionInFlight).Once()

	router := gin.New()
	router.DELETE("/api/user/declinebooking/:userId/:propertyId", h.DeclineBooking)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/user/declinebooking/"+userID+"/"+propertyID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookVisit_ClosedProperty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockBookings := new(MockBookingService)
	mockProperties := new(MockPropertyService)
	h := handlers.NewBookingHandler(mockBookings, mockProperties, testConfig(), nil)

	userID := primitive.NewObjectID()
	propertyID := primitive.NewObjectID()

	closed := &models.Property{Kind: string(listing.KindRent), IsClosed: true}
	closed.SetID(propertyID)
	mockProperties.On("FindPropertyByID", mock.Anything, propertyID).Return(closed, nil).Once()

	router := gin.New()
	router.POST("/api/user/bookvisit", fakeAuth(userID, false), h.BookVisit)

	body := jsonBody(t, gin.H{"propertyId": propertyID.Hex()})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/user/bookvisit", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockBookings.AssertNotCalled(t, "BookVisit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookVisit_WrappedPropertyID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockBookings := new(MockBookingService)
	mockProperties := new(MockPropertyService)
	mockClient := new(MockAsynqClient)
	h := handlers.NewBookingHandler(mockBookings, mockProperties, testConfig(), mockClient)

	userID := primitive.NewObjectID()
	propertyID := primitive.NewObjectID()

	open := &models.Property{Kind: string(listing.KindSale)}
	open.SetID(propertyID)
	open.Contact.EmailAddress = "owner@example.com"
	mockProperties.On("FindPropertyByID", mock.Anything, propertyID).Return(open, nil).Once()

	booking := &models.Booking{Status: models.BookingPending}
	booking.GenID()
	mockBookings.On("BookVisit", mock.Anything, userID.Hex(), propertyID.Hex(), mock.Anything, "").
		Return(booking, nil).Once()
	mockClient.On("Enqueue", mock.Anything, mock.Anything).Return(nil, nil).Once()

	router := gin.New()
	router.POST("/api/user/bookvisit", fakeAuth(userID, false), h.BookVisit)

	// Mongo-export style reference shape.
	body := jsonBody(t, gin.H{"propertyId": gin.H{"$oid": propertyID.Hex()}})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/user/bookvisit", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	mockBookings.AssertExpectations(t)
}

func TestMyBookings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockBookings := new(MockBookingService)
	h := handlers.NewBookingHandler(mockBookings, nil, testConfig(), nil)

	userID := primitive.NewObjectID()
	enriched := []listing.EnrichedBooking{{Title: listing.UnknownPropertyTitle}}
	mockBookings.On("FindBookingsByUser", mock.Anything, userID.Hex()).Return(enriched, nil).Once()

	router := gin.New()
	router.GET("/api/user/booking", fakeAuth(userID, false), h.MyBookings)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/user/booking", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), listing.UnknownPropertyTitle)
}
