package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"homzy/server/internal/config"
	"homzy/server/internal/listing"
	"homzy/server/internal/services"
	"homzy/server/internal/tasks"
	"homzy/server/internal/utils"
)

// BookingHandler handles visit bookings and the approval endpoints.
type BookingHandler struct {
	bookingService  services.IBookingService
	propertyService services.IPropertyService
	cfg             *config.Config
	taskClient      IAsynqClient
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(
	bookingService services.IBookingService,
	propertyService services.IPropertyService,
	cfg *config.Config,
	taskClient IAsynqClient,
) *BookingHandler {
	return &BookingHandler{
		bookingService:  bookingService,
		propertyService: propertyService,
		cfg:             cfg,
		taskClient:      taskClient,
	}
}

type bookVisitRequest struct {
	PropertyID utils.FlexID `json:"propertyId" binding:"required"`
	VisitDate  *time.Time   `json:"visitDate"`
	Message    string       `json:"message"`
}

// BookVisit handles POST /api/user/bookvisit.
func (h *BookingHandler) BookVisit(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req bookVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	propertyRef := utils.UnwrapID(req.PropertyID)
	propertyOID, err := req.PropertyID.ObjectID()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	prop, err := h.propertyService.FindPropertyByID(c.Request.Context(), propertyOID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up property"})
		return
	}
	if prop.IsClosed {
		c.JSON(http.StatusConflict, gin.H{"error": "This property is no longer available"})
		return
	}

	booking, err := h.bookingService.BookVisit(c.Request.Context(), userID.Hex(), propertyRef, req.VisitDate, req.Message)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateBooking) {
			c.JSON(http.StatusConflict, gin.H{"error": "You already have a pending request for this property"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to book visit"})
		return
	}

	h.notifyOwner(prop.Contact.EmailAddress, prop.Basic.Title)

	c.JSON(http.StatusCreated, gin.H{"message": "Visit request submitted", "booking": booking})
}

// notifyOwner queues a heads-up email to the listing owner. Best effort.
func (h *BookingHandler) notifyOwner(ownerEmail, title string) {
	if ownerEmail == "" {
		return
	}
	body := fmt.Sprintf("Someone requested a visit for your listing %q on %s. Log in to approve or decline it.",
		title, h.cfg.AppName)
	task, err := tasks.NewEmailDeliveryTask(ownerEmail, "New visit request on "+h.cfg.AppName, body)
	if err != nil {
		log.Printf("Failed to build visit notification task: %v", err)
		return
	}
	if _, err := h.taskClient.Enqueue(task); err != nil {
		log.Printf("Failed to enqueue visit notification for %s: %v", ownerEmail, err)
	}
}

// MyBookings handles GET /api/user/booking.
func (h *BookingHandler) MyBookings(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	bookings, err := h.bookingService.FindBookingsByUser(c.Request.Context(), userID.Hex())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *BookingHandler) approve(c *gin.Context, kind listing.Kind) {
	propertyID := c.Param("id")

	err := h.bookingService.Approve(c.Request.Context(), kind, propertyID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoPendingBooking):
			c.JSON(http.StatusNotFound, gin.H{"error": "No pending booking for this property"})
		case errors.Is(err, services.ErrTransitionConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "This booking has already been decided"})
		case errors.Is(err, services.ErrTransitionInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "A decision for this property is already in progress"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve booking"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking approved"})
}

// ApproveRent handles PUT /api/rent/approverent/:id.
func (h *BookingHandler) ApproveRent(c *gin.Context) {
	h.approve(c, listing.KindRent)
}

// ApproveSale handles PUT /api/sale/approvesale/:id.
func (h *BookingHandler) ApproveSale(c *gin.Context) {
	h.approve(c, listing.KindSale)
}

// DeclineBooking handles DELETE /api/user/declinebooking/:userId/:propertyId.
func (h *BookingHandler) DeclineBooking(c *gin.Context) {
	userID := c.Param("userId")
	propertyID := c.Param("propertyId")

	err := h.bookingService.Decline(c.Request.Context(), userID, propertyID)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, services.ErrTransitionConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "This booking has already been decided"})
		case errors.Is(err, services.ErrTransitionInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "A decision for this property is already in progress"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decline booking"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking declined"})
}
