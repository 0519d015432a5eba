package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"homzy/server/internal/api/middleware"
	"homzy/server/internal/auth"
	"homzy/server/internal/config"
	"homzy/server/internal/models"
	"homzy/server/internal/services"
	"homzy/server/internal/tasks"
)

// IAsynqClient abstracts the Asynq client so handlers can be tested with a
// mock.
type IAsynqClient interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// UserHandler handles account, engagement and admin-dashboard requests.
type UserHandler struct {
	userService    services.IUserService
	bookingService services.IBookingService
	enquiryService services.IEnquiryService
	cfg            *config.Config
	taskClient     IAsynqClient
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(
	userService services.IUserService,
	bookingService services.IBookingService,
	enquiryService services.IEnquiryService,
	cfg *config.Config,
	taskClient IAsynqClient,
) *UserHandler {
	return &UserHandler{
		userService:    userService,
		bookingService: bookingService,
		enquiryService: enquiryService,
		cfg:            cfg,
		taskClient:     taskClient,
	}
}

type registerRequest struct {
	FullName string `json:"fullname" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register handles POST /api/user/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.FullName, req.Email, req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Account created successfully", "user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *UserHandler) login(c *gin.Context, adminOnly bool) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	if adminOnly && !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Administrator privileges required"})
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.IsAdmin, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Login handles POST /api/user/login.
func (h *UserHandler) Login(c *gin.Context) {
	h.login(c, false)
}

// AdminLogin handles POST /api/admin/login.
func (h *UserHandler) AdminLogin(c *gin.Context) {
	h.login(c, true)
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword handles POST /api/user/forgotpassword. The response is the
// same whether or not the address is registered.
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.userService.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password reset"})
		return
	}

	if err == nil {
		body := fmt.Sprintf("Hi %s,\n\nUse this token to reset your %s password: %s\n\nThe token expires in %s. If you did not request a reset, ignore this email.",
			user.FullName, h.cfg.AppName, token, h.cfg.ResetTokenTTL)
		task, taskErr := tasks.NewEmailDeliveryTask(user.Email, h.cfg.AppName+" password reset", body)
		if taskErr == nil {
			if _, enqErr := h.taskClient.Enqueue(task); enqErr != nil {
				log.Printf("Failed to enqueue password reset email for %s: %v", user.Email, enqErr)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "If that email is registered, a reset token has been sent"})
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// ResetPassword handles POST /api/user/resetpassword.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.userService.ResetPassword(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrResetTokenInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Reset token is invalid or expired"})
			return
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account no longer exists"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

type updateProfileRequest struct {
	FullName string `json:"fullname"`
	Phone    string `json:"phone"`
}

// UpdateProfile handles PUT /api/user/update.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, req.FullName, req.Phone)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

// DeleteAccount handles DELETE /api/user/delete/:id. Users may delete their
// own account; admins may delete any.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	callerID, ok := authedUserID(c)
	if !ok {
		return
	}
	isAdmin := c.GetBool(middleware.ContextKeyIsAdmin)
	if callerID != targetID && !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot delete another user's account"})
		return
	}

	if err := h.userService.DeleteAccount(c.Request.Context(), targetID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

type subscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Subscribe handles POST /api/user/subscribe.
func (h *UserHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.enquiryService.Subscribe(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrAlreadySubscribed) {
			c.JSON(http.StatusConflict, gin.H{"error": "This email is already subscribed"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed successfully"})
}

type enquiryRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" binding:"required"`
}

// GetInTouch handles POST /api/user/getintouch.
func (h *UserHandler) GetInTouch(c *gin.Context) {
	var req enquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enquiry := &models.Enquiry{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	}
	if _, err := h.enquiryService.CreateEnquiry(c.Request.Context(), enquiry); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit enquiry"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Thanks for getting in touch, we will reply shortly"})
}

// TotalUsers handles GET /api/user/totalusers.
func (h *UserHandler) TotalUsers(c *gin.Context) {
	count, err := h.userService.CountUsers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_users": count})
}

// TotalBookings handles GET /api/user/totalbooking.
func (h *UserHandler) TotalBookings(c *gin.Context) {
	count, err := h.bookingService.CountBookings(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_bookings": count})
}

// AllUsers handles GET /api/user/all.
func (h *UserHandler) AllUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// AllUsersWithBookings handles GET /api/user/alluserwithbooking.
func (h *UserHandler) AllUsersWithBookings(c *gin.Context) {
	users, err := h.bookingService.UsersWithBookings(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users with bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// AllEnquiries handles GET /api/user/enquiries.
func (h *UserHandler) AllEnquiries(c *gin.Context) {
	enquiries, err := h.enquiryService.ListEnquiries(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list enquiries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enquiries": enquiries})
}

// authedUserID pulls the authenticated user's ObjectID out of the Gin
// context. Writes the error response itself when the context is missing or
// malformed.
func authedUserID(c *gin.Context) (primitive.ObjectID, bool) {
	raw, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return primitive.NilObjectID, false
	}
	hex, _ := raw.(string)
	userID, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication context"})
		return primitive.NilObjectID, false
	}
	return userID, true
}
