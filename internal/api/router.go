package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"homzy/server/internal/api/handlers"
	"homzy/server/internal/api/middleware"
	"homzy/server/internal/config"
	"homzy/server/internal/services"
	"homzy/server/internal/storage"
)

// SetupRouter configures and returns the main Gin engine. The route layout
// mirrors the SPA's expectations: /api/user, /api/rent, /api/sale and
// /api/admin groups.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient handlers.IAsynqClient) *gin.Engine {
	propertyService := services.NewPropertyService(db, cfg, rdb)
	bookingService := services.NewBookingService(db, cfg, rdb)
	userService := services.NewUserService(db, cfg, rdb)
	enquiryService := services.NewEnquiryService(db, cfg)

	imageStorage, err := storage.NewImageStorage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigin))
	r.Use(rateLimiter.Limit())

	userHandler := handlers.NewUserHandler(userService, bookingService, enquiryService, cfg, taskClient)
	propertyHandler := handlers.NewPropertyHandler(propertyService, imageStorage, cfg, taskClient)
	bookingHandler := handlers.NewBookingHandler(bookingService, propertyService, cfg, taskClient)

	authRequired := middleware.AuthMiddleware(cfg.JwtSecret)
	adminRequired := middleware.AdminMiddleware()

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	user := r.Group("/api/user")
	{
		user.POST("/register", userHandler.Register)
		user.POST("/login", userHandler.Login)
		user.POST("/forgotpassword", userHandler.ForgotPassword)
		user.POST("/resetpassword", userHandler.ResetPassword)
		user.POST("/subscribe", userHandler.Subscribe)
		user.POST("/getintouch", userHandler.GetInTouch)
		user.GET("/cities", propertyHandler.Cities)
		user.GET("/rentandsale", propertyHandler.RentAndSale)

		user.PUT("/update", authRequired, userHandler.UpdateProfile)
		user.DELETE("/delete/:id", authRequired, userHandler.DeleteAccount)
		user.POST("/bookvisit", authRequired, bookingHandler.BookVisit)
		user.GET("/booking", authRequired, bookingHandler.MyBookings)
		user.POST("/uploadurl", authRequired, propertyHandler.GetUploadURL)
		user.POST("/confirmupload", authRequired, propertyHandler.ConfirmUpload)

		user.GET("/totalusers", authRequired, adminRequired, userHandler.TotalUsers)
		user.GET("/totalbooking", authRequired, adminRequired, userHandler.TotalBookings)
		user.GET("/all", authRequired, adminRequired, userHandler.AllUsers)
		user.GET("/alluserwithbooking", authRequired, adminRequired, userHandler.AllUsersWithBookings)
		user.GET("/enquiries", authRequired, adminRequired, userHandler.AllEnquiries)
		user.DELETE("/declinebooking/:userId/:propertyId", authRequired, adminRequired, bookingHandler.DeclineBooking)
	}

	admin := r.Group("/api/admin")
	{
		admin.POST("/login", userHandler.AdminLogin)
	}

	rent := r.Group("/api/rent")
	{
		rent.GET("/all", propertyHandler.ListRent)
		rent.POST("/add", authRequired, propertyHandler.AddRent)
		rent.GET("/getuserrent", authRequired, propertyHandler.GetUserRent)
		rent.DELETE("/delete/:id", authRequired, propertyHandler.DeleteRent)
		rent.PUT("/approverent/:id", authRequired, adminRequired, bookingHandler.ApproveRent)
	}

	sale := r.Group("/api/sale")
	{
		sale.GET("/all", propertyHandler.ListSale)
		sale.POST("/add", authRequired, propertyHandler.AddSale)
		sale.GET("/getusersale", authRequired, propertyHandler.GetUserSale)
		sale.DELETE("/delete/:id", authRequired, propertyHandler.DeleteSale)
		sale.PUT("/approvesale/:id", authRequired, adminRequired, bookingHandler.ApproveSale)
	}

	return r
}
