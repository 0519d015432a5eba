package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"homzy/server/internal/api/middleware"
	"homzy/server/internal/config"
	"homzy/server/internal/listing"
	"homzy/server/internal/models"
	"homzy/server/internal/services"
	"homzy/server/internal/storage"
	"homzy/server/internal/tasks"
	"homzy/server/internal/utils"
)

// PropertyHandler handles listing requests for both rentals and sales.
type PropertyHandler struct {
	propertyService services.IPropertyService
	imageStorage    storage.IImageStorage
	cfg             *config.Config
	taskClient      IAsynqClient
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(
	propertyService services.IPropertyService,
	imageStorage storage.IImageStorage,
	cfg *config.Config,
	taskClient IAsynqClient,
) *PropertyHandler {
	return &PropertyHandler{
		propertyService: propertyService,
		imageStorage:    imageStorage,
		cfg:             cfg,
		taskClient:      taskClient,
	}
}

func parseFilters(c *gin.Context) services.PropertyFilters {
	minPrice, _ := strconv.ParseFloat(c.Query("minPrice"), 64)
	maxPrice, _ := strconv.ParseFloat(c.Query("maxPrice"), 64)
	return services.PropertyFilters{
		PropertyType:     c.Query("propertyType"),
		BhkType:          c.Query("bhkType"),
		FurnishingStatus: c.Query("furnishingStatus"),
		City:             c.Query("city"),
		MinPrice:         minPrice,
		MaxPrice:         maxPrice,
		OpenOnly:         c.Query("open") == "true",
	}
}

// respondWithProperties writes the property list, paginated when a page
// query parameter is present.
func (h *PropertyHandler) respondWithProperties(c *gin.Context, props []models.Property) {
	pageParam := c.Query("page")
	if pageParam == "" {
		c.JSON(http.StatusOK, gin.H{"properties": props})
		return
	}

	pageNumber, err := strconv.Atoi(pageParam)
	if err != nil || pageNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page number"})
		return
	}
	pageSize := h.cfg.PageSize
	if sizeParam := c.Query("pageSize"); sizeParam != "" {
		if parsed, err := strconv.Atoi(sizeParam); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}

	page := listing.Paginate(props, pageSize, pageNumber)
	c.JSON(http.StatusOK, gin.H{
		"properties":  page.Items,
		"page":        page.Page,
		"total_pages": page.TotalPages,
		"total_items": page.TotalItems,
	})
}

func (h *PropertyHandler) listByKind(c *gin.Context, kind listing.Kind) {
	props, err := h.propertyService.SearchProperties(c.Request.Context(), kind, parseFilters(c))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch properties"})
		return
	}
	h.respondWithProperties(c, props)
}

// ListRent handles GET /api/rent/all.
func (h *PropertyHandler) ListRent(c *gin.Context) {
	h.listByKind(c, listing.KindRent)
}

// ListSale handles GET /api/sale/all.
func (h *PropertyHandler) ListSale(c *gin.Context) {
	h.listByKind(c, listing.KindSale)
}

// addProperty creates a listing from either a JSON body or a multipart form
// whose "data" field holds the same JSON and whose "images" files are
// uploaded to S3 and queued for normalization.
func (h *PropertyHandler) addProperty(c *gin.Context, kind listing.Kind) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var prop models.Property
	isMultipart := c.ContentType() == "multipart/form-data"
	if isMultipart {
		data := c.PostForm("data")
		if data == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing data field in multipart form"})
			return
		}
		if err := json.Unmarshal([]byte(data), &prop); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property payload: " + err.Error()})
			return
		}
	} else {
		if err := c.ShouldBindJSON(&prop); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if prop.Basic.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Property title is required"})
		return
	}
	// The route decides the kind; a payload that names a different one is a
	// client bug, not something to silently override.
	if prop.Kind != "" {
		parsed, err := listing.ParseKind(prop.Kind)
		if err != nil || parsed != kind {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Listing kind does not match this endpoint"})
			return
		}
	}

	created, err := h.propertyService.CreateProperty(c.Request.Context(), userID, kind, &prop)
	if err != nil {
		if errors.Is(err, listing.ErrUnknownKind) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown listing kind"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create property"})
		return
	}

	if isMultipart {
		h.uploadImages(c, created)
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Property listed successfully", "property": created})
}

// uploadImages stores each attached file and queues it for processing.
// Upload failures are logged rather than failing the whole request; the
// listing itself is already created.
func (h *PropertyHandler) uploadImages(c *gin.Context, prop *models.Property) {
	form, err := c.MultipartForm()
	if err != nil {
		log.Printf("Could not read multipart form for property %s: %v", prop.ID.Hex(), err)
		return
	}

	for _, fileHeader := range form.File["images"] {
		file, err := fileHeader.Open()
		if err != nil {
			log.Printf("Could not open uploaded file %s: %v", fileHeader.Filename, err)
			continue
		}
		contentType := fileHeader.Header.Get("Content-Type")
		key, err := h.imageStorage.Upload(c.Request.Context(), prop.ID.Hex(), fileHeader.Filename, contentType, file)
		file.Close()
		if err != nil {
			log.Printf("Failed to upload image %s for property %s: %v", fileHeader.Filename, prop.ID.Hex(), err)
			continue
		}

		task, err := tasks.NewImageProcessTask(key, prop.ID.Hex())
		if err != nil {
			log.Printf("Failed to build image task for key %s: %v", key, err)
			continue
		}
		if _, err := h.taskClient.Enqueue(task); err != nil {
			log.Printf("Failed to enqueue image task for key %s: %v", key, err)
		}
	}
}

// AddRent handles POST /api/rent/add.
func (h *PropertyHandler) AddRent(c *gin.Context) {
	h.addProperty(c, listing.KindRent)
}

// AddSale handles POST /api/sale/add.
func (h *PropertyHandler) AddSale(c *gin.Context) {
	h.addProperty(c, listing.KindSale)
}

func (h *PropertyHandler) listOwnByKind(c *gin.Context, kind listing.Kind) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	props, err := h.propertyService.FindPropertiesByUser(c.Request.Context(), userID, kind)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch your properties"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": props})
}

// GetUserRent handles GET /api/rent/getuserrent.
func (h *PropertyHandler) GetUserRent(c *gin.Context) {
	h.listOwnByKind(c, listing.KindRent)
}

// GetUserSale handles GET /api/sale/getusersale.
func (h *PropertyHandler) GetUserSale(c *gin.Context) {
	h.listOwnByKind(c, listing.KindSale)
}

func (h *PropertyHandler) deleteProperty(c *gin.Context) {
	propertyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	isAdmin := c.GetBool(middleware.ContextKeyIsAdmin)

	if err := h.propertyService.DeleteProperty(c.Request.Context(), propertyID, userID, isAdmin); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete property"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Property deleted"})
}

// DeleteRent handles DELETE /api/rent/delete/:id.
func (h *PropertyHandler) DeleteRent(c *gin.Context) {
	h.deleteProperty(c)
}

// DeleteSale handles DELETE /api/sale/delete/:id.
func (h *PropertyHandler) DeleteSale(c *gin.Context) {
	h.deleteProperty(c)
}

// ownedProperty loads a property and verifies the caller may manage it.
// Writes the error response itself on failure.
func (h *PropertyHandler) ownedProperty(c *gin.Context, ref utils.FlexID) (*models.Property, bool) {
	userID, ok := authedUserID(c)
	if !ok {
		return nil, false
	}

	propertyOID, err := ref.ObjectID()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return nil, false
	}

	prop, err := h.propertyService.FindPropertyByID(c.Request.Context(), propertyOID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return nil, false
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up property"})
		return nil, false
	}

	if prop.UserID != userID && !c.GetBool(middleware.ContextKeyIsAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "This property does not belong to you"})
		return nil, false
	}
	return prop, true
}

type uploadURLRequest struct {
	PropertyID  utils.FlexID `json:"propertyId" binding:"required"`
	Filename    string       `json:"filename" binding:"required"`
	ContentType string       `json:"contentType" binding:"required"`
}

// GetUploadURL handles POST /api/user/uploadurl: a direct-to-S3 upload URL
// for a listing the caller owns. The client PUTs the image there and then
// confirms via ConfirmUpload.
func (h *PropertyHandler) GetUploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prop, ok := h.ownedProperty(c, req.PropertyID)
	if !ok {
		return
	}

	url, key, err := h.imageStorage.GeneratePresignedPutURL(c.Request.Context(), prop.ID.Hex(), req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"upload_url": url, "key": key})
}

type confirmUploadRequest struct {
	PropertyID utils.FlexID `json:"propertyId" binding:"required"`
	Key        string       `json:"key" binding:"required"`
}

// ConfirmUpload handles POST /api/user/confirmupload: queues normalization
// of an image uploaded through a presigned URL. The key must sit under the
// property's own prefix so one listing cannot claim another's objects.
func (h *PropertyHandler) ConfirmUpload(c *gin.Context) {
	var req confirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prop, ok := h.ownedProperty(c, req.PropertyID)
	if !ok {
		return
	}
	if !strings.HasPrefix(req.Key, "properties/"+prop.ID.Hex()+"/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Key does not belong to this property"})
		return
	}

	task, err := tasks.NewImageProcessTask(req.Key, prop.ID.Hex())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue image"})
		return
	}
	if _, err := h.taskClient.Enqueue(task); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue image"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Image queued for processing"})
}

// RentAndSale handles GET /api/user/rentandsale, the interleaved feed.
func (h *PropertyHandler) RentAndSale(c *gin.Context) {
	props, err := h.propertyService.CombinedFeed(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch properties"})
		return
	}
	h.respondWithProperties(c, props)
}

// Cities handles GET /api/user/cities.
func (h *PropertyHandler) Cities(c *gin.Context) {
	cities, err := h.propertyService.Cities(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cities"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}
