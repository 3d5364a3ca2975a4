package offer

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dojoworks/academy-server/cmd/models"
	"github.com/dojoworks/academy-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/offers", h.CreateOffer).Methods("POST")
	router.HandleFunc("/offers", h.GetOffers).Methods("GET")
	router.HandleFunc("/offers/{id}", h.GetOffer).Methods("GET")
	router.HandleFunc("/offers/{id}", h.UpdateOffer).Methods("PATCH")
	router.HandleFunc("/offers/{id}", h.DeleteOffer).Methods("DELETE")
}

// validateDiscount enforces the exclusive-or rule on the two discount fields
// and their ranges. Returns a field error map, nil when valid.
func validateDiscount(amount, percent *float64) map[string]string {
	if (amount == nil) == (percent == nil) {
		msg := "exactly one of discount_amount and discount_percent must be set"
		return map[string]string{
			"discount_amount":  msg,
			"discount_percent": msg,
		}
	}
	if amount != nil && *amount < 0 {
		return map[string]string{"discount_amount": "must be at least 0"}
	}
	if percent != nil && (*percent < 1 || *percent > 100) {
		return map[string]string{"discount_percent": "must be between 1 and 100"}
	}
	return nil
}

func validateDates(starts, ends *time.Time) map[string]string {
	if starts != nil && ends != nil && ends.Before(*starts) {
		return map[string]string{"ends_at": "must not precede starts_at"}
	}
	return nil
}

type createOfferRequest struct {
	MembershipPlanID *uint      `json:"membership_plan_id"`
	Title            string     `json:"title" validate:"required"`
	Description      string     `json:"description"`
	DiscountAmount   *float64   `json:"discount_amount"`
	DiscountPercent  *float64   `json:"discount_percent"`
	StartsAt         *time.Time `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at"`
}

func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	if fields := validateDiscount(req.DiscountAmount, req.DiscountPercent); fields != nil {
		utils.WriteFieldErrors(w, "Invalid discount", fields)
		return
	}
	if fields := validateDates(req.StartsAt, req.EndsAt); fields != nil {
		utils.WriteFieldErrors(w, "Invalid date range", fields)
		return
	}

	if req.MembershipPlanID != nil {
		var plan models.MembershipPlan
		if err := h.db.First(&plan, *req.MembershipPlanID).Error; err != nil {
			utils.WriteError(w, http.StatusNotFound, "Membership plan not found")
			return
		}
	}

	offer := models.Offer{
		MembershipPlanID: req.MembershipPlanID,
		Title:            req.Title,
		Description:      req.Description,
		DiscountAmount:   req.DiscountAmount,
		DiscountPercent:  req.DiscountPercent,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
	}

	if err := h.db.Create(&offer).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating offer")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, offer)
}

type updateOfferRequest struct {
	MembershipPlanID *uint      `json:"membership_plan_id"`
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	DiscountAmount   *float64   `json:"discount_amount"`
	DiscountPercent  *float64   `json:"discount_percent"`
	StartsAt         *time.Time `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at"`
}

// UpdateOffer merges the supplied changes over the stored offer and re-checks
// the discount rule on the effective state before writing. A key present in
// the body counts as touched even when its value is null, so a field can be
// cleared as the other one is set.
func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid offer ID")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Error reading request body")
		return
	}

	var req updateOfferRequest
	if err := json.Unmarshal(body, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var touched map[string]json.RawMessage
	if err := json.Unmarshal(body, &touched); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var offer models.Offer
	if err := h.db.First(&offer, offerID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Offer not found")
		return
	}

	amount := offer.DiscountAmount
	percent := offer.DiscountPercent
	if _, ok := touched["discount_amount"]; ok {
		amount = req.DiscountAmount
	}
	if _, ok := touched["discount_percent"]; ok {
		percent = req.DiscountPercent
	}
	if fields := validateDiscount(amount, percent); fields != nil {
		utils.WriteFieldErrors(w, "Invalid discount", fields)
		return
	}

	starts := offer.StartsAt
	ends := offer.EndsAt
	if _, ok := touched["starts_at"]; ok {
		starts = req.StartsAt
	}
	if _, ok := touched["ends_at"]; ok {
		ends = req.EndsAt
	}
	if fields := validateDates(starts, ends); fields != nil {
		utils.WriteFieldErrors(w, "Invalid date range", fields)
		return
	}

	if req.MembershipPlanID != nil {
		var plan models.MembershipPlan
		if err := h.db.First(&plan, *req.MembershipPlanID).Error; err != nil {
			utils.WriteError(w, http.StatusNotFound, "Membership plan not found")
			return
		}
		offer.MembershipPlanID = req.MembershipPlanID
	}
	if req.Title != nil {
		offer.Title = *req.Title
	}
	if req.Description != nil {
		offer.Description = *req.Description
	}
	offer.DiscountAmount = amount
	offer.DiscountPercent = percent
	offer.StartsAt = starts
	offer.EndsAt = ends

	// Save skips nil fields, so write the nullable columns explicitly
	if err := h.db.Model(&offer).Select(
		"membership_plan_id", "title", "description",
		"discount_amount", "discount_percent", "starts_at", "ends_at",
	).Updates(map[string]interface{}{
		"membership_plan_id": offer.MembershipPlanID,
		"title":              offer.Title,
		"description":        offer.Description,
		"discount_amount":    offer.DiscountAmount,
		"discount_percent":   offer.DiscountPercent,
		"starts_at":          offer.StartsAt,
		"ends_at":            offer.EndsAt,
	}).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating offer")
		return
	}

	h.db.First(&offer, offer.ID)
	utils.WriteJSON(w, http.StatusOK, offer)
}

func (h *Handler) GetOffers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 50

	query := h.db.Model(&models.Offer{}).Preload("Plan")

	if planID := r.URL.Query().Get("plan_id"); planID != "" {
		query = query.Where("membership_plan_id = ?", planID)
	}
	if r.URL.Query().Get("active") == "true" {
		now := time.Now()
		query = query.
			Where("starts_at IS NULL OR starts_at <= ?", now).
			Where("ends_at IS NULL OR ends_at >= ?", now)
	}

	var total int64
	query.Count(&total)

	var offers []models.Offer
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("created_at DESC").Find(&offers).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving offers")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"offers":      offers,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid offer ID")
		return
	}

	var offer models.Offer
	if err := h.db.Preload("Plan").First(&offer, offerID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Offer not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, offer)
}

func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid offer ID")
		return
	}

	result := h.db.Delete(&models.Offer{}, offerID)
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting offer")
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, http.StatusNotFound, "Offer not found")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Offer deleted successfully", nil)
}
