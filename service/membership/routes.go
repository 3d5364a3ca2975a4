package membership

import (
	"encoding/json"
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
	router.HandleFunc("/membership-plans", h.CreatePlan).Methods("POST")
	router.HandleFunc("/membership-plans", h.GetPlans).Methods("GET")
	router.HandleFunc("/membership-plans/{id}", h.GetPlan).Methods("GET")
	router.HandleFunc("/membership-plans/{id}", h.UpdatePlan).Methods("PATCH")
	router.HandleFunc("/membership-plans/{id}", h.DeletePlan).Methods("DELETE")

	router.HandleFunc("/memberships", h.CreateMembership).Methods("POST")
	router.HandleFunc("/memberships", h.GetMemberships).Methods("GET")
	router.HandleFunc("/memberships/{id}", h.GetMembership).Methods("GET")
	router.HandleFunc("/memberships/{id}/cancel", h.CancelMembership).Methods("PATCH")
}

type planRequest struct {
	Name         string  `json:"name" validate:"required"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" validate:"min=0"`
	DurationDays int     `json:"duration_days" validate:"required,min=1"`
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	plan := models.MembershipPlan{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Active:       true,
	}

	if err := h.db.Create(&plan).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating plan")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, plan)
}

func (h *Handler) GetPlans(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.MembershipPlan{})

	if active := r.URL.Query().Get("active"); active != "" {
		query = query.Where("active = ?", active == "true")
	}

	var plans []models.MembershipPlan
	if err := query.Order("price ASC").Find(&plans).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving plans")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans,
		"total": len(plans),
	})
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid plan ID")
		return
	}

	var plan models.MembershipPlan
	if err := h.db.First(&plan, planID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Plan not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, plan)
}

type updatePlanRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	DurationDays *int     `json:"duration_days"`
	Active       *bool    `json:"active"`
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid plan ID")
		return
	}

	var req updatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var plan models.MembershipPlan
	if err := h.db.First(&plan, planID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Plan not found")
		return
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			utils.WriteFieldErrors(w, "Invalid price", map[string]string{
				"price": "must be at least 0",
			})
			return
		}
		plan.Price = *req.Price
	}
	if req.DurationDays != nil {
		if *req.DurationDays < 1 {
			utils.WriteFieldErrors(w, "Invalid duration", map[string]string{
				"duration_days": "must be at least 1",
			})
			return
		}
		plan.DurationDays = *req.DurationDays
	}
	if req.Active != nil {
		plan.Active = *req.Active
	}

	if err := h.db.Save(&plan).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating plan")
		return
	}

	utils.WriteJSON(w, http.StatusOK, plan)
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid plan ID")
		return
	}

	var referenced int64
	if err := h.db.Model(&models.Membership{}).
		Where("plan_id = ?", planID).Count(&referenced).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error checking memberships")
		return
	}
	if referenced > 0 {
		utils.WriteError(w, http.StatusConflict, "Plan has memberships and cannot be deleted")
		return
	}

	result := h.db.Delete(&models.MembershipPlan{}, planID)
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting plan")
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, http.StatusNotFound, "Plan not found")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Plan deleted successfully", nil)
}

type createMembershipRequest struct {
	StudentID uint       `json:"student_id" validate:"required"`
	PlanID    uint       `json:"plan_id" validate:"required"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
}

// CreateMembership starts a membership. The end date defaults to the start
// plus the plan duration when not supplied.
func (h *Handler) CreateMembership(w http.ResponseWriter, r *http.Request) {
	var req createMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	var student models.Student
	if err := h.db.First(&student, req.StudentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Student not found")
		return
	}
	var plan models.MembershipPlan
	if err := h.db.First(&plan, req.PlanID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Plan not found")
		return
	}

	startsAt := time.Now()
	if req.StartsAt != nil {
		startsAt = *req.StartsAt
	}
	endsAt := startsAt.AddDate(0, 0, plan.DurationDays)
	if req.EndsAt != nil {
		endsAt = *req.EndsAt
	}
	if endsAt.Before(startsAt) {
		utils.WriteFieldErrors(w, "Invalid date range", map[string]string{
			"ends_at": "must not precede starts_at",
		})
		return
	}

	membership := models.Membership{
		StudentID: req.StudentID,
		PlanID:    req.PlanID,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Status:    models.MembershipActive,
	}

	if err := h.db.Create(&membership).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating membership")
		return
	}

	h.db.Preload("Plan").First(&membership, membership.ID)
	utils.WriteJSON(w, http.StatusCreated, membership)
}

func (h *Handler) GetMemberships(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 50

	query := h.db.Model(&models.Membership{}).Preload("Student").Preload("Plan")

	if studentID := r.URL.Query().Get("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var memberships []models.Membership
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("starts_at DESC").Find(&memberships).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving memberships")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"memberships": memberships,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) GetMembership(w http.ResponseWriter, r *http.Request) {
	membershipID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid membership ID")
		return
	}

	var membership models.Membership
	if err := h.db.Preload("Student").Preload("Plan").
		First(&membership, membershipID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Membership not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, membership)
}

func (h *Handler) CancelMembership(w http.ResponseWriter, r *http.Request) {
	membershipID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid membership ID")
		return
	}

	var membership models.Membership
	if err := h.db.First(&membership, membershipID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Membership not found")
		return
	}

	membership.Status = models.MembershipCancelled
	if err := h.db.Save(&membership).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error cancelling membership")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Membership cancelled", membership)
}
