package class

import (
	"encoding/json"
	"net/http"
	"strconv"

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
	router.HandleFunc("/classes", h.CreateClass).Methods("POST")
	router.HandleFunc("/classes", h.GetClasses).Methods("GET")
	router.HandleFunc("/classes/{id}", h.GetClass).Methods("GET")
	router.HandleFunc("/classes/{id}", h.UpdateClass).Methods("PATCH")
	router.HandleFunc("/classes/{id}", h.DeleteClass).Methods("DELETE")
}

type classRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Discipline  string `json:"discipline"`
	Weekday     string `json:"weekday"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	Room        string `json:"room"`
}

func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	class := models.ClassModel{
		Name:        req.Name,
		Description: req.Description,
		Discipline:  req.Discipline,
		Weekday:     req.Weekday,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Room:        req.Room,
	}

	if err := h.db.Create(&class).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating class")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, class)
}

func (h *Handler) GetClasses(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 50

	query := h.db.Model(&models.ClassModel{})

	if discipline := r.URL.Query().Get("discipline"); discipline != "" {
		query = query.Where("discipline = ?", discipline)
	}
	if weekday := r.URL.Query().Get("weekday"); weekday != "" {
		query = query.Where("weekday = ?", weekday)
	}

	var total int64
	query.Count(&total)

	var classes []models.ClassModel
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("name ASC").Find(&classes).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving classes")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"classes":     classes,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) GetClass(w http.ResponseWriter, r *http.Request) {
	classID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}

	var class models.ClassModel
	if err := h.db.First(&class, classID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Class not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, class)
}

type updateClassRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Discipline  *string `json:"discipline"`
	Weekday     *string `json:"weekday"`
	StartsAt    *string `json:"starts_at"`
	EndsAt      *string `json:"ends_at"`
	Room        *string `json:"room"`
}

func (h *Handler) UpdateClass(w http.ResponseWriter, r *http.Request) {
	classID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}

	var req updateClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var class models.ClassModel
	if err := h.db.First(&class, classID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Class not found")
		return
	}

	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Description != nil {
		class.Description = *req.Description
	}
	if req.Discipline != nil {
		class.Discipline = *req.Discipline
	}
	if req.Weekday != nil {
		class.Weekday = *req.Weekday
	}
	if req.StartsAt != nil {
		class.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		class.EndsAt = *req.EndsAt
	}
	if req.Room != nil {
		class.Room = *req.Room
	}

	if err := h.db.Save(&class).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating class")
		return
	}

	utils.WriteJSON(w, http.StatusOK, class)
}

// DeleteClass removes a class and its association rows in one transaction.
func (h *Handler) DeleteClass(w http.ResponseWriter, r *http.Request) {
	classID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}

	var class models.ClassModel
	if err := h.db.First(&class, classID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Class not found")
		return
	}

	tx := h.db.Begin()

	if err := tx.Unscoped().Where("class_id = ?", classID).Delete(&models.ClassStudent{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error removing enrollments")
		return
	}
	if err := tx.Unscoped().Where("class_id = ?", classID).Delete(&models.ClassTeacher{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error removing assignments")
		return
	}
	if err := tx.Delete(&class).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting class")
		return
	}

	tx.Commit()

	utils.WriteSuccess(w, http.StatusOK, "Class deleted successfully", nil)
}
