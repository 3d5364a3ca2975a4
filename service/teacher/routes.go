package teacher

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
	router.HandleFunc("/teachers", h.CreateTeacher).Methods("POST")
	router.HandleFunc("/teachers", h.GetTeachers).Methods("GET")
	router.HandleFunc("/teachers/{id}", h.GetTeacher).Methods("GET")
	router.HandleFunc("/teachers/{id}", h.UpdateTeacher).Methods("PATCH")
	router.HandleFunc("/teachers/{id}", h.DeleteTeacher).Methods("DELETE")
	router.HandleFunc("/teachers/{id}/classes", h.GetTeacherClasses).Methods("GET")
}

type createTeacherRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"`
	Bio       string `json:"bio"`
}

func (h *Handler) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req createTeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	teacher := models.Teacher{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Specialty: req.Specialty,
		Bio:       req.Bio,
		Active:    true,
	}

	if err := h.db.Create(&teacher).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.WriteError(w, http.StatusConflict, "Email is already in use")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error creating teacher")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, teacher)
}

func (h *Handler) GetTeachers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 50

	query := h.db.Model(&models.Teacher{})

	if search := r.URL.Query().Get("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR specialty LIKE ?", like, like, like)
	}
	if active := r.URL.Query().Get("active"); active != "" {
		query = query.Where("active = ?", active == "true")
	}

	var total int64
	query.Count(&total)

	var teachers []models.Teacher
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("last_name ASC, first_name ASC").Find(&teachers).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving teachers")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"teachers":    teachers,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	teacherID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid teacher ID")
		return
	}

	var teacher models.Teacher
	if err := h.db.First(&teacher, teacherID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Teacher not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, teacher)
}

type updateTeacherRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Specialty *string `json:"specialty"`
	Bio       *string `json:"bio"`
	Active    *bool   `json:"active"`
}

func (h *Handler) UpdateTeacher(w http.ResponseWriter, r *http.Request) {
	teacherID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid teacher ID")
		return
	}

	var req updateTeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var teacher models.Teacher
	if err := h.db.First(&teacher, teacherID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Teacher not found")
		return
	}

	if req.FirstName != nil {
		teacher.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		teacher.LastName = *req.LastName
	}
	if req.Email != nil {
		teacher.Email = *req.Email
	}
	if req.Phone != nil {
		teacher.Phone = *req.Phone
	}
	if req.Specialty != nil {
		teacher.Specialty = *req.Specialty
	}
	if req.Bio != nil {
		teacher.Bio = *req.Bio
	}
	if req.Active != nil {
		teacher.Active = *req.Active
	}

	if err := h.db.Save(&teacher).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.WriteError(w, http.StatusConflict, "Email is already in use")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error updating teacher")
		return
	}

	utils.WriteJSON(w, http.StatusOK, teacher)
}

func (h *Handler) DeleteTeacher(w http.ResponseWriter, r *http.Request) {
	teacherID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid teacher ID")
		return
	}

	var teacher models.Teacher
	if err := h.db.First(&teacher, teacherID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Teacher not found")
		return
	}

	tx := h.db.Begin()

	if err := tx.Unscoped().Where("teacher_id = ?", teacherID).Delete(&models.ClassTeacher{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error removing assignments")
		return
	}
	if err := tx.Delete(&teacher).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting teacher")
		return
	}

	tx.Commit()

	utils.WriteSuccess(w, http.StatusOK, "Teacher deleted successfully", nil)
}

func (h *Handler) GetTeacherClasses(w http.ResponseWriter, r *http.Request) {
	teacherID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid teacher ID")
		return
	}

	var teacher models.Teacher
	if err := h.db.First(&teacher, teacherID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Teacher not found")
		return
	}

	var rows []models.ClassTeacher
	if err := h.db.Where("teacher_id = ?", teacherID).Preload("Class").
		Find(&rows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving classes")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": rows,
		"total":       len(rows),
	})
}
