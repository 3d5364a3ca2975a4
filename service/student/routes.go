package student

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
	router.HandleFunc("/students", h.CreateStudent).Methods("POST")
	router.HandleFunc("/students", h.GetStudents).Methods("GET")
	router.HandleFunc("/students/{id}", h.GetStudent).Methods("GET")
	router.HandleFunc("/students/{id}", h.UpdateStudent).Methods("PATCH")
	router.HandleFunc("/students/{id}", h.DeleteStudent).Methods("DELETE")
	router.HandleFunc("/students/{id}/classes", h.GetStudentClasses).Methods("GET")
}

type createStudentRequest struct {
	FirstName   string     `json:"first_name" validate:"required"`
	LastName    string     `json:"last_name" validate:"required"`
	Email       string     `json:"email" validate:"required,email"`
	Phone       string     `json:"phone"`
	BeltRank    string     `json:"belt_rank"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	student := models.Student{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		BeltRank:    req.BeltRank,
		DateOfBirth: req.DateOfBirth,
		JoinedAt:    time.Now(),
		Active:      true,
	}

	if err := h.db.Create(&student).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.WriteError(w, http.StatusConflict, "Email is already in use")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error creating student")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, student)
}

func (h *Handler) GetStudents(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 50

	query := h.db.Model(&models.Student{})

	if search := r.URL.Query().Get("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ?", like, like, like)
	}
	if belt := r.URL.Query().Get("belt_rank"); belt != "" {
		query = query.Where("belt_rank = ?", belt)
	}
	if active := r.URL.Query().Get("active"); active != "" {
		query = query.Where("active = ?", active == "true")
	}

	var total int64
	query.Count(&total)

	var students []models.Student
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("last_name ASC, first_name ASC").Find(&students).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving students")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"students":    students,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}

	var student models.Student
	if err := h.db.First(&student, studentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Student not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, student)
}

type updateStudentRequest struct {
	FirstName   *string    `json:"first_name"`
	LastName    *string    `json:"last_name"`
	Email       *string    `json:"email"`
	Phone       *string    `json:"phone"`
	BeltRank    *string    `json:"belt_rank"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Active      *bool      `json:"active"`
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}

	var req updateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var student models.Student
	if err := h.db.First(&student, studentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Student not found")
		return
	}

	if req.FirstName != nil {
		student.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		student.LastName = *req.LastName
	}
	if req.Email != nil {
		student.Email = *req.Email
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.BeltRank != nil {
		student.BeltRank = *req.BeltRank
	}
	if req.DateOfBirth != nil {
		student.DateOfBirth = req.DateOfBirth
	}
	if req.Active != nil {
		student.Active = *req.Active
	}

	if err := h.db.Save(&student).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.WriteError(w, http.StatusConflict, "Email is already in use")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error updating student")
		return
	}

	utils.WriteJSON(w, http.StatusOK, student)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}

	var student models.Student
	if err := h.db.First(&student, studentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Student not found")
		return
	}

	tx := h.db.Begin()

	// Enrollment and attendance rows go with the student
	if err := tx.Unscoped().Where("student_id = ?", studentID).Delete(&models.ClassStudent{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error removing enrollments")
		return
	}
	if err := tx.Unscoped().Where("student_id = ?", studentID).Delete(&models.Attendance{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error removing attendance")
		return
	}
	if err := tx.Delete(&student).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting student")
		return
	}

	tx.Commit()

	utils.WriteSuccess(w, http.StatusOK, "Student deleted successfully", nil)
}

func (h *Handler) GetStudentClasses(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}

	var student models.Student
	if err := h.db.First(&student, studentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Student not found")
		return
	}

	var rows []models.ClassStudent
	if err := h.db.Where("student_id = ?", studentID).Preload("Class").
		Find(&rows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving classes")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"enrollments": rows,
		"total":       len(rows),
	})
}
