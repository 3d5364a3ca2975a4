package enrollment

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dojoworks/academy-server/cmd/models"
	"github.com/dojoworks/academy-server/cmd/utils"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler manages the class/student and class/teacher association rows.
// Attach goes straight to the insert and relies on the unique index for
// duplicate detection, so a race between two requests still ends in a single
// row and a conflict response.
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/classes/{id}/students", h.GetClassStudents).Methods("GET")
	router.HandleFunc("/classes/{id}/students", h.AttachStudent).Methods("POST")
	router.HandleFunc("/classes/{id}/students/{studentId}", h.UpdateStudentPivot).Methods("PATCH")
	router.HandleFunc("/classes/{id}/students/{studentId}", h.DetachStudent).Methods("DELETE")

	router.HandleFunc("/classes/{id}/teachers", h.GetClassTeachers).Methods("GET")
	router.HandleFunc("/classes/{id}/teachers", h.AttachTeacher).Methods("POST")
	router.HandleFunc("/classes/{id}/teachers/{teacherId}", h.UpdateTeacherPivot).Methods("PATCH")
	router.HandleFunc("/classes/{id}/teachers/{teacherId}", h.DetachTeacher).Methods("DELETE")

	// Teacher-rooted aliases for the same association
	router.HandleFunc("/teachers/{id}/classes", h.AttachTeacherClass).Methods("POST")
	router.HandleFunc("/teachers/{id}/classes/{classId}", h.UpdateTeacherClassPivot).Methods("PATCH")
}

func parseID(r *http.Request, key string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[key], 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) classExists(id uint) bool {
	var n int64
	h.db.Model(&models.ClassModel{}).Where("id = ?", id).Count(&n)
	return n > 0
}

func (h *Handler) GetClassStudents(w http.ResponseWriter, r *http.Request) {
	classID, ok := parseID(r, "id")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}

	if !h.classExists(classID) {
		utils.WriteError(w, http.StatusNotFound, "Class not found")
		return
	}

	var rows []models.ClassStudent
	if err := h.db.Where("class_id = ?", classID).Preload("Student").
		Find(&rows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving enrollments")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"enrollments": rows,
		"total":       len(rows),
	})
}

type attachStudentRequest struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Status    string `json:"status"`
	Note      string `json:"note"`
}

func (h *Handler) AttachStudent(w http.ResponseWriter, r *http.Request) {
	classID, ok := parseID(r, "id")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}

	var req attachStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	if !h.classExists(classID) {
		utils.WriteError(w, http.StatusNotFound, "Class not found")
		return
	}
	var student models.Student
	if err := h.db.First(&student, req.StudentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Student not found")
		return
	}

	row := models.ClassStudent{
		ClassID:   classID,
		StudentID: req.StudentID,
		Status:    req.Status,
		Note:      req.Note,
	}

	if err := h.db.Create(&row).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.WriteError(w, http.StatusConflict, "Student is already enrolled in this class")
			return
		}
		h.logger.Error("Enrollment insert failed", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Error enrolling student")
		return
	}

	h.db.Preload("Student").First(&row, row.ID)
	utils.WriteJSON(w, http.StatusCreated, row)
}

type updateStudentPivotRequest struct {
	Status *string `json:"status"`
	Note   *string `json:"note"`
}

func (h *Handler) UpdateStudentPivot(w http.ResponseWriter, r *http.Request) {
	classID, ok := parseID(r, "id")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}
	studentID, ok := parseID(r, "studentId")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}

	var req updateStudentPivotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var row models.ClassStudent
	if err := h.db.Where("class_id = ? AND student_id = ?", classID, studentID).
		First(&row).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Enrollment not found")
		return
	}

	if req.Status != nil {
		row.Status = *req.Status
	}
	if req.Note != nil {
		row.Note = *req.Note
	}

	if err := h.db.Save(&row).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating enrollment")
		return
	}

	utils.WriteJSON(w, http.StatusOK, row)
}

func (h *Handler) DetachStudent(w http.ResponseWriter, r *http.Request) {
	classID, ok := parseID(r, "id")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}
	studentID, ok := parseID(r, "studentId")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid student ID")
		return
	}

	result := h.db.Unscoped().Where("class_id = ? AND student_id = ?", classID, studentID).
		Delete(&models.ClassStudent{})
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error removing enrollment")
		return
	}

	// Absent association is a no-op, not an error
	if result.RowsAffected == 0 {
		utils.WriteSuccess(w, http.StatusOK, "No enrollment to remove", map[string]interface{}{
			"detached": 0,
		})
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Student removed from class", map[string]interface{}{
		"detached": result.RowsAffected,
	})
}

func (h *Handler) GetClassTeachers(w http.ResponseWriter, r *http.Request) {
	classID, ok := parseID(r, "id")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}

	if !h.classExists(classID) {
		utils.WriteError(w, http.StatusNotFound, "Class not found")
		return
	}

	var rows []models.ClassTeacher
	if err := h.db.Where("class_id = ?", classID).Preload("Teacher").
		Find(&rows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving assignments")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": rows,
		"total":       len(rows),
	})
}

type attachTeacherRequest struct {
	TeacherID uint   `json:"teacher_id" validate:"required"`
	Role      string `json:"role"`
	IsPrimary bool   `json:"is_primary"`
}

func (h *Handler) AttachTeacher(w http.ResponseWriter, r *http.Request) {
	classID, ok := parseID(r, "id")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}

	var req attachTeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	h.attachTeacherToClass(w, classID, req)
}

func (h *Handler) attachTeacherToClass(w http.ResponseWriter, classID uint, req attachTeacherRequest) {
	if !h.classExists(classID) {
		utils.WriteError(w, http.StatusNotFound, "Class not found")
		return
	}
	var teacher models.Teacher
	if err := h.db.First(&teacher, req.TeacherID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Teacher not found")
		return
	}

	row := models.ClassTeacher{
		ClassID:   classID,
		TeacherID: req.TeacherID,
		Role:      req.Role,
		IsPrimary: req.IsPrimary,
	}

	if err := h.db.Create(&row).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.WriteError(w, http.StatusConflict, "Teacher is already assigned to this class")
			return
		}
		h.logger.Error("Assignment insert failed", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Error assigning teacher")
		return
	}

	h.db.Preload("Teacher").First(&row, row.ID)
	utils.WriteJSON(w, http.StatusCreated, row)
}

type updateTeacherPivotRequest struct {
	Role      *string `json:"role"`
	IsPrimary *bool   `json:"is_primary"`
}

func (h *Handler) UpdateTeacherPivot(w http.ResponseWriter, r *http.Request) {
	classID, ok := parseID(r, "id")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}
	teacherID, ok := parseID(r, "teacherId")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid teacher ID")
		return
	}

	h.updateTeacherClassPivot(w, r, classID, teacherID)
}

func (h *Handler) updateTeacherClassPivot(w http.ResponseWriter, r *http.Request, classID, teacherID uint) {
	var req updateTeacherPivotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var row models.ClassTeacher
	if err := h.db.Where("class_id = ? AND teacher_id = ?", classID, teacherID).
		First(&row).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Assignment not found")
		return
	}

	if req.Role != nil {
		row.Role = *req.Role
	}
	if req.IsPrimary != nil {
		row.IsPrimary = *req.IsPrimary
	}

	if err := h.db.Save(&row).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating assignment")
		return
	}

	utils.WriteJSON(w, http.StatusOK, row)
}

func (h *Handler) DetachTeacher(w http.ResponseWriter, r *http.Request) {
	classID, ok := parseID(r, "id")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}
	teacherID, ok := parseID(r, "teacherId")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid teacher ID")
		return
	}

	result := h.db.Unscoped().Where("class_id = ? AND teacher_id = ?", classID, teacherID).
		Delete(&models.ClassTeacher{})
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error removing assignment")
		return
	}

	if result.RowsAffected == 0 {
		utils.WriteSuccess(w, http.StatusOK, "No assignment to remove", map[string]interface{}{
			"detached": 0,
		})
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Teacher removed from class", map[string]interface{}{
		"detached": result.RowsAffected,
	})
}

type attachTeacherClassRequest struct {
	ClassID   uint   `json:"class_id" validate:"required"`
	Role      string `json:"role"`
	IsPrimary bool   `json:"is_primary"`
}

// AttachTeacherClass is the teacher-rooted alias for AttachTeacher.
func (h *Handler) AttachTeacherClass(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := parseID(r, "id")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid teacher ID")
		return
	}

	var req attachTeacherClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	h.attachTeacherToClass(w, req.ClassID, attachTeacherRequest{
		TeacherID: teacherID,
		Role:      req.Role,
		IsPrimary: req.IsPrimary,
	})
}

func (h *Handler) UpdateTeacherClassPivot(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := parseID(r, "id")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid teacher ID")
		return
	}
	classID, ok := parseID(r, "classId")
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}

	h.updateTeacherClassPivot(w, r, classID, teacherID)
}
