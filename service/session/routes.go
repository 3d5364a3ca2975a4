package session

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dojoworks/academy-server/cmd/models"
	"github.com/dojoworks/academy-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/classes/{id}/sessions", h.CreateSession).Methods("POST")
	router.HandleFunc("/classes/{id}/sessions", h.GetClassSessions).Methods("GET")
	router.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	router.HandleFunc("/sessions/{id}", h.UpdateSession).Methods("PATCH")
	router.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")

	router.HandleFunc("/sessions/{id}/attendance", h.RecordAttendance).Methods("PUT")
	router.HandleFunc("/sessions/{id}/attendance", h.GetAttendance).Methods("GET")

	router.HandleFunc("/sessions/{id}/exercises", h.AttachExercise).Methods("POST")
	router.HandleFunc("/sessions/{id}/exercises", h.GetSessionExercises).Methods("GET")
	router.HandleFunc("/sessions/{id}/exercises/{exerciseId}", h.UpdateSessionExercise).Methods("PATCH")
	router.HandleFunc("/sessions/{id}/exercises/{exerciseId}", h.DetachExercise).Methods("DELETE")
}

type createSessionRequest struct {
	Date  time.Time `json:"date" validate:"required"`
	Topic string    `json:"topic"`
	Notes string    `json:"notes"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	classID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	var class models.ClassModel
	if err := h.db.First(&class, classID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Class not found")
		return
	}

	session := models.Session{
		ClassID: uint(classID),
		Date:    req.Date,
		Topic:   req.Topic,
		Notes:   req.Notes,
	}

	if err := h.db.Create(&session).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating session")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, session)
}

func (h *Handler) GetClassSessions(w http.ResponseWriter, r *http.Request) {
	classID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 50

	query := h.db.Model(&models.Session{}).Where("class_id = ?", classID)

	if from := r.URL.Query().Get("from"); from != "" {
		query = query.Where("date >= ?", from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		query = query.Where("date <= ?", to)
	}

	var total int64
	query.Count(&total)

	var sessions []models.Session
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("date DESC").Find(&sessions).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving sessions")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":    sessions,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var session models.Session
	if err := h.db.Preload("Class").First(&session, sessionID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, session)
}

type updateSessionRequest struct {
	Date  *time.Time `json:"date"`
	Topic *string    `json:"topic"`
	Notes *string    `json:"notes"`
}

func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var session models.Session
	if err := h.db.First(&session, sessionID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	if req.Date != nil {
		session.Date = *req.Date
	}
	if req.Topic != nil {
		session.Topic = *req.Topic
	}
	if req.Notes != nil {
		session.Notes = *req.Notes
	}

	if err := h.db.Save(&session).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating session")
		return
	}

	utils.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var session models.Session
	if err := h.db.First(&session, sessionID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	tx := h.db.Begin()

	if err := tx.Unscoped().Where("session_id = ?", sessionID).Delete(&models.Attendance{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error removing attendance")
		return
	}
	if err := tx.Unscoped().Where("session_id = ?", sessionID).Delete(&models.SessionExercise{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error removing exercises")
		return
	}
	if err := tx.Delete(&session).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting session")
		return
	}

	tx.Commit()

	utils.WriteSuccess(w, http.StatusOK, "Session deleted successfully", nil)
}

type attendanceEntry struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required"`
}

type recordAttendanceRequest struct {
	Entries []attendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// RecordAttendance upserts the attendance sheet for a session. One row per
// student is kept by the unique index; repeated submissions overwrite status.
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req recordAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	for _, entry := range req.Entries {
		if !models.ValidAttendanceStatus(entry.Status) {
			utils.WriteFieldErrors(w, "Invalid status", map[string]string{
				"status": "must be one of present, absent, late, excused",
			})
			return
		}
	}

	var session models.Session
	if err := h.db.First(&session, sessionID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	tx := h.db.Begin()

	for _, entry := range req.Entries {
		row := models.Attendance{
			SessionID: uint(sessionID),
			StudentID: entry.StudentID,
			Status:    entry.Status,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).Create(&row).Error; err != nil {
			tx.Rollback()
			utils.WriteError(w, http.StatusInternalServerError, "Error recording attendance")
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error completing attendance")
		return
	}

	var rows []models.Attendance
	h.db.Where("session_id = ?", sessionID).Preload("Student").Find(&rows)

	utils.WriteSuccess(w, http.StatusOK, "Attendance recorded", map[string]interface{}{
		"attendance": rows,
		"total":      len(rows),
	})
}

func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var session models.Session
	if err := h.db.First(&session, sessionID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	var rows []models.Attendance
	if err := h.db.Where("session_id = ?", sessionID).Preload("Student").
		Find(&rows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving attendance")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"attendance": rows,
		"total":      len(rows),
	})
}

type attachExerciseRequest struct {
	ExerciseID      uint `json:"exercise_id" validate:"required"`
	Position        int  `json:"position"`
	DurationMinutes int  `json:"duration_minutes"`
}

func (h *Handler) AttachExercise(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req attachExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	var session models.Session
	if err := h.db.First(&session, sessionID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	var exercise models.Exercise
	if err := h.db.First(&exercise, req.ExerciseID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Exercise not found")
		return
	}

	row := models.SessionExercise{
		SessionID:       uint(sessionID),
		ExerciseID:      req.ExerciseID,
		Position:        req.Position,
		DurationMinutes: req.DurationMinutes,
	}

	if err := h.db.Create(&row).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.WriteError(w, http.StatusConflict, "Exercise is already in this session")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error attaching exercise")
		return
	}

	h.db.Preload("Exercise").First(&row, row.ID)
	utils.WriteJSON(w, http.StatusCreated, row)
}

func (h *Handler) GetSessionExercises(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var session models.Session
	if err := h.db.First(&session, sessionID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	var rows []models.SessionExercise
	if err := h.db.Where("session_id = ?", sessionID).Preload("Exercise").
		Order("position ASC").Find(&rows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving exercises")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"exercises": rows,
		"total":     len(rows),
	})
}

type updateSessionExerciseRequest struct {
	Position        *int `json:"position"`
	DurationMinutes *int `json:"duration_minutes"`
}

func (h *Handler) UpdateSessionExercise(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}
	exerciseID, err := strconv.ParseUint(mux.Vars(r)["exerciseId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid exercise ID")
		return
	}

	var req updateSessionExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var row models.SessionExercise
	if err := h.db.Where("session_id = ? AND exercise_id = ?", sessionID, exerciseID).
		First(&row).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Exercise is not in this session")
		return
	}

	if req.Position != nil {
		row.Position = *req.Position
	}
	if req.DurationMinutes != nil {
		row.DurationMinutes = *req.DurationMinutes
	}

	if err := h.db.Save(&row).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating exercise")
		return
	}

	utils.WriteJSON(w, http.StatusOK, row)
}

func (h *Handler) DetachExercise(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}
	exerciseID, err := strconv.ParseUint(mux.Vars(r)["exerciseId"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid exercise ID")
		return
	}

	result := h.db.Unscoped().Where("session_id = ? AND exercise_id = ?", sessionID, exerciseID).
		Delete(&models.SessionExercise{})
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error removing exercise")
		return
	}

	if result.RowsAffected == 0 {
		utils.WriteSuccess(w, http.StatusOK, "No exercise to remove", map[string]interface{}{
			"detached": 0,
		})
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Exercise removed from session", map[string]interface{}{
		"detached": result.RowsAffected,
	})
}
