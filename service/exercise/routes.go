package exercise

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
	router.HandleFunc("/exercises", h.CreateExercise).Methods("POST")
	router.HandleFunc("/exercises", h.GetExercises).Methods("GET")
	router.HandleFunc("/exercises/{id}", h.GetExercise).Methods("GET")
	router.HandleFunc("/exercises/{id}", h.UpdateExercise).Methods("PATCH")
	router.HandleFunc("/exercises/{id}", h.DeleteExercise).Methods("DELETE")
}

type exerciseRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
}

func (h *Handler) CreateExercise(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	exercise := models.Exercise{
		Name:        req.Name,
		Description: req.Description,
		Difficulty:  req.Difficulty,
	}

	if err := h.db.Create(&exercise).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating exercise")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, exercise)
}

func (h *Handler) GetExercises(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Exercise{})

	if difficulty := r.URL.Query().Get("difficulty"); difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var exercises []models.Exercise
	if err := query.Order("name ASC").Find(&exercises).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving exercises")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"exercises": exercises,
		"total":     len(exercises),
	})
}

func (h *Handler) GetExercise(w http.ResponseWriter, r *http.Request) {
	exerciseID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid exercise ID")
		return
	}

	var exercise models.Exercise
	if err := h.db.First(&exercise, exerciseID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Exercise not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, exercise)
}

type updateExerciseRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Difficulty  *string `json:"difficulty"`
}

func (h *Handler) UpdateExercise(w http.ResponseWriter, r *http.Request) {
	exerciseID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid exercise ID")
		return
	}

	var req updateExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var exercise models.Exercise
	if err := h.db.First(&exercise, exerciseID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Exercise not found")
		return
	}

	if req.Name != nil {
		exercise.Name = *req.Name
	}
	if req.Description != nil {
		exercise.Description = *req.Description
	}
	if req.Difficulty != nil {
		exercise.Difficulty = *req.Difficulty
	}

	if err := h.db.Save(&exercise).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating exercise")
		return
	}

	utils.WriteJSON(w, http.StatusOK, exercise)
}

func (h *Handler) DeleteExercise(w http.ResponseWriter, r *http.Request) {
	exerciseID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid exercise ID")
		return
	}

	var referenced int64
	if err := h.db.Model(&models.SessionExercise{}).
		Where("exercise_id = ?", exerciseID).Count(&referenced).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error checking sessions")
		return
	}
	if referenced > 0 {
		utils.WriteError(w, http.StatusConflict, "Exercise is used by sessions and cannot be deleted")
		return
	}

	result := h.db.Delete(&models.Exercise{}, exerciseID)
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting exercise")
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, http.StatusNotFound, "Exercise not found")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Exercise deleted successfully", nil)
}
