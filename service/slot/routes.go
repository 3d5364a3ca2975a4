package slot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dojoworks/academy-server/cmd/models"
	"github.com/dojoworks/academy-server/cmd/utils"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SlotHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSlotHandler(db *gorm.DB, logger *zap.Logger) *SlotHandler {
	return &SlotHandler{db: db, logger: logger}
}

func (h *SlotHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/appointment-slots", h.CreateSlot).Methods("POST")
	router.HandleFunc("/appointment-slots", h.GetSlots).Methods("GET")
	router.HandleFunc("/appointment-slots/{id}", h.GetSlot).Methods("GET")
	router.HandleFunc("/appointment-slots/{id}", h.UpdateSlot).Methods("PATCH")
	router.HandleFunc("/appointment-slots/{id}", h.DeleteSlot).Methods("DELETE")
	router.HandleFunc("/appointment-slots/{id}/book", h.BookAppointment).Methods("POST")

	router.HandleFunc("/appointments", h.GetAppointments).Methods("GET")
	router.HandleFunc("/appointments/{id}", h.GetAppointment).Methods("GET")
	router.HandleFunc("/appointments/{id}/status", h.UpdateAppointmentStatus).Methods("PATCH")
	router.HandleFunc("/appointments/{id}", h.DeleteAppointment).Methods("DELETE")
}

type createSlotRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Capacity  int       `json:"capacity" validate:"required,min=1"`
	CreatedBy *uint     `json:"created_by"`
}

type updateSlotRequest struct {
	StartTime  *time.Time `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	Capacity   *int       `json:"capacity"`
	IsCaptured *bool      `json:"is_captured"`
}

type bookingRequest struct {
	Name        string     `json:"name" validate:"required"`
	Email       string     `json:"email" validate:"required,email"`
	Phone       string     `json:"phone"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Notes       string     `json:"notes"`
}

// countBookings returns the number of non-cancelled appointments on a slot.
func countBookings(tx *gorm.DB, slotID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.Appointment{}).
		Where("slot_id = ? AND status <> ?", slotID, models.AppointmentCancelled).
		Count(&n).Error
	return n, err
}

func (h *SlotHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req createSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	if !req.EndTime.After(req.StartTime) {
		utils.WriteFieldErrors(w, "Invalid time range", map[string]string{
			"end_time": "must be after start_time",
		})
		return
	}

	slot := models.AppointmentSlot{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Capacity:  req.Capacity,
		CreatedBy: req.CreatedBy,
	}

	if err := h.db.Create(&slot).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating slot")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, slot)
}

func (h *SlotHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 50

	query := h.db.Model(&models.AppointmentSlot{})

	if from := r.URL.Query().Get("from"); from != "" {
		query = query.Where("start_time >= ?", from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		query = query.Where("end_time <= ?", to)
	}
	if available := r.URL.Query().Get("available"); available == "true" {
		query = query.Where("is_captured = ?", false)
	}

	var total int64
	query.Count(&total)

	var slots []models.AppointmentSlot
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("start_time ASC").Find(&slots).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving slots")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"slots":       slots,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *SlotHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid slot ID")
		return
	}

	var slot models.AppointmentSlot
	if err := h.db.First(&slot, slotID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Slot not found")
		return
	}

	bookings, _ := countBookings(h.db, slot.ID)

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"slot":     slot,
		"bookings": bookings,
	})
}

// UpdateSlot applies a partial update under a row lock. A capacity below the
// current non-cancelled booking count is rejected before anything is written,
// and is_captured is recomputed unless the caller set it explicitly.
func (h *SlotHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid slot ID")
		return
	}

	var req updateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx := h.db.Begin()

	var slot models.AppointmentSlot
	if err := utils.LockForUpdate(tx).First(&slot, slotID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Slot not found")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error loading slot")
		return
	}

	start := slot.StartTime
	end := slot.EndTime
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	if !end.After(start) {
		tx.Rollback()
		utils.WriteFieldErrors(w, "Invalid time range", map[string]string{
			"end_time": "must be after start_time",
		})
		return
	}

	bookings, err := countBookings(tx, slot.ID)
	if err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error counting bookings")
		return
	}

	if req.Capacity != nil {
		if *req.Capacity < 1 {
			tx.Rollback()
			utils.WriteFieldErrors(w, "Invalid capacity", map[string]string{
				"capacity": "must be at least 1",
			})
			return
		}
		if int64(*req.Capacity) < bookings {
			tx.Rollback()
			utils.WriteError(w, http.StatusConflict, fmt.Sprintf(
				"Capacity %d is below the current booking count %d", *req.Capacity, bookings))
			return
		}
		slot.Capacity = *req.Capacity
	}

	slot.StartTime = start
	slot.EndTime = end

	if req.IsCaptured != nil {
		slot.IsCaptured = *req.IsCaptured
	} else {
		slot.IsCaptured = bookings >= int64(slot.Capacity)
	}

	if err := tx.Save(&slot).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error updating slot")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error completing update")
		return
	}

	h.db.First(&slot, slot.ID)
	utils.WriteJSON(w, http.StatusOK, slot)
}

func (h *SlotHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid slot ID")
		return
	}

	var slot models.AppointmentSlot
	if err := h.db.First(&slot, slotID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Slot not found")
		return
	}

	var referenced int64
	if err := h.db.Model(&models.Appointment{}).
		Where("slot_id = ?", slot.ID).Count(&referenced).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error checking appointments")
		return
	}
	if referenced > 0 {
		utils.WriteError(w, http.StatusConflict, "Slot has appointments and cannot be deleted")
		return
	}

	if err := h.db.Delete(&slot).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting slot")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Slot deleted successfully", nil)
}

// BookAppointment creates an appointment against a slot. The slot row is
// locked so the capacity check and the captured-flag update cannot race with
// a concurrent booking or capacity change.
func (h *SlotHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid slot ID")
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	tx := h.db.Begin()

	var slot models.AppointmentSlot
	if err := utils.LockForUpdate(tx).First(&slot, slotID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Slot not found")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error loading slot")
		return
	}

	bookings, err := countBookings(tx, slot.ID)
	if err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error counting bookings")
		return
	}
	if bookings >= int64(slot.Capacity) {
		tx.Rollback()
		utils.WriteError(w, http.StatusConflict, "Slot is fully booked")
		return
	}

	scheduledAt := slot.StartTime
	if req.ScheduledAt != nil {
		scheduledAt = *req.ScheduledAt
	}

	sid := slot.ID
	appointment := models.Appointment{
		SlotID:      &sid,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		ScheduledAt: scheduledAt,
		Status:      models.AppointmentConfirmed,
		Notes:       req.Notes,
	}

	if err := tx.Create(&appointment).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error creating appointment")
		return
	}

	if bookings+1 >= int64(slot.Capacity) {
		slot.IsCaptured = true
		if err := tx.Save(&slot).Error; err != nil {
			tx.Rollback()
			utils.WriteError(w, http.StatusInternalServerError, "Error updating slot")
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error completing booking")
		return
	}

	go func() {
		if err := sendBookingConfirmation(req.Email, req.Name, slot.StartTime, slot.EndTime); err != nil {
			h.logger.Warn("Booking confirmation email failed",
				zap.Uint("appointment_id", appointment.ID), zap.Error(err))
		}
	}()

	h.db.Preload("Slot").First(&appointment, appointment.ID)
	utils.WriteJSON(w, http.StatusCreated, appointment)
}

func (h *SlotHandler) GetAppointments(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 100

	query := h.db.Model(&models.Appointment{}).Preload("Slot")

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if slotID := r.URL.Query().Get("slot_id"); slotID != "" {
		query = query.Where("slot_id = ?", slotID)
	}

	var total int64
	query.Count(&total)

	var appointments []models.Appointment
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("scheduled_at DESC").Find(&appointments).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving appointments")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": appointments,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
		"total_pages":  (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *SlotHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid appointment ID")
		return
	}

	var appointment models.Appointment
	if err := h.db.Preload("Slot").First(&appointment, appointmentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Appointment not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, appointment)
}

// UpdateAppointmentStatus sets a new status. Any value in the allowed set may
// follow any other; when the appointment sits on a slot the captured flag is
// recomputed under the slot lock since cancellations free capacity.
func (h *SlotHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid appointment ID")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !models.ValidAppointmentStatus(req.Status) {
		utils.WriteFieldErrors(w, "Invalid status", map[string]string{
			"status": "must be one of pending, confirmed, cancelled",
		})
		return
	}

	tx := h.db.Begin()

	var appointment models.Appointment
	if err := tx.First(&appointment, appointmentID).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusNotFound, "Appointment not found")
		return
	}

	appointment.Status = req.Status
	if err := tx.Save(&appointment).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error updating appointment")
		return
	}

	if appointment.SlotID != nil {
		if err := refreshSlotCaptured(tx, *appointment.SlotID); err != nil {
			tx.Rollback()
			utils.WriteError(w, http.StatusInternalServerError, "Error updating slot")
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error completing update")
		return
	}

	utils.WriteJSON(w, http.StatusOK, appointment)
}

func (h *SlotHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid appointment ID")
		return
	}

	tx := h.db.Begin()

	var appointment models.Appointment
	if err := tx.First(&appointment, appointmentID).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusNotFound, "Appointment not found")
		return
	}

	if err := tx.Delete(&appointment).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting appointment")
		return
	}

	if appointment.SlotID != nil {
		if err := refreshSlotCaptured(tx, *appointment.SlotID); err != nil {
			tx.Rollback()
			utils.WriteError(w, http.StatusInternalServerError, "Error updating slot")
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error completing delete")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Appointment deleted successfully", nil)
}

// refreshSlotCaptured recomputes is_captured from the live booking count.
// Callers run it inside the transaction that changed the bookings.
func refreshSlotCaptured(tx *gorm.DB, slotID uint) error {
	var slot models.AppointmentSlot
	if err := utils.LockForUpdate(tx).First(&slot, slotID).Error; err != nil {
		return err
	}
	bookings, err := countBookings(tx, slot.ID)
	if err != nil {
		return err
	}
	captured := bookings >= int64(slot.Capacity)
	if captured == slot.IsCaptured {
		return nil
	}
	return tx.Model(&slot).Update("is_captured", captured).Error
}
