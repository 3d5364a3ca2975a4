package slot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dojoworks/academy-server/cmd/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTest(t *testing.T) (*gorm.DB, *mux.Router) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Teacher{},
		&models.AppointmentSlot{},
		&models.Appointment{},
	))

	router := mux.NewRouter()
	NewSlotHandler(db, zap.NewNop()).RegisterRoutes(router)
	return db, router
}

func createSlot(t *testing.T, db *gorm.DB, capacity int) models.AppointmentSlot {
	t.Helper()
	start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	slot := models.AppointmentSlot{
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Capacity:  capacity,
	}
	require.NoError(t, db.Create(&slot).Error)
	return slot
}

func addBooking(t *testing.T, db *gorm.DB, slotID uint, status string) models.Appointment {
	t.Helper()
	appt := models.Appointment{
		SlotID:      &slotID,
		Name:        "Ana Silva",
		Email:       fmt.Sprintf("ana+%d@example.com", time.Now().UnixNano()),
		ScheduledAt: time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
		Status:      status,
	}
	require.NoError(t, db.Create(&appt).Error)
	return appt
}

func doRequest(router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateSlot(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(router, "POST", "/appointment-slots", map[string]interface{}{
		"start_time": "2026-03-02T18:00:00Z",
		"end_time":   "2026-03-02T19:00:00Z",
		"capacity":   5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var slot models.AppointmentSlot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slot))
	assert.Equal(t, 5, slot.Capacity)
	assert.False(t, slot.IsCaptured)
}

func TestCreateSlotRejectsInvertedTimeRange(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(router, "POST", "/appointment-slots", map[string]interface{}{
		"start_time": "2026-03-02T19:00:00Z",
		"end_time":   "2026-03-02T18:00:00Z",
		"capacity":   5,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Errors, "end_time")
}

func TestUpdateSlotCapacityBelowBookingsConflicts(t *testing.T) {
	db, router := setupTest(t)

	slot := createSlot(t, db, 2)
	addBooking(t, db, slot.ID, models.AppointmentConfirmed)
	addBooking(t, db, slot.ID, models.AppointmentConfirmed)

	rec := doRequest(router, "PATCH", fmt.Sprintf("/appointment-slots/%d", slot.ID),
		map[string]interface{}{"capacity": 1})
	require.Equal(t, http.StatusConflict, rec.Code)

	var stored models.AppointmentSlot
	require.NoError(t, db.First(&stored, slot.ID).Error)
	assert.Equal(t, 2, stored.Capacity, "a rejected update must leave the slot untouched")
}

func TestUpdateSlotCancelledBookingsDoNotCount(t *testing.T) {
	db, router := setupTest(t)

	slot := createSlot(t, db, 2)
	addBooking(t, db, slot.ID, models.AppointmentConfirmed)
	addBooking(t, db, slot.ID, models.AppointmentCancelled)

	rec := doRequest(router, "PATCH", fmt.Sprintf("/appointment-slots/%d", slot.ID),
		map[string]interface{}{"capacity": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.AppointmentSlot
	require.NoError(t, db.First(&stored, slot.ID).Error)
	assert.Equal(t, 1, stored.Capacity)
	assert.True(t, stored.IsCaptured)
}

func TestUpdateSlotRecomputesCaptured(t *testing.T) {
	db, router := setupTest(t)

	slot := createSlot(t, db, 3)
	addBooking(t, db, slot.ID, models.AppointmentConfirmed)
	addBooking(t, db, slot.ID, models.AppointmentConfirmed)

	rec := doRequest(router, "PATCH", fmt.Sprintf("/appointment-slots/%d", slot.ID),
		map[string]interface{}{"capacity": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.AppointmentSlot
	require.NoError(t, db.First(&stored, slot.ID).Error)
	assert.True(t, stored.IsCaptured, "two bookings on capacity two means captured")
}

func TestUpdateSlotHonorsExplicitCaptured(t *testing.T) {
	db, router := setupTest(t)

	slot := createSlot(t, db, 3)

	rec := doRequest(router, "PATCH", fmt.Sprintf("/appointment-slots/%d", slot.ID),
		map[string]interface{}{"is_captured": true})
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.AppointmentSlot
	require.NoError(t, db.First(&stored, slot.ID).Error)
	assert.True(t, stored.IsCaptured)
}

func TestUpdateSlotInvalidTimeRange(t *testing.T) {
	db, router := setupTest(t)

	slot := createSlot(t, db, 3)

	rec := doRequest(router, "PATCH", fmt.Sprintf("/appointment-slots/%d", slot.ID),
		map[string]interface{}{"end_time": "2026-03-02T17:00:00Z"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateSlotNotFound(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(router, "PATCH", "/appointment-slots/999",
		map[string]interface{}{"capacity": 5})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookAppointmentFillsSlot(t *testing.T) {
	db, router := setupTest(t)

	slot := createSlot(t, db, 1)

	rec := doRequest(router, "POST", fmt.Sprintf("/appointment-slots/%d/book", slot.ID),
		map[string]interface{}{"name": "Ana Silva", "email": "ana@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored models.AppointmentSlot
	require.NoError(t, db.First(&stored, slot.ID).Error)
	assert.True(t, stored.IsCaptured)

	rec = doRequest(router, "POST", fmt.Sprintf("/appointment-slots/%d/book", slot.ID),
		map[string]interface{}{"name": "Bruno Costa", "email": "bruno@example.com"})
	require.Equal(t, http.StatusConflict, rec.Code)

	var count int64
	db.Model(&models.Appointment{}).Where("slot_id = ?", slot.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestBookAppointmentSlotNotFound(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(router, "POST", "/appointment-slots/999/book",
		map[string]interface{}{"name": "Ana Silva", "email": "ana@example.com"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelAppointmentReopensSlot(t *testing.T) {
	db, router := setupTest(t)

	slot := createSlot(t, db, 1)
	appt := addBooking(t, db, slot.ID, models.AppointmentConfirmed)
	require.NoError(t, db.Model(&slot).Update("is_captured", true).Error)

	rec := doRequest(router, "PATCH", fmt.Sprintf("/appointments/%d/status", appt.ID),
		map[string]interface{}{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.AppointmentSlot
	require.NoError(t, db.First(&stored, slot.ID).Error)
	assert.False(t, stored.IsCaptured, "cancelling the only booking frees the slot")
}

func TestUpdateAppointmentStatusRejectsUnknownValue(t *testing.T) {
	db, router := setupTest(t)

	slot := createSlot(t, db, 1)
	appt := addBooking(t, db, slot.ID, models.AppointmentConfirmed)

	rec := doRequest(router, "PATCH", fmt.Sprintf("/appointments/%d/status", appt.ID),
		map[string]interface{}{"status": "rescheduled"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteSlot(t *testing.T) {
	db, router := setupTest(t)

	empty := createSlot(t, db, 2)
	rec := doRequest(router, "DELETE", fmt.Sprintf("/appointment-slots/%d", empty.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	booked := createSlot(t, db, 2)
	addBooking(t, db, booked.ID, models.AppointmentConfirmed)

	rec = doRequest(router, "DELETE", fmt.Sprintf("/appointment-slots/%d", booked.ID), nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	var stored models.AppointmentSlot
	assert.NoError(t, db.First(&stored, booked.ID).Error)
}

func TestDeleteAppointmentRefreshesSlot(t *testing.T) {
	db, router := setupTest(t)

	slot := createSlot(t, db, 1)
	appt := addBooking(t, db, slot.ID, models.AppointmentConfirmed)
	require.NoError(t, db.Model(&slot).Update("is_captured", true).Error)

	rec := doRequest(router, "DELETE", fmt.Sprintf("/appointments/%d", appt.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.AppointmentSlot
	require.NoError(t, db.First(&stored, slot.ID).Error)
	assert.False(t, stored.IsCaptured)
}
