package offer

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

	require.NoError(t, db.AutoMigrate(&models.MembershipPlan{}, &models.Offer{}))

	router := mux.NewRouter()
	NewHandler(db).RegisterRoutes(router)
	return db, router
}

func doRequest(router *mux.Router, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type errorResponse struct {
	Result  string            `json:"result"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateOfferWithAmount(t *testing.T) {
	db, router := setupTest(t)

	rec := doRequest(router, "POST", "/offers",
		`{"title": "New year special", "discount_amount": 25}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var offer models.Offer
	require.NoError(t, db.First(&offer).Error)
	require.NotNil(t, offer.DiscountAmount)
	assert.Equal(t, 25.0, *offer.DiscountAmount)
	assert.Nil(t, offer.DiscountPercent)
}

func TestCreateOfferBothDiscountsRejected(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(router, "POST", "/offers",
		`{"title": "Broken", "discount_amount": 25, "discount_percent": 10}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeErrors(t, rec)
	assert.Contains(t, resp.Errors, "discount_amount")
	assert.Contains(t, resp.Errors, "discount_percent")
}

func TestCreateOfferNeitherDiscountRejected(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(router, "POST", "/offers", `{"title": "Broken"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeErrors(t, rec)
	assert.Contains(t, resp.Errors, "discount_amount")
	assert.Contains(t, resp.Errors, "discount_percent")
}

func TestCreateOfferPercentOutOfRange(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(router, "POST", "/offers",
		`{"title": "Broken", "discount_percent": 150}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeErrors(t, rec)
	assert.Contains(t, resp.Errors, "discount_percent")
	assert.NotContains(t, resp.Errors, "discount_amount")
}

func TestCreateOfferEndsBeforeStarts(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(router, "POST", "/offers",
		`{"title": "Broken", "discount_amount": 10,
		  "starts_at": "2026-04-01T00:00:00Z", "ends_at": "2026-03-01T00:00:00Z"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeErrors(t, rec)
	assert.Contains(t, resp.Errors, "ends_at")
}

func TestCreateOfferMissingPlan(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(router, "POST", "/offers",
		`{"title": "Plan special", "discount_amount": 10, "membership_plan_id": 999}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func createOffer(t *testing.T, db *gorm.DB, amount, percent *float64) models.Offer {
	t.Helper()
	offer := models.Offer{
		Title:           "Seed offer",
		DiscountAmount:  amount,
		DiscountPercent: percent,
	}
	require.NoError(t, db.Create(&offer).Error)
	return offer
}

func f(v float64) *float64 { return &v }

func TestUpdateOfferSwitchesDiscountField(t *testing.T) {
	db, router := setupTest(t)
	offer := createOffer(t, db, f(25), nil)

	rec := doRequest(router, "PATCH", fmt.Sprintf("/offers/%d", offer.ID),
		`{"discount_amount": null, "discount_percent": 10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Offer
	require.NoError(t, db.First(&stored, offer.ID).Error)
	assert.Nil(t, stored.DiscountAmount)
	require.NotNil(t, stored.DiscountPercent)
	assert.Equal(t, 10.0, *stored.DiscountPercent)
}

func TestUpdateOfferMergedStateViolation(t *testing.T) {
	db, router := setupTest(t)
	offer := createOffer(t, db, f(25), nil)

	// discount_amount is untouched and stays set, so adding a percent
	// puts both fields on the merged state
	rec := doRequest(router, "PATCH", fmt.Sprintf("/offers/%d", offer.ID),
		`{"discount_percent": 10}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeErrors(t, rec)
	assert.Contains(t, resp.Errors, "discount_amount")
	assert.Contains(t, resp.Errors, "discount_percent")

	var stored models.Offer
	require.NoError(t, db.First(&stored, offer.ID).Error)
	require.NotNil(t, stored.DiscountAmount)
	assert.Equal(t, 25.0, *stored.DiscountAmount)
	assert.Nil(t, stored.DiscountPercent)
}

func TestUpdateOfferClearingOnlyDiscountRejected(t *testing.T) {
	db, router := setupTest(t)
	offer := createOffer(t, db, f(25), nil)

	rec := doRequest(router, "PATCH", fmt.Sprintf("/offers/%d", offer.ID),
		`{"discount_amount": null}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateOfferUntouchedDiscountSurvives(t *testing.T) {
	db, router := setupTest(t)
	offer := createOffer(t, db, nil, f(15))

	rec := doRequest(router, "PATCH", fmt.Sprintf("/offers/%d", offer.ID),
		`{"title": "Renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Offer
	require.NoError(t, db.First(&stored, offer.ID).Error)
	assert.Equal(t, "Renamed", stored.Title)
	require.NotNil(t, stored.DiscountPercent)
	assert.Equal(t, 15.0, *stored.DiscountPercent)
}

func TestUpdateOfferDateViolation(t *testing.T) {
	db, router := setupTest(t)
	offer := createOffer(t, db, f(25), nil)
	require.NoError(t, db.Model(&offer).
		Update("starts_at", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)).Error)

	rec := doRequest(router, "PATCH", fmt.Sprintf("/offers/%d", offer.ID),
		`{"ends_at": "2026-03-01T00:00:00Z"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeErrors(t, rec)
	assert.Contains(t, resp.Errors, "ends_at")
}

func TestUpdateOfferNotFound(t *testing.T) {
	_, router := setupTest(t)

	rec := doRequest(router, "PATCH", "/offers/999", `{"title": "Nope"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteOffer(t *testing.T) {
	db, router := setupTest(t)
	offer := createOffer(t, db, f(25), nil)

	rec := doRequest(router, "DELETE", fmt.Sprintf("/offers/%d", offer.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, "DELETE", fmt.Sprintf("/offers/%d", offer.ID), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
