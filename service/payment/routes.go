package payment

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dojoworks/academy-server/cmd/models"
	"github.com/dojoworks/academy-server/cmd/utils"
	"github.com/google/uuid"
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
	router.HandleFunc("/payments", h.RecordPayment).Methods("POST")
	router.HandleFunc("/payments", h.GetPayments).Methods("GET")
	router.HandleFunc("/payments/{id}", h.GetPayment).Methods("GET")
	router.HandleFunc("/payments/reference/{reference}", h.GetPaymentByReference).Methods("GET")
}

type recordPaymentRequest struct {
	StudentID    uint       `json:"student_id" validate:"required"`
	MembershipID *uint      `json:"membership_id"`
	Amount       float64    `json:"amount" validate:"required,gt=0"`
	Method       string     `json:"method" validate:"required"`
	PaidAt       *time.Time `json:"paid_at"`
	Notes        string     `json:"notes"`
}

// RecordPayment stores a payment with a generated receipt reference.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
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
	if req.MembershipID != nil {
		var membership models.Membership
		if err := h.db.First(&membership, *req.MembershipID).Error; err != nil {
			utils.WriteError(w, http.StatusNotFound, "Membership not found")
			return
		}
		if membership.StudentID != req.StudentID {
			utils.WriteError(w, http.StatusConflict, "Membership belongs to another student")
			return
		}
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	payment := models.Payment{
		StudentID:    req.StudentID,
		MembershipID: req.MembershipID,
		Amount:       req.Amount,
		Method:       req.Method,
		Reference:    uuid.NewString(),
		PaidAt:       paidAt,
		Notes:        req.Notes,
	}

	if err := h.db.Create(&payment).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error recording payment")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, payment)
}

func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 100

	query := h.db.Model(&models.Payment{}).Preload("Student")

	if studentID := r.URL.Query().Get("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if method := r.URL.Query().Get("method"); method != "" {
		query = query.Where("method = ?", method)
	}
	if from := r.URL.Query().Get("from"); from != "" {
		query = query.Where("paid_at >= ?", from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		query = query.Where("paid_at <= ?", to)
	}

	var total int64
	query.Count(&total)

	var payments []models.Payment
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("paid_at DESC").Find(&payments).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving payments")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"payments":    payments,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid payment ID")
		return
	}

	var payment models.Payment
	if err := h.db.Preload("Student").Preload("Membership").
		First(&payment, paymentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Payment not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, payment)
}

func (h *Handler) GetPaymentByReference(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]

	var payment models.Payment
	if err := h.db.Where("reference = ?", reference).
		Preload("Student").First(&payment).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Payment not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, payment)
}
