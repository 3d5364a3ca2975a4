package article

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
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
	router.HandleFunc("/articles", h.CreateArticle).Methods("POST")
	router.HandleFunc("/articles", h.GetArticles).Methods("GET")
	router.HandleFunc("/articles/{id}", h.GetArticle).Methods("GET")
	router.HandleFunc("/articles/{id}", h.UpdateArticle).Methods("PATCH")
	router.HandleFunc("/articles/{id}", h.DeleteArticle).Methods("DELETE")
	router.HandleFunc("/articles/{id}/publish", h.PublishArticle).Methods("PATCH")
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

type createArticleRequest struct {
	Title    string `json:"title" validate:"required"`
	Slug     string `json:"slug"`
	Body     string `json:"body"`
	AuthorID *uint  `json:"author_id"`
}

func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Title)
	}

	if req.AuthorID != nil {
		var author models.Teacher
		if err := h.db.First(&author, *req.AuthorID).Error; err != nil {
			utils.WriteError(w, http.StatusNotFound, "Author not found")
			return
		}
	}

	article := models.Article{
		Title:    req.Title,
		Slug:     slug,
		Body:     req.Body,
		AuthorID: req.AuthorID,
	}

	if err := h.db.Create(&article).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.WriteError(w, http.StatusConflict, "Slug is already in use")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error creating article")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, article)
}

func (h *Handler) GetArticles(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.Article{}).Preload("Author")

	if published := r.URL.Query().Get("published"); published != "" {
		query = query.Where("published = ?", published == "true")
	}

	var total int64
	query.Count(&total)

	var articles []models.Article
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("created_at DESC").Find(&articles).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving articles")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"articles":    articles,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	articleID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid article ID")
		return
	}

	var article models.Article
	if err := h.db.Preload("Author").First(&article, articleID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Article not found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, article)
}

type updateArticleRequest struct {
	Title    *string `json:"title"`
	Slug     *string `json:"slug"`
	Body     *string `json:"body"`
	AuthorID *uint   `json:"author_id"`
}

func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	articleID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid article ID")
		return
	}

	var req updateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var article models.Article
	if err := h.db.First(&article, articleID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Article not found")
		return
	}

	if req.Title != nil {
		article.Title = *req.Title
	}
	if req.Slug != nil {
		article.Slug = *req.Slug
	}
	if req.Body != nil {
		article.Body = *req.Body
	}
	if req.AuthorID != nil {
		var author models.Teacher
		if err := h.db.First(&author, *req.AuthorID).Error; err != nil {
			utils.WriteError(w, http.StatusNotFound, "Author not found")
			return
		}
		article.AuthorID = req.AuthorID
	}

	if err := h.db.Save(&article).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.WriteError(w, http.StatusConflict, "Slug is already in use")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error updating article")
		return
	}

	utils.WriteJSON(w, http.StatusOK, article)
}

func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	articleID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid article ID")
		return
	}

	result := h.db.Delete(&models.Article{}, articleID)
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting article")
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, http.StatusNotFound, "Article not found")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, "Article deleted successfully", nil)
}

type publishRequest struct {
	Published bool `json:"published"`
}

func (h *Handler) PublishArticle(w http.ResponseWriter, r *http.Request) {
	articleID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid article ID")
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var article models.Article
	if err := h.db.First(&article, articleID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Article not found")
		return
	}

	article.Published = req.Published
	if req.Published {
		now := time.Now()
		article.PublishedAt = &now
	} else {
		article.PublishedAt = nil
	}

	if err := h.db.Model(&article).Select("published", "published_at").Updates(map[string]interface{}{
		"published":    article.Published,
		"published_at": article.PublishedAt,
	}).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating article")
		return
	}

	utils.WriteJSON(w, http.StatusOK, article)
}
