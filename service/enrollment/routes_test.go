package enrollment

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
		&models.ClassModel{},
		&models.Student{},
		&models.Teacher{},
		&models.ClassStudent{},
		&models.ClassTeacher{},
	))

	router := mux.NewRouter()
	NewHandler(db, zap.NewNop()).RegisterRoutes(router)
	return db, router
}

func createFixtures(t *testing.T, db *gorm.DB) (models.ClassModel, models.Student, models.Teacher) {
	t.Helper()
	class := models.ClassModel{Name: "BJJ Fundamentals", Discipline: "bjj", Weekday: "monday"}
	require.NoError(t, db.Create(&class).Error)

	student := models.Student{
		FirstName: "Ana", LastName: "Silva",
		Email:    fmt.Sprintf("ana+%d@example.com", time.Now().UnixNano()),
		JoinedAt: time.Now(),
	}
	require.NoError(t, db.Create(&student).Error)

	teacher := models.Teacher{
		FirstName: "Carlos", LastName: "Mendes",
		Email: fmt.Sprintf("carlos+%d@example.com", time.Now().UnixNano()),
	}
	require.NoError(t, db.Create(&teacher).Error)

	return class, student, teacher
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

func TestAttachStudent(t *testing.T) {
	db, router := setupTest(t)
	class, student, _ := createFixtures(t, db)

	rec := doRequest(router, "POST", fmt.Sprintf("/classes/%d/students", class.ID),
		map[string]interface{}{"student_id": student.ID, "status": "active"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var row models.ClassStudent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &row))
	assert.Equal(t, "active", row.Status)
	assert.NotNil(t, row.Student)
}

func TestAttachStudentDuplicateConflicts(t *testing.T) {
	db, router := setupTest(t)
	class, student, _ := createFixtures(t, db)

	body := map[string]interface{}{"student_id": student.ID}
	rec := doRequest(router, "POST", fmt.Sprintf("/classes/%d/students", class.ID), body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, "POST", fmt.Sprintf("/classes/%d/students", class.ID), body)
	require.Equal(t, http.StatusConflict, rec.Code)

	var count int64
	db.Model(&models.ClassStudent{}).
		Where("class_id = ? AND student_id = ?", class.ID, student.ID).Count(&count)
	assert.Equal(t, int64(1), count, "the duplicate attempt must not add a row")
}

func TestAttachStudentMissingClass(t *testing.T) {
	db, router := setupTest(t)
	_, student, _ := createFixtures(t, db)

	rec := doRequest(router, "POST", "/classes/999/students",
		map[string]interface{}{"student_id": student.ID})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttachStudentMissingStudent(t *testing.T) {
	db, router := setupTest(t)
	class, _, _ := createFixtures(t, db)

	rec := doRequest(router, "POST", fmt.Sprintf("/classes/%d/students", class.ID),
		map[string]interface{}{"student_id": 999})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStudentPivot(t *testing.T) {
	db, router := setupTest(t)
	class, student, _ := createFixtures(t, db)
	require.NoError(t, db.Create(&models.ClassStudent{
		ClassID: class.ID, StudentID: student.ID, Status: "active",
	}).Error)

	rec := doRequest(router, "PATCH",
		fmt.Sprintf("/classes/%d/students/%d", class.ID, student.ID),
		map[string]interface{}{"status": "paused", "note": "travelling"})
	require.Equal(t, http.StatusOK, rec.Code)

	var row models.ClassStudent
	require.NoError(t, db.Where("class_id = ? AND student_id = ?", class.ID, student.ID).
		First(&row).Error)
	assert.Equal(t, "paused", row.Status)
	assert.Equal(t, "travelling", row.Note)
}

func TestUpdateStudentPivotNotFound(t *testing.T) {
	db, router := setupTest(t)
	class, student, _ := createFixtures(t, db)

	rec := doRequest(router, "PATCH",
		fmt.Sprintf("/classes/%d/students/%d", class.ID, student.ID),
		map[string]interface{}{"status": "paused"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDetachStudentAbsentIsNoop(t *testing.T) {
	db, router := setupTest(t)
	class, student, _ := createFixtures(t, db)

	rec := doRequest(router, "DELETE",
		fmt.Sprintf("/classes/%d/students/%d", class.ID, student.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result string `json:"result"`
		Data   struct {
			Detached int `json:"detached"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Result)
	assert.Equal(t, 0, resp.Data.Detached)
}

func TestDetachThenReattach(t *testing.T) {
	db, router := setupTest(t)
	class, student, _ := createFixtures(t, db)

	body := map[string]interface{}{"student_id": student.ID}
	path := fmt.Sprintf("/classes/%d/students", class.ID)

	rec := doRequest(router, "POST", path, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, "DELETE",
		fmt.Sprintf("/classes/%d/students/%d", class.ID, student.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, "POST", path, body)
	require.Equal(t, http.StatusCreated, rec.Code, "a detached pair can be attached again")
}

func TestAttachTeacherDuplicateConflicts(t *testing.T) {
	db, router := setupTest(t)
	class, _, teacher := createFixtures(t, db)

	body := map[string]interface{}{"teacher_id": teacher.ID, "role": "instructor", "is_primary": true}
	rec := doRequest(router, "POST", fmt.Sprintf("/classes/%d/teachers", class.ID), body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, "POST", fmt.Sprintf("/classes/%d/teachers", class.ID), body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestTeacherRootedAlias(t *testing.T) {
	db, router := setupTest(t)
	class, _, teacher := createFixtures(t, db)

	rec := doRequest(router, "POST", fmt.Sprintf("/teachers/%d/classes", teacher.ID),
		map[string]interface{}{"class_id": class.ID, "role": "assistant"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same association, so the class-rooted attach now conflicts
	rec = doRequest(router, "POST", fmt.Sprintf("/classes/%d/teachers", class.ID),
		map[string]interface{}{"teacher_id": teacher.ID})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(router, "PATCH",
		fmt.Sprintf("/teachers/%d/classes/%d", teacher.ID, class.ID),
		map[string]interface{}{"is_primary": true})
	require.Equal(t, http.StatusOK, rec.Code)

	var row models.ClassTeacher
	require.NoError(t, db.Where("class_id = ? AND teacher_id = ?", class.ID, teacher.ID).
		First(&row).Error)
	assert.True(t, row.IsPrimary)
	assert.Equal(t, "assistant", row.Role)
}

func TestDetachTeacher(t *testing.T) {
	db, router := setupTest(t)
	class, _, teacher := createFixtures(t, db)
	require.NoError(t, db.Create(&models.ClassTeacher{
		ClassID: class.ID, TeacherID: teacher.ID,
	}).Error)

	rec := doRequest(router, "DELETE",
		fmt.Sprintf("/classes/%d/teachers/%d", class.ID, teacher.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&models.ClassTeacher{}).
		Where("class_id = ? AND teacher_id = ?", class.ID, teacher.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}
