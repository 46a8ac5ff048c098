package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stylisthq/stylist-server/internal/config"
	"github.com/stylisthq/stylist-server/internal/models"
	"github.com/stylisthq/stylist-server/internal/security"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, config.JWTConfig) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Admin{}, &models.User{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	jwtCfg := config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}
	engine := gin.New()
	RegisterAdminRoutes(engine, conn, jwtCfg)
	return engine, conn, jwtCfg
}

func seedAdmin(t *testing.T, conn *gorm.DB) {
	t.Helper()
	hash, errHash := security.HashPassword("hunter22")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	if errCreate := conn.Create(&models.Admin{Username: "root", Password: hash}).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestAdminLogin(t *testing.T) {
	engine, conn, _ := newTestRouter(t)
	seedAdmin(t, conn)

	rec := doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{"username": "root", "password": "hunter22"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	rec = doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{"username": "root", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}
}

func TestAdminEntitlementOverride(t *testing.T) {
	engine, conn, jwtCfg := newTestRouter(t)
	seedAdmin(t, conn)

	user := models.User{Name: "Ann"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}

	var admin models.Admin
	if errFind := conn.First(&admin).Error; errFind != nil {
		t.Fatalf("load admin: %v", errFind)
	}
	token, errToken := security.IssueToken(jwtCfg, admin.ID, security.SubjectKindAdmin)
	if errToken != nil {
		t.Fatalf("issue token: %v", errToken)
	}

	premium := true
	rec := doJSON(t, engine, http.MethodPut, "/v0/admin/users/1/entitlement", token, gin.H{"premium": premium})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated models.User
	if errFind := conn.First(&updated, "id = ?", user.ID).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	if !updated.Premium {
		t.Fatal("expected premium flag set")
	}

	// A user token must not pass the admin surface.
	userToken, errUserToken := security.IssueToken(jwtCfg, user.ID, security.SubjectKindUser)
	if errUserToken != nil {
		t.Fatalf("issue user token: %v", errUserToken)
	}
	rec = doJSON(t, engine, http.MethodGet, "/v0/admin/users", userToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for user token, got %d", rec.Code)
	}
}

func TestAdminUserSearch(t *testing.T) {
	engine, conn, jwtCfg := newTestRouter(t)
	seedAdmin(t, conn)

	for _, name := range []string{"Ann Summer", "Bob Winter"} {
		if errCreate := conn.Create(&models.User{Name: name}).Error; errCreate != nil {
			t.Fatalf("create user: %v", errCreate)
		}
	}

	token, errToken := security.IssueToken(jwtCfg, 1, security.SubjectKindAdmin)
	if errToken != nil {
		t.Fatalf("issue token: %v", errToken)
	}

	rec := doJSON(t, engine, http.MethodGet, "/v0/admin/users?search=ann", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Users []models.User `json:"users"`
		Total int64         `json:"total"`
	}
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Total != 1 || len(resp.Users) != 1 || resp.Users[0].Name != "Ann Summer" {
		t.Fatalf("unexpected search result %+v", resp)
	}
}

func TestHealthz(t *testing.T) {
	engine, _, _ := newTestRouter(t)
	rec := doJSON(t, engine, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
