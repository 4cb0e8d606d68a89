package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/middleware"
	"github.com/yourusername/todo-api/internal/repository/postgres"
	"github.com/yourusername/todo-api/internal/service"
	"github.com/yourusername/todo-api/internal/testutil"
	"github.com/yourusername/todo-api/pkg/auth"
	"github.com/yourusername/todo-api/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// captureMailer запоминает последний код для каждого адреса
type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendOTP(ctx context.Context, toEmail, code, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[toEmail] = code
	return nil
}

func (m *captureMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type apiFixture struct {
	db     *gorm.DB
	router *gin.Engine
	mailer *captureMailer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	store := postgres.NewStore(db)
	mailer := &captureMailer{codes: make(map[string]string)}

	jwtService, err := auth.NewJWTService("test-secret", "todo-api", 1, nil)
	require.NoError(t, err)
	authService, err := service.NewAuthService(store, mailer, jwtService, nil,
		config.OTPConfig{Min: 100000, Max: 999999, TTLMinutes: 10}, nil)
	require.NoError(t, err)

	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	todoCfg := config.TodoConfig{PerPage: 15, MaxPerPage: 100, MaxFileSizeMB: 20, MaxFilesPerReq: 10, AttachmentsPath: "todo-pdfs"}
	todoService, err := service.NewTodoService(store, blobs, todoCfg, nil)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	router := gin.New()
	Routes{
		Auth:        NewAuthHandler(authService, nil),
		Todos:       NewTodoHandler(todoService, todoCfg, nil),
		Health:      NewHealthHandler(sqlDB, nil, nil),
		RequireAuth: middleware.NewAuthMiddleware(authService, nil).RequireAuth(),
	}.Register(router)

	return &apiFixture{db: db, router: router, mailer: mailer}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) doRaw(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

// loginAs создает активированного пользователя и возвращает его токен
func (f *apiFixture) loginAs(t *testing.T, email string) string {
	t.Helper()
	testutil.CreateTestUser(t, f.db, email, "secret1", true)
	w := f.do(t, http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return parseJSONResponse(t, w)["token"].(string)
}

type multipartFile struct {
	field, name, contentType string
	content                  []byte
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, files []multipartFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
