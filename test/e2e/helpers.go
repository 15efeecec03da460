//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/csrental/cees/internal/api/handlers"
	"github.com/csrental/cees/internal/audit"
	"github.com/csrental/cees/internal/domain"
	"github.com/csrental/cees/internal/jobs"
	"github.com/csrental/cees/internal/openai"
	"github.com/csrental/cees/internal/repository"
	"github.com/csrental/cees/internal/server"
	"github.com/csrental/cees/internal/service"
	"github.com/csrental/cees/internal/storage"
	"github.com/csrental/cees/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	Queue        *jobs.ProcessingQueue
	UserToken    string
	AdminToken   string
	UserID       string
	AdminID      string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser, queue := startServer(t, ctx, pool, s3Client, port)

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		Queue:        queue,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap mints one regular user session and one admin session
func (e *E2ETestEnv) Bootstrap() {
	sessionRepo := repository.NewUserSessionRepository(e.Pool)
	authSvc := service.NewAuthService(sessionRepo, &service.DefaultUUIDGenerator{})

	e.UserID = "e2e-user"
	e.AdminID = "e2e-admin"

	userToken, err := authSvc.CreateSession(e.Ctx, e.UserID, domain.RoleUser, time.Hour)
	if err != nil {
		e.T.Fatalf("failed to create user session: %v", err)
	}
	e.UserToken = userToken

	adminToken, err := authSvc.CreateSession(e.Ctx, e.AdminID, domain.RoleAdmin, time.Hour)
	if err != nil {
		e.T.Fatalf("failed to create admin session: %v", err)
	}
	e.AdminToken = adminToken
}

// newThrowawaySession mints a session for a fresh user and returns the token
func newThrowawaySession(t *testing.T, env *E2ETestEnv) string {
	t.Helper()

	sessionRepo := repository.NewUserSessionRepository(env.Pool)
	authSvc := service.NewAuthService(sessionRepo, &service.DefaultUUIDGenerator{})

	uuidGen := &service.DefaultUUIDGenerator{}
	token, err := authSvc.CreateSession(env.Ctx, "e2e-"+uuidGen.NewString(), domain.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("failed to create throwaway session: %v", err)
	}
	return token
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request with a JSON body
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Upload performs a multipart file upload
func (e *E2ETestEnv) Upload(path, filename, contentType string, content []byte, authToken string) (*APIResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", e.ServerURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	return e.execute(req)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	return e.execute(req)
}

func (e *E2ETestEnv) execute(req *http.Request) (*APIResponse, error) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// WaitForDocumentStatus polls the document until it reaches the wanted
// status or the timeout elapses.
func (e *E2ETestEnv) WaitForDocumentStatus(documentID, wantStatus, authToken string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	var lastStatus string
	for time.Now().Before(deadline) {
		resp, err := e.Get("/documents/"+documentID, authToken)
		if err == nil {
			var doc struct {
				Status string `json:"status"`
			}
			if json.Unmarshal(resp.Data, &doc) == nil {
				lastStatus = doc.Status
				if doc.Status == wantStatus {
					return
				}
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("document %s did not reach status %s within %v (last: %s)", documentID, wantStatus, timeout, lastStatus)
}

// startServer wires the full service stack behind a fake AI backend and
// starts the HTTP server.
func startServer(t *testing.T, ctx context.Context, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func(), *jobs.ProcessingQueue) {
	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	approvalRepo := repository.NewApprovalRepository(pool)
	chatSessionRepo := repository.NewChatSessionRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	userSessionRepo := repository.NewUserSessionRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	auditLog := audit.NewLogger(auditRepo, uuidGen)

	ai := &fakeAIClient{}
	embeddings := service.NewEmbeddingService(ai)

	docSvc := service.NewDocumentService(docRepo, chunkRepo, approvalRepo, s3Client, embeddings, auditLog, service.DocumentConfig{
		MaxFileSize:       10 * 1024 * 1024,
		AllowedExtensions: []string{"pdf", "doc", "docx", "txt", "md"},
		Chunking: service.ChunkConfig{
			ChunkSize: 100,
			Overlap:   10,
		},
	})
	docSvc.SetTxRunner(txRunner)

	queue := jobs.NewProcessingQueue(docSvc, 16, 1)
	docSvc.SetQueue(queue)
	go queue.Start(ctx)

	retriever := service.NewRetrievalService(embeddings, chunkRepo, 5)

	chatSvc := service.NewChatService(chatSessionRepo, messageRepo, retriever, ai, auditLog, service.ChatConfig{
		ChatModel:  "fake-chat",
		TitleModel: "fake-title",
	})

	authSvc := service.NewAuthService(userSessionRepo, uuidGen)

	cfg := server.RouterConfig{
		SessionValidator: authSvc,
		DocumentHandler:  handlers.NewDocumentHandler(docSvc, 10*1024*1024),
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		SessionHandler:   handlers.NewSessionHandler(authSvc),
	}

	router := server.NewRouter(cfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		queue.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}, queue
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// fakeAIClient stands in for the OpenAI API. Embeddings are deterministic
// per input text so semantic search stays meaningful across upload and
// query, and completions echo the last user message.
type fakeAIClient struct {
	mu          sync.Mutex
	completions int
}

func (f *fakeAIClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 1536)
	h := fnv.New32a()
	h.Write([]byte(text))
	vec[int(h.Sum32())%1536] = 1.0
	return vec, nil
}

func (f *fakeAIClient) CreateCompletion(ctx context.Context, req openai.CompletionRequest) (*openai.Completion, error) {
	f.mu.Lock()
	f.completions++
	f.mu.Unlock()

	var lastUser string
	for _, m := range req.Messages {
		if m.Role == "user" {
			lastUser = m.Content
		}
	}

	return &openai.Completion{
		Text:   "Antwoord op: " + lastUser,
		Tokens: 12,
		Model:  req.Model,
	}, nil
}

func (f *fakeAIClient) CompletionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completions
}
