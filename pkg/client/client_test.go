package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/naveenspark/hogwarts/pkg/domain"
)

// fakeAuth is a static token source that counts 401 notifications.
type fakeAuth struct {
	mu           sync.Mutex
	token        string
	unauthorized int
}

func (f *fakeAuth) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAuth) Unauthorized() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthorized++
	f.token = ""
}

func (f *fakeAuth) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unauthorized
}

func newTestClient(url, token string) (*Client, *fakeAuth) {
	auth := &fakeAuth{token: token}
	return New(url, WithAuthenticator(auth)), auth
}

func TestMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "not authenticated"}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"user": domain.User{ID: "u1", Email: "harry@hogwarts.edu", Username: "harry"},
		})
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "test-token")
	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if me.Username != "harry" {
		t.Errorf("Username = %q, want %q", me.Username, "harry")
	}
}

func TestMe_DataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"status": true,
			"data":   map[string]any{"id": 12, "email": "ron@hogwarts.edu"},
		})
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "tok")
	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if me.ID != "12" || me.Email != "ron@hogwarts.edu" {
		t.Errorf("Me() = %+v, want id 12 / ron", me)
	}
}

func TestUnauthorizedNotifiesAuthenticator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"}) //nolint:errcheck
	}))
	defer srv.Close()

	c, auth := newTestClient(srv.URL, "stale-token")
	_, err := c.ListTransactions(context.Background(), 1, 10)
	if err == nil {
		t.Fatal("expected error for unauthorized request")
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("errors.Is(err, ErrUnauthorized) = false for %v", err)
	}
	if errors.Is(err, ErrRequestFailed) {
		t.Error("401 must not match ErrRequestFailed")
	}
	if got := err.Error(); !strings.Contains(got, "HTTP 401") {
		t.Errorf("error = %q, want it to contain 'HTTP 401'", got)
	}
	if auth.calls() != 1 {
		t.Errorf("Unauthorized() called %d times, want 1", auth.calls())
	}
}

func TestLogin_BadCredentialsSkipsInterceptor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login sent Authorization header %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid email or password"}) //nolint:errcheck
	}))
	defer srv.Close()

	c, auth := newTestClient(srv.URL, "existing-token")
	_, err := c.Login(context.Background(), "harry@hogwarts.edu", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
	}
	if Message(err) != "Invalid email or password" {
		t.Errorf("Message() = %q", Message(err))
	}
	if auth.calls() != 0 {
		t.Errorf("Unauthorized() called %d times for login, want 0", auth.calls())
	}
	if auth.Token() != "existing-token" {
		t.Error("failed login cleared the existing token")
	}
}

func TestLogin_ResponseShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantToken string
		wantEmail string
	}{
		{"token and user", `{"token":"t1","user":{"id":"u1","email":"harry@hogwarts.edu"}}`, "t1", "harry@hogwarts.edu"},
		{"data envelope", `{"status":true,"message":"ok","data":{"access_token":"t2","id":3,"email":"ron@hogwarts.edu"}}`, "t2", "ron@hogwarts.edu"},
		{"token only", `{"token":"t3"}`, "t3", "fallback@hogwarts.edu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
					http.NotFound(w, r)
					return
				}
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			c := New(srv.URL)
			res, err := c.Login(context.Background(), "fallback@hogwarts.edu", "secret")
			if err != nil {
				t.Fatalf("Login() error: %v", err)
			}
			if res.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", res.Token, tt.wantToken)
			}
			if res.User.Email != tt.wantEmail {
				t.Errorf("User.Email = %q, want %q", res.User.Email, tt.wantEmail)
			}
		})
	}
}

func TestLogin_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := New(srv.URL).Login(context.Background(), "a@b.co", "secret")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("error = %v, want ErrRequestFailed", err)
	}
	if got := Message(err); got != badResponseMessage {
		t.Errorf("Message() = %q, want %q", got, badResponseMessage)
	}
}

func TestUndecodableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html>proxy login</html>`)) //nolint:errcheck
	}))
	defer srv.Close()

	c, auth := newTestClient(srv.URL, "tok")
	_, err := c.GetBook(context.Background(), "b1")
	if !errors.Is(err, ErrRequestFailed) || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrRequestFailed only", err)
	}
	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("error = %T, want *ResponseError", err)
	}
	if got := Message(err); got != badResponseMessage {
		t.Errorf("Message() = %q, want %q", got, badResponseMessage)
	}
	if auth.calls() != 0 {
		t.Error("bad body reached the Authenticator")
	}

	if _, err := c.Me(context.Background()); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Me() error = %v, want ErrRequestFailed", err)
	}
}

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"data":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "")
	if _, err := c.ListTransactions(context.Background(), 0, 0); err != nil {
		t.Fatalf("ListTransactions() error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want none when signed out", gotAuth)
	}
	if _, err := uuid.Parse(gotReqID); err != nil {
		t.Errorf("X-Request-ID = %q is not a UUID: %v", gotReqID, err)
	}
}

func TestListBooks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("limit") != "10" || q.Get("q") != "potion" || q.Get("sort") != "price_asc" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(domain.BookPage{ //nolint:errcheck
			Meta: domain.PageMeta{Total: 12, Page: 2, Limit: 10},
			Data: []domain.Book{{ID: "b1", Title: "Potions 101", Price: 10000, StockQuantity: 2}},
		})
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "tok")
	page, err := c.ListBooks(context.Background(), BookQuery{Page: 2, Limit: 10, Query: "potion", Sort: domain.SortPriceAsc})
	if err != nil {
		t.Fatalf("ListBooks() error: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Title != "Potions 101" {
		t.Fatalf("ListBooks() data = %+v", page.Data)
	}
	if page.Meta.Pages != 2 {
		t.Errorf("Meta.Pages = %d, want 2 (derived from total/limit)", page.Meta.Pages)
	}
}

func TestListBooksByGenre(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books/genre/g1" {
			t.Errorf("path = %q, want /books/genre/g1", r.URL.Path)
		}
		w.Write([]byte(`{"meta":{"total":0,"page":1,"limit":10,"pages":0},"data":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "tok")
	if _, err := c.ListBooks(context.Background(), BookQuery{GenreID: "g1"}); err != nil {
		t.Fatalf("ListBooks() error: %v", err)
	}
}

func TestListGenres(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":true,"data":[{"id":"g1","name":"Potions"},{"id":"g2","name":"Charms"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "tok")
	genres, err := c.ListGenres(context.Background())
	if err != nil {
		t.Fatalf("ListGenres() error: %v", err)
	}
	if len(genres) != 2 || genres[1].Name != "Charms" {
		t.Errorf("ListGenres() = %+v", genres)
	}
}

func TestListGenres_FallsBackToBooks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/genres":
			http.NotFound(w, r)
		case "/books":
			if r.URL.Query().Get("limit") != "100" {
				t.Errorf("scan limit = %q, want 100", r.URL.Query().Get("limit"))
			}
			page := r.URL.Query().Get("page")
			books := []domain.Book{{ID: "b1", Genre: &domain.Genre{ID: "g1", Name: "Potions"}}}
			if page == "2" {
				books = []domain.Book{
					{ID: "b2", Genre: &domain.Genre{ID: "g1", Name: "Potions"}},
					{ID: "b3", Genre: &domain.Genre{ID: "g2", Name: "Charms"}},
					{ID: "b4"},
				}
			}
			json.NewEncoder(w).Encode(domain.BookPage{ //nolint:errcheck
				Meta: domain.PageMeta{Total: 150, Limit: 100, Pages: 2},
				Data: books,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "tok")
	genres, err := c.ListGenres(context.Background())
	if err != nil {
		t.Fatalf("ListGenres() error: %v", err)
	}
	if len(genres) != 2 {
		t.Fatalf("got %d genres, want 2: %+v", len(genres), genres)
	}
	if genres[0].Name != "Potions" || genres[1].Name != "Charms" {
		t.Errorf("genres = %+v", genres)
	}
}

func TestListGenres_FallbackLogsCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/books" {
			json.NewEncoder(w).Encode(domain.BookPage{Meta: domain.PageMeta{Pages: 1}}) //nolint:errcheck
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	c := New(srv.URL, WithLogger(zap.New(core)))
	if _, err := c.ListGenres(context.Background()); err != nil {
		t.Fatalf("ListGenres() error: %v", err)
	}

	entries := logs.FilterMessage("genres endpoint unavailable, scanning books").All()
	if len(entries) != 1 {
		t.Fatalf("got %d fallback entries, want 1", len(entries))
	}
	if _, ok := entries[0].ContextMap()["error"]; !ok {
		t.Errorf("fallback entry has no error field: %v", entries[0].ContextMap())
	}
}

func TestCreateTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transactions" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req domain.OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(req.Items) != 2 || req.Items[0].BookID != "b1" || req.Items[0].Quantity != 2 {
			t.Errorf("unexpected order body %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":true,"message":"created","data":{"id":"t1","items":[]}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "tok")
	tx, err := c.CreateTransaction(context.Background(), domain.OrderRequest{Items: []domain.OrderLine{
		{BookID: "b1", Quantity: 2},
		{BookID: "b2", Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("CreateTransaction() error: %v", err)
	}
	if tx.ID != "t1" {
		t.Errorf("ID = %q, want t1", tx.ID)
	}
}

func TestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "insufficient stock for Potions 101"}) //nolint:errcheck
	}))
	defer srv.Close()

	c, auth := newTestClient(srv.URL, "tok")
	_, err := c.CreateTransaction(context.Background(), domain.OrderRequest{})
	if err == nil {
		t.Fatal("expected error for 409 response")
	}
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("errors.Is(err, ErrRequestFailed) = false for %v", err)
	}
	if !IsStatus(err, http.StatusConflict) {
		t.Error("IsStatus(err, 409) = false")
	}
	if got := Message(err); got != "insufficient stock for Potions 101" {
		t.Errorf("Message() = %q", got)
	}
	if auth.calls() != 0 {
		t.Error("non-401 error reached the Authenticator")
	}
}

func TestHTTPError_PlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "boom"}) //nolint:errcheck
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "tok")
	_, err := c.Me(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if got := err.Error(); !strings.Contains(got, "boom") {
		t.Errorf("error = %q, want it to contain 'boom'", got)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, auth := newTestClient(url, "tok")
	_, err := c.GetBook(context.Background(), "b1")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("error = %v, want ErrRequestFailed", err)
	}
	if got := Message(err); got != networkErrorMessage {
		t.Errorf("Message() = %q, want %q", got, networkErrorMessage)
	}
	if auth.calls() != 0 {
		t.Error("transport error reached the Authenticator")
	}
}

func TestDeleteBook_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/books/b1" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "tok")
	if err := c.DeleteBook(context.Background(), "b1"); err != nil {
		t.Fatalf("DeleteBook() error: %v", err)
	}
}

func TestDoRequest_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(5 * time.Second) // slow server
		w.Write([]byte(`{}`))       //nolint:errcheck
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, "tok")
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	_, err := c.Me(ctx)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("errors.Is(err, context.Canceled) = false for %v", err)
	}
}
