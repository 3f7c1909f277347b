package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/torosent/issuecrank/internal/httpclient"
)

type tokenAuth struct{}

func (tokenAuth) InjectHeader(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer secret")
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	builder, err := httpclient.NewRequestBuilder(srv.URL+"/api", tokenAuth{})
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	return NewClient(srv.Client(), builder)
}

func TestMeSendsBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		_, _ = io.WriteString(w, `{"id":"u-1","username":"alice"}`)
	})

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if user.ID != "u-1" || user.Username != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestProjectDecodesPreferences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("include") != "organisation" {
			t.Errorf("expected include=organisation, got %q", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `{"id":"p-1","key":"CORE","name":"Core","preferences":{"issueType":"task","estimateType":"points"}}`)
	})

	project, err := client.Project(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if project.Preferences == nil || project.Preferences.EstimateType != EstimatePoints {
		t.Fatalf("unexpected preferences %+v", project.Preferences)
	}
}

func TestTypedIssueSnapshotQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		want := map[string]string{
			"type":     "epic",
			"state":    "active",
			"page":     "1",
			"per_page": "50",
			"sort":     "-createdAt",
			"include":  typedIssueInclude,
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("query %s = %q, want %q", k, q.Get(k), v)
			}
		}
		_, _ = io.WriteString(w, `[{"id":"e-1","key":"CORE-1","projectId":"p-1","type":"epic","title":"Epic"}]`)
	})

	epics, err := client.Epics(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Epics() error = %v", err)
	}
	if len(epics) != 1 || epics[0].ID != "e-1" {
		t.Fatalf("unexpected epics %+v", epics)
	}
}

func TestMembersPathKeepsTrailingSlash(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/iam/projects/p-1/members/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("status") != "active" {
			t.Errorf("expected status=active")
		}
		_, _ = io.WriteString(w, `[{"id":"m-1","user":{"id":"u-1","username":"a"}},{"id":"m-2"}]`)
	})

	members, err := client.Members(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Members() error = %v", err)
	}
	if len(members) != 2 || members[0].User == nil || members[1].User != nil {
		t.Fatalf("unexpected members %+v", members)
	}
}

func TestIssuesDecodesPageEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("per_page") != "10" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if !strings.HasSuffix(r.URL.Query().Get("include"), ",meta") {
			t.Errorf("listing must request meta, got %q", r.URL.Query().Get("include"))
		}
		_, _ = io.WriteString(w, `{"meta":{"page":2,"perPage":10,"totalRecords":15,"totalPages":2},"data":[{"id":"i-1","key":"CORE-11","projectId":"p-1","type":"task","title":"t"}]}`)
	})

	page, err := client.Issues(context.Background(), "p-1", 2, 10)
	if err != nil {
		t.Fatalf("Issues() error = %v", err)
	}
	if page.Meta.TotalPages != 2 || page.Meta.TotalRecords != 15 || len(page.Data) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestCreateIssuePostsJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/projects/p-1/issues" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["title"] != "Hello" {
			t.Errorf("unexpected title %v", body["title"])
		}
		if _, ok := body["labels"]; !ok {
			t.Errorf("labels must always be sent")
		}
		if _, ok := body["assigneeId"]; ok {
			t.Errorf("absent assignee must be omitted")
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"i-9","key":"CORE-9","projectId":"p-1","type":"task","title":"Hello"}`)
	})

	issue, err := client.CreateIssue(context.Background(), "p-1", CreateIssueRequest{Type: "task", Title: "Hello", Labels: []string{}})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if issue.Key != "CORE-9" {
		t.Fatalf("unexpected issue %+v", issue)
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		check     func(error) bool
		retryable bool
	}{
		{
			name: "status with message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = io.WriteString(w, `{"error":{"message":"title is required"}}`)
			},
			check: func(err error) bool {
				var se *HTTPStatusError
				return errors.As(err, &se) && se.StatusCode == 422 && se.Message == "title is required"
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
			check: func(err error) bool {
				var se *HTTPStatusError
				return errors.As(err, &se) && se.HTTPStatus() == 502
			},
			retryable: true,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"id":`)
			},
			check: func(err error) bool {
				var de *DecodeError
				return errors.As(err, &de)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.Me(context.Background())
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error %T: %v", err, err)
			}
			if ShouldRetry(err) != tt.retryable {
				t.Fatalf("ShouldRetry() = %v, want %v", ShouldRetry(err), tt.retryable)
			}
		})
	}
}

func TestTransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	builder, err := httpclient.NewRequestBuilder(url, nil)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	_, err = NewClient(http.DefaultClient, builder).Me(context.Background())

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if !ShouldRetry(err) {
		t.Fatal("transport errors should be retried")
	}
	if !ShouldRetryCreate(err) {
		t.Fatal("a refused connection never reached the server and should be retried")
	}
}

func TestShouldRetryCreate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"too many requests", &HTTPStatusError{Op: "create issue", StatusCode: 429}, true},
		{"bad gateway", &HTTPStatusError{Op: "create issue", StatusCode: 502}, false},
		{"gateway timeout", &HTTPStatusError{Op: "create issue", StatusCode: 504}, false},
		{"read after send", &TransportError{Op: "create issue", Err: io.ErrUnexpectedEOF}, false},
		{"dial refused", &TransportError{Op: "create issue", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}, true},
		{"decode", &DecodeError{Op: "create issue", Err: errors.New("bad json")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetryCreate(tt.err); got != tt.want {
				t.Fatalf("ShouldRetryCreate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessageTruncates(t *testing.T) {
	long := strings.Repeat("x", 400)
	got := errorMessage([]byte(long))
	if len(got) != maxMessageLen+3 {
		t.Fatalf("expected truncated message, got %d chars", len(got))
	}
	if errorMessage([]byte(`{"message":"nope"}`)) != "nope" {
		t.Fatal("expected message field")
	}
}
