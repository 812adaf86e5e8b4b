package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaku/application/queries"
	"kaku/infrastructure/config"
	"kaku/infrastructure/di"
	"kaku/interfaces/http/rest/handlers"
	"kaku/pkg/auth"
	pkgerrors "kaku/pkg/errors"
)

const testSecret = "test-secret"

type client struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newClient(t *testing.T, mutate func(*config.Config)) *client {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.EnableMetrics = true
	if mutate != nil {
		mutate(cfg)
	}
	container, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, container.Start(context.Background()))

	server := httptest.NewServer(container.Router)
	t.Cleanup(func() {
		server.Close()
		cleanup()
	})
	return &client{t: t, server: server}
}

func (c *client) do(method, path string, body interface{}) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *client) expect(resp *http.Response, status int, dst interface{}) {
	c.t.Helper()
	if !assert.Equal(c.t, status, resp.StatusCode) {
		var e pkgerrors.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		c.t.Logf("error body: %+v", e)
		return
	}
	if dst != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(dst))
	}
}

func (c *client) errorType(resp *http.Response) string {
	c.t.Helper()
	var e pkgerrors.ErrorResponse
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&e))
	return e.Type
}

func (c *client) scribe() string {
	var out handlers.CreatedResponse
	c.expect(c.do(http.MethodPost, "/api/v1/scribes", handlers.RegisterScribeRequest{
		OrganizationID: uuid.NewString(),
		DisplayName:    "Ada",
	}), http.StatusCreated, &out)
	return out.ID
}

func (c *client) project(universeID, name string) handlers.CreatedResponse {
	var out handlers.CreatedResponse
	c.expect(c.do(http.MethodPost, "/api/v1/projects", handlers.CreateProjectRequest{
		UniverseID: universeID,
		Name:       name,
	}), http.StatusCreated, &out)
	return out
}

func (c *client) thought(projectID, kind string, req handlers.CreateThoughtRequest) string {
	var out handlers.CreatedResponse
	c.expect(c.do(http.MethodPost, "/api/v1/projects/"+projectID+"/"+kind, req), http.StatusCreated, &out)
	return out.ID
}

func TestHealthReadyMetrics(t *testing.T) {
	c := newClient(t, nil)

	c.expect(c.do(http.MethodGet, "/health", nil), http.StatusOK, nil)
	c.expect(c.do(http.MethodGet, "/ready", nil), http.StatusOK, nil)

	resp := c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProjects(t *testing.T) {
	c := newClient(t, nil)
	universe := uuid.NewString()

	created := c.project(universe, "Café Society")
	assert.Equal(t, "cafe-society", created.Slug)

	t.Run("duplicate name conflicts", func(t *testing.T) {
		resp := c.do(http.MethodPost, "/api/v1/projects", handlers.CreateProjectRequest{UniverseID: universe, Name: "Café Society"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("get", func(t *testing.T) {
		var view queries.ProjectView
		c.expect(c.do(http.MethodGet, "/api/v1/projects/"+created.ID, nil), http.StatusOK, &view)
		assert.Equal(t, "Café Society", view.Name)
		assert.Equal(t, universe, view.UniverseID)
	})

	t.Run("unknown is not found", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/v1/projects/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("list by universe", func(t *testing.T) {
		c.project(universe, "Almanac")
		var list handlers.ListResponse[queries.ProjectView]
		c.expect(c.do(http.MethodGet, "/api/v1/universes/"+universe+"/projects", nil), http.StatusOK, &list)
		require.Len(t, list.Items, 2)
		assert.Equal(t, "Almanac", list.Items[0].Name)
	})

	t.Run("locked project rejects notes", func(t *testing.T) {
		scribe := c.scribe()
		c.expect(c.do(http.MethodPost, "/api/v1/projects/"+created.ID+"/lock", nil), http.StatusNoContent, nil)

		resp := c.do(http.MethodPost, "/api/v1/projects/"+created.ID+"/notes", handlers.CreateNoteRequest{
			ScribeID:   scribe,
			ImportedAt: time.Now(),
			Content:    "late",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		c.expect(c.do(http.MethodPost, "/api/v1/projects/"+created.ID+"/unlock", nil), http.StatusNoContent, nil)
		resp = c.do(http.MethodPost, "/api/v1/projects/"+created.ID+"/notes", handlers.CreateNoteRequest{
			ScribeID:   scribe,
			ImportedAt: time.Now(),
			Content:    "on time",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})
}

func TestNotes(t *testing.T) {
	c := newClient(t, nil)
	project := c.project(uuid.NewString(), "Archive").ID
	scribe := c.scribe()

	var created handlers.CreatedResponse
	c.expect(c.do(http.MethodPost, "/api/v1/projects/"+project+"/notes", handlers.CreateNoteRequest{
		ScribeID:   scribe,
		ImportedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Content:    "from the archive",
		Citations:  []string{"box 4"},
	}), http.StatusCreated, &created)

	var note queries.PoIView
	c.expect(c.do(http.MethodGet, "/api/v1/notes/"+created.ID, nil), http.StatusOK, &note)
	assert.Equal(t, "note", note.Variant)
	assert.Equal(t, []string{"box 4"}, note.Citations)

	t.Run("a note is not a thought", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/v1/thoughts/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("linking from a thought to a note is rejected", func(t *testing.T) {
		thought := c.thought(project, "thoughts", handlers.CreateThoughtRequest{ScribeID: scribe, Content: "t"})
		resp := c.do(http.MethodPost, "/api/v1/thoughts/"+thought+"/links", handlers.LinkRequest{ToID: created.ID})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("delete scratches", func(t *testing.T) {
		c.expect(c.do(http.MethodDelete, "/api/v1/notes/"+created.ID, nil), http.StatusNoContent, nil)

		var got queries.PoIView
		c.expect(c.do(http.MethodGet, "/api/v1/notes/"+created.ID, nil), http.StatusOK, &got)
		assert.True(t, got.Scratched)

		var list handlers.ListResponse[queries.PoIView]
		c.expect(c.do(http.MethodGet, "/api/v1/projects/"+project+"/notes", nil), http.StatusOK, &list)
		assert.Empty(t, list.Items)
		c.expect(c.do(http.MethodGet, "/api/v1/projects/"+project+"/notes?include_scratched=true", nil), http.StatusOK, &list)
		assert.Len(t, list.Items, 1)
	})

	t.Run("unknown project", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/v1/projects/"+uuid.NewString()+"/notes", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRequestValidation(t *testing.T) {
	c := newClient(t, nil)
	project := c.project(uuid.NewString(), "Checks").ID

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"unknown field", "/api/v1/projects", map[string]string{"universe_id": uuid.NewString(), "name": "x", "colour": "red"}},
		{"missing universe", "/api/v1/projects", map[string]string{"name": "x"}},
		{"empty content", "/api/v1/projects/" + project + "/thoughts", handlers.CreateThoughtRequest{ScribeID: uuid.NewString(), Content: ""}},
		{"bad category", "/api/v1/projects/" + project + "/thoughts", handlers.CreateThoughtRequest{ScribeID: uuid.NewString(), Content: "x", Categories: []string{"A..b"}}},
		{"bad project id", "/api/v1/projects/nope/thoughts", handlers.CreateThoughtRequest{ScribeID: uuid.NewString(), Content: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := c.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, string(pkgerrors.ErrorTypeValidation), c.errorType(resp))
		})
	}

	t.Run("bad search parameter", func(t *testing.T) {
		resp := c.do(http.MethodGet, "/api/v1/projects/"+project+"/search?limit=many", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestThoughtLife(t *testing.T) {
	c := newClient(t, nil)
	project := c.project(uuid.NewString(), "Life").ID
	scribe := c.scribe()

	root := c.thought(project, "thoughts", handlers.CreateThoughtRequest{
		ScribeID:   scribe,
		Content:    "Octopuses have three hearts",
		Categories: []string{"biology.marine.cephalopods"},
		Tags:       []string{"ocean"},
	})
	question := c.thought(project, "questions", handlers.CreateThoughtRequest{
		ScribeID: scribe,
		Content:  "Why three hearts?",
		ParentID: root,
		Links:    []string{root},
	})
	answer := c.thought(project, "thoughts", handlers.CreateThoughtRequest{
		ScribeID: scribe,
		Content:  "Two pump blood through the gills",
		ParentID: question,
	})

	t.Run("forest traversal", func(t *testing.T) {
		var children handlers.ListResponse[queries.PoIView]
		c.expect(c.do(http.MethodGet, "/api/v1/thoughts/"+root+"/children", nil), http.StatusOK, &children)
		require.Len(t, children.Items, 1)
		assert.Equal(t, question, children.Items[0].ID)

		var ancestors handlers.ListResponse[queries.PoIView]
		c.expect(c.do(http.MethodGet, "/api/v1/thoughts/"+answer+"/ancestors", nil), http.StatusOK, &ancestors)
		require.Len(t, ancestors.Items, 2)
		assert.Equal(t, question, ancestors.Items[0].ID)
		assert.Equal(t, root, ancestors.Items[1].ID)
	})

	t.Run("links are directional", func(t *testing.T) {
		c.expect(c.do(http.MethodPost, "/api/v1/thoughts/"+answer+"/links", handlers.LinkRequest{ToID: root}), http.StatusNoContent, nil)

		var links queries.LinksView
		c.expect(c.do(http.MethodGet, "/api/v1/thoughts/"+root+"/links", nil), http.StatusOK, &links)
		assert.Empty(t, links.From)
		assert.ElementsMatch(t, []string{question, answer}, links.To)
	})

	t.Run("tags and categories", func(t *testing.T) {
		c.expect(c.do(http.MethodPost, "/api/v1/thoughts/"+answer+"/tags", handlers.TagsRequest{Tags: []string{"Gills"}}), http.StatusNoContent, nil)
		c.expect(c.do(http.MethodPost, "/api/v1/thoughts/"+answer+"/categories", handlers.CategoriesRequest{
			Categories: []string{"biology.marine"},
		}), http.StatusNoContent, nil)

		var result queries.SearchResult
		c.expect(c.do(http.MethodGet, "/api/v1/projects/"+project+"/search?tag=gills", nil), http.StatusOK, &result)
		require.Len(t, result.Items, 1)
		assert.Equal(t, answer, result.Items[0].ID)

		var tree queries.CategoryTree
		c.expect(c.do(http.MethodGet, "/api/v1/projects/"+project+"/categories?prefix=biology", nil), http.StatusOK, &tree)
		assert.NotEmpty(t, tree.Nodes)
	})

	t.Run("category subtree search", func(t *testing.T) {
		var result queries.SearchResult
		c.expect(c.do(http.MethodGet, "/api/v1/projects/"+project+"/search?category=biology.marine", nil), http.StatusOK, &result)
		ids := make([]string, 0, len(result.Items))
		for _, v := range result.Items {
			ids = append(ids, v.ID)
		}
		assert.ElementsMatch(t, []string{root, answer}, ids)
	})

	t.Run("text search with explain", func(t *testing.T) {
		var result queries.SearchResult
		c.expect(c.do(http.MethodGet, "/api/v1/projects/"+project+"/search?q=three+hearts&explain=true", nil), http.StatusOK, &result)
		require.NotEmpty(t, result.Items)
		assert.NotEmpty(t, result.Plan)
		for _, v := range result.Items {
			assert.Contains(t, strings.ToLower(v.Content), "hearts")
		}
	})

	t.Run("refutation race has one winner", func(t *testing.T) {
		refuters := []string{
			c.thought(project, "thoughts", handlers.CreateThoughtRequest{ScribeID: scribe, Content: "No, one heart"}),
			c.thought(project, "thoughts", handlers.CreateThoughtRequest{ScribeID: scribe, Content: "No, four hearts"}),
		}

		statuses := make([]int, len(refuters))
		var wg sync.WaitGroup
		for i, r := range refuters {
			wg.Add(1)
			go func(i int, refuter string) {
				defer wg.Done()
				resp := c.do(http.MethodPost, "/api/v1/thoughts/"+root+"/refutation", handlers.RefuteRequest{RefuterID: refuter})
				statuses[i] = resp.StatusCode
			}(i, r)
		}
		wg.Wait()

		assert.ElementsMatch(t, []int{http.StatusNoContent, http.StatusConflict}, statuses)

		var got queries.PoIView
		c.expect(c.do(http.MethodGet, "/api/v1/thoughts/"+root, nil), http.StatusOK, &got)
		assert.Contains(t, refuters, got.RefutedBy)
	})

	t.Run("scratched thought leaves search but stays resolvable", func(t *testing.T) {
		c.expect(c.do(http.MethodDelete, "/api/v1/thoughts/"+answer, nil), http.StatusNoContent, nil)

		var result queries.SearchResult
		c.expect(c.do(http.MethodGet, "/api/v1/projects/"+project+"/search?tag=gills", nil), http.StatusOK, &result)
		assert.Empty(t, result.Items)

		var got queries.PoIView
		c.expect(c.do(http.MethodGet, "/api/v1/thoughts/"+answer, nil), http.StatusOK, &got)
		assert.True(t, got.Scratched)

		var links queries.LinksView
		c.expect(c.do(http.MethodGet, "/api/v1/thoughts/"+root+"/links", nil), http.StatusOK, &links)
		assert.Contains(t, links.To, answer)
	})
}

func TestAuthentication(t *testing.T) {
	c := newClient(t, func(cfg *config.Config) {
		cfg.AuthEnabled = true
		cfg.JWTSecret = testSecret
	})

	resp := c.do(http.MethodGet, "/api/v1/universes/"+uuid.NewString()+"/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	v, err := auth.NewValidator(auth.Config{Secret: testSecret, Issuer: "kaku"})
	require.NoError(t, err)

	scribe := c.withToken(v, uuid.NewString()).scribe()
	c.withToken(v, scribe)
	project := c.project(uuid.NewString(), "Signed").ID

	t.Run("scribe defaults to the token subject", func(t *testing.T) {
		id := c.thought(project, "thoughts", handlers.CreateThoughtRequest{Content: "signed thought"})

		var got queries.PoIView
		c.expect(c.do(http.MethodGet, "/api/v1/thoughts/"+id, nil), http.StatusOK, &got)
		assert.Equal(t, scribe, got.ScribeID)
	})

	t.Run("health stays public", func(t *testing.T) {
		c.token = ""
		c.expect(c.do(http.MethodGet, "/health", nil), http.StatusOK, nil)
	})
}

func (c *client) withToken(v *auth.Validator, scribeID string) *client {
	c.t.Helper()
	token, err := v.Issue(scribeID, uuid.NewString(), time.Hour)
	require.NoError(c.t, err)
	c.token = token
	return c
}

func TestRateLimit(t *testing.T) {
	c := newClient(t, func(cfg *config.Config) {
		cfg.RateLimitRPS = 0.001
		cfg.RateLimitBurst = 1
	})

	path := "/api/v1/universes/" + uuid.NewString() + "/projects"
	c.expect(c.do(http.MethodGet, path, nil), http.StatusOK, nil)
	resp := c.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
