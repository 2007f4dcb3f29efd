package complaint_test

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/complaint"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/querycache"
	"collegemate/backend/internal/upstreamtest"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend keeps complaints in memory behind the real routes.
type fakeBackend struct {
	mu         sync.Mutex
	complaints []models.Complaint
	lastImage  string
}

func setup(t *testing.T) (*upstreamtest.Server, *fakeBackend, *complaint.API, *querycache.Cache) {
	t.Helper()
	srv := upstreamtest.New(t)
	fb := &fakeBackend{complaints: []models.Complaint{{ID: "c1", Title: "Slow wifi", Category: models.CategoryWifi, Status: models.ComplaintPending}}}

	srv.Reply(http.MethodGet, "/my-complaints", func(*http.Request) (int, any) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return http.StatusOK, upstreamtest.Envelope(append([]models.Complaint(nil), fb.complaints...))
	})
	srv.Reply(http.MethodGet, "/all-complaints", func(*http.Request) (int, any) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return http.StatusOK, append([]models.Complaint(nil), fb.complaints...)
	})
	srv.Reply(http.MethodPost, "/complaints", func(r *http.Request) (int, any) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return http.StatusBadRequest, map[string]string{"message": err.Error()}
		}
		c := models.Complaint{
			ID:       "c2",
			Title:    r.FormValue("title"),
			Category: models.ComplaintCategory(r.FormValue("category")),
			Landmark: r.FormValue("landmark"),
			Status:   models.ComplaintPending,
		}
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if f, _, err := r.FormFile("image"); err == nil {
			data, _ := io.ReadAll(f)
			fb.lastImage = string(data)
			c.ImageURL = "https://cdn.example/c2.jpg"
		}
		fb.complaints = append(fb.complaints, c)
		return http.StatusCreated, upstreamtest.Envelope(c)
	})
	srv.Reply(http.MethodPost, "/update-complaint-status", func(r *http.Request) (int, any) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		fb.mu.Lock()
		defer fb.mu.Unlock()
		for i := range fb.complaints {
			if fb.complaints[i].ID == body["complaintId"] {
				fb.complaints[i].Status = models.ComplaintStatus(body["status"])
				return http.StatusOK, upstreamtest.Envelope(fb.complaints[i])
			}
		}
		return http.StatusNotFound, map[string]string{"message": "Complaint not found"}
	})
	srv.Reply(http.MethodDelete, "/complaints/c1", func(*http.Request) (int, any) {
		return http.StatusForbidden, map[string]string{"message": "Not your complaint"}
	})

	cache := querycache.New()
	return srv, fb, complaint.New(srv.Client(t), cache), cache
}

func TestCreate_RefreshesMountedList(t *testing.T) {
	srv, fb, api, cache := setup(t)

	binding, err := api.Queries().Bind(complaint.EndpointMine, nil)
	require.NoError(t, err)
	sub, err := cache.Subscribe(binding.Def, binding.Arg, binding.Fetch)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	cache.Wait()
	require.Equal(t, 1, srv.Calls(http.MethodGet, "/my-complaints"))

	created, err := api.Create(context.Background(), complaint.CreateInput{
		Title:    "Leaking tap",
		Category: models.CategoryHostel,
		Landmark: "Block B",
		Image:    &apiclient.File{Filename: "tap.jpg", ContentType: "image/jpeg", Data: strings.NewReader("JPG")},
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "c2", created.ID)
	fb.mu.Lock()
	assert.Equal(t, "JPG", fb.lastImage)
	fb.mu.Unlock()

	cache.Wait()
	assert.Equal(t, 2, srv.Calls(http.MethodGet, "/my-complaints"), "list re-issued its GET without a manual reload")

	snap, ok := sub.Snapshot()
	require.True(t, ok)
	list := snap.Data.([]models.Complaint)
	require.Len(t, list, 2)
	assert.Equal(t, "Leaking tap", list[1].Title)
}

func TestCreate_RejectsUnknownCategory(t *testing.T) {
	srv, _, api, _ := setup(t)

	for _, category := range []models.ComplaintCategory{"", "parking"} {
		_, err := api.Create(context.Background(), complaint.CreateInput{Title: "Broken gate", Category: category})
		assert.ErrorIs(t, err, complaint.ErrBadCategory, "category %q", category)
	}
	assert.Equal(t, 0, srv.Calls(http.MethodPost, "/complaints"))
}

func TestMine_AndAll_NormalizeBothShapes(t *testing.T) {
	_, _, api, _ := setup(t)
	ctx := context.Background()

	mine, err := api.Mine(ctx)
	require.NoError(t, err)
	all, err := api.All(ctx)
	require.NoError(t, err)

	assert.Equal(t, mine, all, "wrapped and bare responses normalize to the same list")
}

func TestUpdateStatus(t *testing.T) {
	srv, _, api, _ := setup(t)
	ctx := context.Background()

	_, err := api.UpdateStatus(ctx, "c1", "done")
	assert.ErrorIs(t, err, complaint.ErrInvalidStatus)
	assert.Equal(t, 0, srv.Calls(http.MethodPost, "/update-complaint-status"), "invalid values never leave the gateway")

	all, _ := api.All(ctx)
	require.Len(t, all, 1)

	updated, err := api.UpdateStatus(ctx, "c1", models.ComplaintInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintInProgress, updated.Status)

	all, err = api.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintInProgress, all[0].Status, "list is refetched after the write")
	assert.Equal(t, 2, srv.Calls(http.MethodGet, "/all-complaints"))
}

func TestDelete_FailureSurfacesServerMessage(t *testing.T) {
	_, _, api, _ := setup(t)

	err := api.Delete(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apiclient.StatusOf(err))
	assert.Equal(t, "Not your complaint", apiclient.MessageOf(err, "Something went wrong"))

	assert.ErrorIs(t, api.Delete(context.Background(), ""), complaint.ErrMissingID)
}

func TestSearch_SendsQueryAndCachesPerArgument(t *testing.T) {
	srv, _, api, _ := setup(t)
	var (
		mu   sync.Mutex
		seen []string
	)
	srv.Reply(http.MethodGet, "/search-complaints", func(r *http.Request) (int, any) {
		mu.Lock()
		seen = append(seen, r.URL.Query().Get("query"))
		mu.Unlock()
		return http.StatusOK, upstreamtest.Envelope([]models.Complaint{})
	})
	ctx := context.Background()

	for _, q := range []string{"wifi", "wifi", "mess"} {
		res, err := api.Search(ctx, q)
		require.NoError(t, err)
		assert.NotNil(t, res)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"wifi", "mess"}, seen)
}

func TestQueriesIndex(t *testing.T) {
	_, _, api, _ := setup(t)
	ix := api.Queries()

	assert.Equal(t, []string{complaint.EndpointAll, complaint.EndpointMine, complaint.EndpointSearch}, ix.Names())
	_, err := ix.Bind(complaint.EndpointSearch, json.RawMessage(`42`))
	assert.Error(t, err)
	b, err := ix.Bind(complaint.EndpointSearch, json.RawMessage(`"hostel"`))
	require.NoError(t, err)
	assert.Equal(t, "hostel", b.Arg)
}
