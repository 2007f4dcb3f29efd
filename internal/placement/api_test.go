package placement_test

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/placement"
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

type backend struct {
	mu         sync.Mutex
	drive      models.Placement
	registered bool
	resume     string
	fields     map[string]string
}

func setup(t *testing.T) (*upstreamtest.Server, *backend, *placement.API, *querycache.Cache) {
	t.Helper()
	srv := upstreamtest.New(t)
	b := &backend{drive: models.Placement{ID: "p1", CompanyName: "Acme", JobTitle: "SDE Intern", Status: models.PlacementOpen}}

	view := func() models.Placement {
		p := b.drive
		p.RegistrationStatus = models.NotRegistered
		if b.registered {
			p.RegistrationStatus = models.RegistrationRegistered
		}
		return p
	}

	srv.Reply(http.MethodGet, "/placement/p1", func(*http.Request) (int, any) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return http.StatusOK, upstreamtest.Envelope(view())
	})
	srv.Reply(http.MethodGet, "/placement/student/all", func(*http.Request) (int, any) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return http.StatusOK, map[string]any{"success": true, "data": map[string]any{"data": []models.Placement{view()}}}
	})
	srv.Reply(http.MethodPost, "/placement/p1/register", func(r *http.Request) (int, any) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return http.StatusBadRequest, map[string]string{"message": err.Error()}
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.registered {
			return http.StatusBadRequest, map[string]string{"message": "Already registered"}
		}
		f, _, err := r.FormFile("resume")
		if err != nil {
			return http.StatusBadRequest, map[string]string{"message": "Resume is required"}
		}
		data, _ := io.ReadAll(f)
		b.resume = string(data)
		b.fields = map[string]string{"cgpa": r.FormValue("cgpa")}
		b.registered = true
		return http.StatusOK, map[string]any{"success": true, "message": "Registered"}
	})
	srv.Reply(http.MethodPost, "/placement/p1/update", func(r *http.Request) (int, any) {
		var in placement.UpdateInput
		json.NewDecoder(r.Body).Decode(&in)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.drive.Updates = append(b.drive.Updates, models.PlacementUpdate{UpdateText: in.UpdateText, RoundType: in.RoundType})
		return http.StatusOK, upstreamtest.Envelope(b.drive)
	})
	srv.Reply(http.MethodPost, "/placement/p1/update-status", func(r *http.Request) (int, any) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.drive.Status = models.PlacementStatus(body["status"])
		return http.StatusOK, upstreamtest.Envelope(b.drive)
	})

	cache := querycache.New()
	return srv, b, placement.New(srv.Client(t), cache), cache
}

func subscribeDetails(t *testing.T, api *placement.API, cache *querycache.Cache, id string) *querycache.Subscription {
	t.Helper()
	raw, _ := json.Marshal(id)
	binding, err := api.Queries().Bind(placement.EndpointDetails, raw)
	require.NoError(t, err)
	sub, err := cache.Subscribe(binding.Def, binding.Arg, binding.Fetch)
	require.NoError(t, err)
	t.Cleanup(sub.Unsubscribe)
	return sub
}

func TestRegister_RefetchesDetailsWithNewStatus(t *testing.T) {
	srv, b, api, cache := setup(t)
	sub := subscribeDetails(t, api, cache, "p1")
	cache.Wait()

	snap, ok := sub.Snapshot()
	require.True(t, ok)
	require.Equal(t, models.NotRegistered, snap.Data.(*models.Placement).StudentStatus())

	_, err := api.Register(context.Background(), "p1", placement.RegisterInput{
		Fields: map[string]string{"cgpa": "8.4"},
		Resume: &apiclient.File{Filename: "cv.pdf", ContentType: "application/pdf", Data: strings.NewReader("%PDF")},
	})
	require.NoError(t, err)
	cache.Wait()

	assert.Equal(t, 2, srv.Calls(http.MethodGet, "/placement/p1"))
	snap, _ = sub.Snapshot()
	assert.Equal(t, models.RegistrationRegistered, snap.Data.(*models.Placement).StudentStatus())

	b.mu.Lock()
	assert.Equal(t, "%PDF", b.resume)
	assert.Equal(t, "8.4", b.fields["cgpa"])
	b.mu.Unlock()

	_, err = api.Register(context.Background(), "p1", placement.RegisterInput{
		Resume: &apiclient.File{Filename: "cv.pdf", Data: strings.NewReader("%PDF")},
	})
	require.Error(t, err)
	assert.Equal(t, "Already registered", apiclient.MessageOf(err, ""))
	cache.Wait()
	assert.Equal(t, 2, srv.Calls(http.MethodGet, "/placement/p1"), "failed mutation leaves the cache alone")
}

func TestPostUpdate_DefaultsRoundTypeAndRefreshesLists(t *testing.T) {
	srv, b, api, cache := setup(t)
	list, err := api.StudentAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1, "nested data.data is unwrapped")

	binding, err := api.Queries().Bind(placement.EndpointStudentAll, nil)
	require.NoError(t, err)
	sub, err := cache.Subscribe(binding.Def, binding.Arg, binding.Fetch)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	cache.Wait()
	require.Equal(t, 1, srv.Calls(http.MethodGet, "/placement/student/all"))

	_, err = api.PostUpdate(context.Background(), "p1", placement.UpdateInput{UpdateText: "Round 1 on Friday"})
	require.NoError(t, err)
	cache.Wait()

	assert.Equal(t, 2, srv.Calls(http.MethodGet, "/placement/student/all"))
	b.mu.Lock()
	require.Len(t, b.drive.Updates, 1)
	assert.Equal(t, models.RoundCommon, b.drive.Updates[0].RoundType)
	b.mu.Unlock()
}

func TestUpdateStatus(t *testing.T) {
	_, _, api, _ := setup(t)

	p, err := api.UpdateStatus(context.Background(), "p1", models.PlacementClosed)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.PlacementClosed, p.Status)

	_, err = api.UpdateStatus(context.Background(), "p1", "archived")
	assert.ErrorIs(t, err, placement.ErrInvalidStatus)
}

func TestDetails_MissingDriveIsNotFound(t *testing.T) {
	_, _, api, _ := setup(t)

	_, err := api.Details(context.Background(), "p404")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apiclient.StatusOf(err))

	_, err = api.Details(context.Background(), "")
	assert.ErrorIs(t, err, placement.ErrMissingID)
}

func TestValidation(t *testing.T) {
	srv, _, api, _ := setup(t)
	ctx := context.Background()

	_, err := api.Create(ctx, placement.CreateInput{CompanyName: "Acme"})
	assert.ErrorIs(t, err, placement.ErrMissingField)
	_, err = api.PostUpdate(ctx, "p1", placement.UpdateInput{UpdateText: "x", RoundType: "final"})
	assert.ErrorIs(t, err, placement.ErrInvalidRoundType)
	_, err = api.PostUpdate(ctx, "p1", placement.UpdateInput{})
	assert.ErrorIs(t, err, placement.ErrMissingField)
	_, err = api.AssignAdmin(ctx, "p1", "")
	assert.ErrorIs(t, err, placement.ErrMissingID)

	assert.Equal(t, 0, srv.Calls(http.MethodPost, "/placement/p1/update"))
}

func TestQueriesIndex(t *testing.T) {
	_, _, api, _ := setup(t)

	assert.Equal(t, []string{
		placement.EndpointAllAdmins,
		placement.EndpointAdminAll,
		placement.EndpointDetails,
		placement.EndpointStudentAll,
	}, api.Queries().Names())

	_, err := api.Queries().Bind(placement.EndpointDetails, json.RawMessage(`42`))
	assert.Error(t, err)
}
