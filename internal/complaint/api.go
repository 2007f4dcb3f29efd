// Package complaint binds the complaint endpoints of the backend: creation
// with an optional image, the student and admin lists, search, status
// changes, assignment and deletion.
package complaint

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/endpoint"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/querycache"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	TagComplaints = "Complaints"
	TagComplaint  = "Complaint"
)

// Endpoint names double as cache keys and live-stream identifiers.
const (
	EndpointCreate       = "createComplaint"
	EndpointMine         = "getMyComplaints"
	EndpointAll          = "getAllComplaints"
	EndpointUpdateStatus = "updateComplaintStatus"
	EndpointDelete       = "deleteComplaint"
	EndpointAssign       = "assignComplaint"
	EndpointSearch       = "searchComplaints"
)

var (
	domainTag = querycache.DomainTag(TagComplaints)

	mineDef   = querycache.QueryDef{Endpoint: EndpointMine, Provides: endpoint.Provide(domainTag)}
	allDef    = querycache.QueryDef{Endpoint: EndpointAll, Provides: endpoint.Provide(domainTag)}
	searchDef = querycache.QueryDef{Endpoint: EndpointSearch, Provides: endpoint.Provide(domainTag)}
)

func entityTag(id string) querycache.Tag { return querycache.EntityTag(TagComplaint, id) }

var (
	ErrMissingID     = errors.New("complaint: id is required")
	ErrInvalidStatus = errors.New("complaint: unknown status")
	ErrMissingTitle  = errors.New("complaint: title is required")
	ErrBadCategory   = errors.New("complaint: unknown category")
)

// API is the complaint slice for one session.
type API struct {
	endpoint.Base
}

func New(client endpoint.Doer, cache *querycache.Cache) *API {
	return &API{Base: endpoint.Base{Client: client, Cache: cache}}
}

// CreateInput is the multipart payload of a new complaint.
type CreateInput struct {
	Title       string
	Description string
	Category    models.ComplaintCategory
	Landmark    string
	Image       *apiclient.File
}

func (in CreateInput) payload() map[string]any {
	p := map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"category":    string(in.Category),
		"image":       in.Image,
	}
	if in.Landmark != "" {
		p["landmark"] = in.Landmark
	}
	return p
}

// Create posts a new complaint. Every list is refreshed afterwards.
func (a *API) Create(ctx context.Context, in CreateInput) (*models.Complaint, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrMissingTitle
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrBadCategory, in.Category)
	}
	form, err := apiclient.BuildForm(in.payload(), "image")
	if err != nil {
		return nil, err
	}
	return endpoint.Mutate[models.Complaint](ctx, a.Base, EndpointCreate,
		[]querycache.Tag{domainTag},
		apiclient.Request{Method: http.MethodPost, Path: "/complaints", Form: form})
}

func (a *API) mineRequest() apiclient.Request {
	return apiclient.Request{Method: http.MethodGet, Path: "/my-complaints"}
}

func (a *API) allRequest() apiclient.Request {
	return apiclient.Request{Method: http.MethodGet, Path: "/all-complaints"}
}

func (a *API) searchRequest(query string) apiclient.Request {
	return apiclient.Request{Method: http.MethodGet, Path: "/search-complaints", Query: url.Values{"query": {query}}}
}

// Mine lists the caller's own complaints.
func (a *API) Mine(ctx context.Context) ([]models.Complaint, error) {
	return endpoint.List[models.Complaint](ctx, a.Base, mineDef, nil, a.mineRequest())
}

// All lists every complaint (admin views).
func (a *API) All(ctx context.Context) ([]models.Complaint, error) {
	return endpoint.List[models.Complaint](ctx, a.Base, allDef, nil, a.allRequest())
}

func (a *API) Search(ctx context.Context, query string) ([]models.Complaint, error) {
	return endpoint.List[models.Complaint](ctx, a.Base, searchDef, query, a.searchRequest(query))
}

// UpdateStatus sets a complaint's status. Only the value is checked here; the
// backend decides whether the caller may make the change.
func (a *API) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus) (*models.Complaint, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return endpoint.Mutate[models.Complaint](ctx, a.Base, EndpointUpdateStatus,
		[]querycache.Tag{domainTag, entityTag(id)},
		apiclient.Request{Method: http.MethodPost, Path: "/update-complaint-status",
			JSON: map[string]string{"complaintId": id, "status": string(status)}})
}

// Assign hands a complaint to an admin.
func (a *API) Assign(ctx context.Context, id, adminID string) (*models.Complaint, error) {
	if id == "" || adminID == "" {
		return nil, ErrMissingID
	}
	return endpoint.Mutate[models.Complaint](ctx, a.Base, EndpointAssign,
		[]querycache.Tag{domainTag, entityTag(id)},
		apiclient.Request{Method: http.MethodPost, Path: "/assign-complaint",
			JSON: map[string]string{"complaintId": id, "assignedTo": adminID}})
}

func (a *API) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	_, err := endpoint.Mutate[models.Complaint](ctx, a.Base, EndpointDelete,
		[]querycache.Tag{domainTag, entityTag(id)},
		apiclient.Request{Method: http.MethodDelete, Path: "/complaints/" + apiclient.PathID(id)})
	return err
}

// Queries indexes the read endpoints for the live stream.
func (a *API) Queries() endpoint.Index {
	return endpoint.Index{
		EndpointMine: endpoint.NoArg(func() endpoint.Binding {
			return endpoint.Binding{Def: mineDef, Fetch: endpoint.ListFetcher[models.Complaint](a.Base, a.mineRequest())}
		}),
		EndpointAll: endpoint.NoArg(func() endpoint.Binding {
			return endpoint.Binding{Def: allDef, Fetch: endpoint.ListFetcher[models.Complaint](a.Base, a.allRequest())}
		}),
		EndpointSearch: endpoint.StringArg(func(q string) endpoint.Binding {
			return endpoint.Binding{Def: searchDef, Arg: q, Fetch: endpoint.ListFetcher[models.Complaint](a.Base, a.searchRequest(q))}
		}),
	}
}
