// Package placement binds the placement-drive endpoints: creation, the admin
// and student lists, drive details, admin assignment, the update feed, status
// changes and student registration with a resume.
package placement

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/endpoint"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/querycache"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	TagPlacements = "Placements"
	TagPlacement  = "Placement"
	TagAdmins     = "Admins"
)

const (
	EndpointCreate       = "createPlacement"
	EndpointDetails      = "getPlacementDetails"
	EndpointAdminAll     = "getAllPlacementsForAdmin"
	EndpointStudentAll   = "getStudentPlacements"
	EndpointAllAdmins    = "getAllAdmins"
	EndpointAssignAdmin  = "assignAdmin"
	EndpointPostUpdate   = "postPlacementUpdate"
	EndpointUpdateStatus = "updatePlacementStatus"
	EndpointRegister     = "registerForPlacement"
	EndpointDelete       = "deletePlacement"
)

var domainTag = querycache.DomainTag(TagPlacements)

func entityTag(id string) querycache.Tag { return querycache.EntityTag(TagPlacement, id) }

var (
	adminAllDef   = querycache.QueryDef{Endpoint: EndpointAdminAll, Provides: endpoint.Provide(domainTag)}
	studentAllDef = querycache.QueryDef{Endpoint: EndpointStudentAll, Provides: endpoint.Provide(domainTag)}
	adminsDef     = querycache.QueryDef{Endpoint: EndpointAllAdmins, Provides: endpoint.Provide(querycache.DomainTag(TagAdmins))}
	detailsDef    = querycache.QueryDef{
		Endpoint: EndpointDetails,
		Provides: func(arg any) []querycache.Tag { return []querycache.Tag{entityTag(arg.(string))} },
	}
)

var (
	ErrMissingID        = errors.New("placement: id is required")
	ErrInvalidStatus    = errors.New("placement: unknown status")
	ErrInvalidRoundType = errors.New("placement: unknown round type")
	ErrMissingField     = errors.New("placement: required field missing")
)

// API is the placement slice for one session.
type API struct {
	endpoint.Base
}

func New(client endpoint.Doer, cache *querycache.Cache) *API {
	return &API{Base: endpoint.Base{Client: client, Cache: cache}}
}

// CreateInput is the JSON body of a new drive.
type CreateInput struct {
	CompanyName         string            `json:"companyName"`
	JobTitle            string            `json:"jobTitle"`
	JobDescription      string            `json:"jobDescription,omitempty"`
	EligibilityCriteria string            `json:"eligibilityCriteria,omitempty"`
	Deadline            *models.Timestamp `json:"deadline,omitempty"`
	ApplicationLink     string            `json:"applicationLink,omitempty"`
}

func (a *API) Create(ctx context.Context, in CreateInput) (*models.Placement, error) {
	if strings.TrimSpace(in.CompanyName) == "" || strings.TrimSpace(in.JobTitle) == "" {
		return nil, fmt.Errorf("%w: companyName and jobTitle", ErrMissingField)
	}
	return endpoint.Mutate[models.Placement](ctx, a.Base, EndpointCreate,
		[]querycache.Tag{domainTag},
		apiclient.Request{Method: http.MethodPost, Path: "/placement/create", JSON: in})
}

func detailsRequest(id string) apiclient.Request {
	return apiclient.Request{Method: http.MethodGet, Path: "/placement/" + apiclient.PathID(id)}
}

func getRequest(path string) apiclient.Request {
	return apiclient.Request{Method: http.MethodGet, Path: path}
}

// Details returns one drive, including the caller's registrationStatus when
// the caller is a student. A nil result means the drive does not exist.
func (a *API) Details(ctx context.Context, id string) (*models.Placement, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	return endpoint.Entity[models.Placement](ctx, a.Base, detailsDef, id, detailsRequest(id))
}

// AdminAll lists every drive for admin views.
func (a *API) AdminAll(ctx context.Context) ([]models.Placement, error) {
	return endpoint.List[models.Placement](ctx, a.Base, adminAllDef, nil, getRequest("/placement/admin/all"))
}

// StudentAll lists the drives visible to students.
func (a *API) StudentAll(ctx context.Context) ([]models.Placement, error) {
	return endpoint.List[models.Placement](ctx, a.Base, studentAllDef, nil, getRequest("/placement/student/all"))
}

// Admins lists the admins a drive can be assigned to.
func (a *API) Admins(ctx context.Context) ([]models.Admin, error) {
	return endpoint.List[models.Admin](ctx, a.Base, adminsDef, nil, getRequest("/placement/all-admins"))
}

func (a *API) write(ctx context.Context, name, id, action string, req apiclient.Request) (*models.Placement, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	req.Path = "/placement/" + apiclient.PathID(id) + action
	return endpoint.Mutate[models.Placement](ctx, a.Base, name, []querycache.Tag{domainTag, entityTag(id)}, req)
}

func (a *API) AssignAdmin(ctx context.Context, id, adminID string) (*models.Placement, error) {
	if adminID == "" {
		return nil, ErrMissingID
	}
	return a.write(ctx, EndpointAssignAdmin, id, "/assign-admin",
		apiclient.Request{Method: http.MethodPost, JSON: map[string]string{"adminId": adminID}})
}

// UpdateInput is one entry for a drive's update feed.
type UpdateInput struct {
	UpdateText string           `json:"updateText"`
	RoundType  models.RoundType `json:"roundType"`
}

func (a *API) PostUpdate(ctx context.Context, id string, in UpdateInput) (*models.Placement, error) {
	if strings.TrimSpace(in.UpdateText) == "" {
		return nil, fmt.Errorf("%w: updateText", ErrMissingField)
	}
	if in.RoundType == "" {
		in.RoundType = models.RoundCommon
	}
	if !in.RoundType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoundType, in.RoundType)
	}
	return a.write(ctx, EndpointPostUpdate, id, "/update",
		apiclient.Request{Method: http.MethodPost, JSON: in})
}

func (a *API) UpdateStatus(ctx context.Context, id string, status models.PlacementStatus) (*models.Placement, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return a.write(ctx, EndpointUpdateStatus, id, "/update-status",
		apiclient.Request{Method: http.MethodPost, JSON: map[string]string{"status": string(status)}})
}

// RegisterInput is the multipart payload of a registration. Fields holds
// any extra text fields the drive asks for.
type RegisterInput struct {
	Fields map[string]string
	Resume *apiclient.File
}

// Register signs the caller up for a drive. Registration is one-time; the
// refreshed details carry the new registrationStatus.
func (a *API) Register(ctx context.Context, id string, in RegisterInput) (*models.Placement, error) {
	payload := make(map[string]any, len(in.Fields)+1)
	for k, v := range in.Fields {
		payload[k] = v
	}
	payload["resume"] = in.Resume

	form, err := apiclient.BuildForm(payload, "resume")
	if err != nil {
		return nil, err
	}
	return a.write(ctx, EndpointRegister, id, "/register",
		apiclient.Request{Method: http.MethodPost, Form: form})
}

func (a *API) Delete(ctx context.Context, id string) error {
	_, err := a.write(ctx, EndpointDelete, id, "", apiclient.Request{Method: http.MethodDelete})
	return err
}

func (a *API) Queries() endpoint.Index {
	list := func(def querycache.QueryDef, path string) endpoint.Binder {
		return endpoint.NoArg(func() endpoint.Binding {
			return endpoint.Binding{Def: def, Fetch: endpoint.ListFetcher[models.Placement](a.Base, getRequest(path))}
		})
	}
	return endpoint.Index{
		EndpointAdminAll:   list(adminAllDef, "/placement/admin/all"),
		EndpointStudentAll: list(studentAllDef, "/placement/student/all"),
		EndpointAllAdmins: endpoint.NoArg(func() endpoint.Binding {
			return endpoint.Binding{Def: adminsDef, Fetch: endpoint.ListFetcher[models.Admin](a.Base, getRequest("/placement/all-admins"))}
		}),
		EndpointDetails: endpoint.StringArg(func(id string) endpoint.Binding {
			return endpoint.Binding{Def: detailsDef, Arg: id, Fetch: endpoint.EntityFetcher[models.Placement](a.Base, detailsRequest(id))}
		}),
	}
}
