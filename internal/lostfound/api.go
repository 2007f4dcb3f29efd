// Package lostfound binds the lost-and-found endpoints: found-item listings,
// lost-item requests, claims with proof images and claim decisions.
package lostfound

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/endpoint"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/querycache"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	TagLostFound = "LostFound"
	TagItem      = "Item"
	TagClaim     = "Claim"
)

const (
	EndpointReportFound       = "reportFoundItem"
	EndpointReportLost        = "reportLostItem"
	EndpointCreateClaim       = "createClaimRequest"
	EndpointFoundItems        = "getFoundItems"
	EndpointLostRequests      = "getLostRequests"
	EndpointMyListings        = "getMyListings"
	EndpointMyRequests        = "getMyRequests"
	EndpointUpdateClaimStatus = "updateClaimStatus"
	EndpointClaimsForItem     = "getClaimsForItem"
)

var domainTag = querycache.DomainTag(TagLostFound)

var (
	foundDef      = querycache.QueryDef{Endpoint: EndpointFoundItems, Provides: endpoint.Provide(domainTag)}
	lostDef       = querycache.QueryDef{Endpoint: EndpointLostRequests, Provides: endpoint.Provide(domainTag)}
	myListingsDef = querycache.QueryDef{Endpoint: EndpointMyListings, Provides: endpoint.Provide(domainTag)}
	myRequestsDef = querycache.QueryDef{Endpoint: EndpointMyRequests, Provides: endpoint.Provide(domainTag)}
	claimsDef     = querycache.QueryDef{
		Endpoint: EndpointClaimsForItem,
		Provides: func(arg any) []querycache.Tag {
			return []querycache.Tag{domainTag, querycache.EntityTag(TagItem, arg.(ClaimsArg).ItemID)}
		},
	}
)

var (
	ErrMissingID     = errors.New("lostfound: id is required")
	ErrInvalidStatus = errors.New("lostfound: unknown claim status")
	ErrMissingTitle  = errors.New("lostfound: title is required")
)

// ClaimsArg is the argument of the claims read. The backend takes it as a
// POST body, so it is a read sent with a write verb.
type ClaimsArg struct {
	ItemID string `json:"itemId"`
}

// API is the lost-and-found slice for one session.
type API struct {
	endpoint.Base
}

func New(client endpoint.Doer, cache *querycache.Cache) *API {
	return &API{Base: endpoint.Base{Client: client, Cache: cache}}
}

// ItemInput is the multipart payload shared by found-item reports and
// lost-item requests.
type ItemInput struct {
	Title       string
	Name        string
	Description string
	Landmark    string
	Category    string
	Image       *apiclient.File
}

func (in ItemInput) payload() map[string]any {
	p := map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"image":       in.Image,
	}
	for k, v := range map[string]string{"name": in.Name, "landmark": in.Landmark, "category": in.Category} {
		if v != "" {
			p[k] = v
		}
	}
	return p
}

func (a *API) report(ctx context.Context, name, path string, in ItemInput) (*models.LostFoundItem, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrMissingTitle
	}
	form, err := apiclient.BuildForm(in.payload(), "image")
	if err != nil {
		return nil, err
	}
	return endpoint.Mutate[models.LostFoundItem](ctx, a.Base, name,
		[]querycache.Tag{domainTag},
		apiclient.Request{Method: http.MethodPost, Path: path, Form: form})
}

// ReportFound lists an item someone found.
func (a *API) ReportFound(ctx context.Context, in ItemInput) (*models.LostFoundItem, error) {
	return a.report(ctx, EndpointReportFound, "/items/found-item", in)
}

// ReportLost posts a request for an item someone lost.
func (a *API) ReportLost(ctx context.Context, in ItemInput) (*models.LostFoundItem, error) {
	return a.report(ctx, EndpointReportLost, "/items/request", in)
}

// ClaimInput is the multipart payload of a claim; Image is the proof.
type ClaimInput struct {
	ItemID      string
	Description string
	Image       *apiclient.File
}

// CreateClaim files a claim on a found item.
func (a *API) CreateClaim(ctx context.Context, in ClaimInput) (*models.ClaimRequest, error) {
	if in.ItemID == "" {
		return nil, ErrMissingID
	}
	form, err := apiclient.BuildForm(map[string]any{
		"itemId":      in.ItemID,
		"description": in.Description,
		"image":       in.Image,
	}, "image")
	if err != nil {
		return nil, err
	}
	return endpoint.Mutate[models.ClaimRequest](ctx, a.Base, EndpointCreateClaim,
		[]querycache.Tag{domainTag, querycache.EntityTag(TagItem, in.ItemID)},
		apiclient.Request{Method: http.MethodPost, Path: "/items/claimed-request", Form: form})
}

func getRequest(path string) apiclient.Request {
	return apiclient.Request{Method: http.MethodGet, Path: path}
}

func claimsRequest(arg ClaimsArg) apiclient.Request {
	return apiclient.Request{Method: http.MethodPost, Path: "/items/claims", JSON: arg}
}

func (a *API) FoundItems(ctx context.Context) ([]models.LostFoundItem, error) {
	return endpoint.List[models.LostFoundItem](ctx, a.Base, foundDef, nil, getRequest("/items/found-items"))
}

func (a *API) LostRequests(ctx context.Context) ([]models.LostFoundItem, error) {
	return endpoint.List[models.LostFoundItem](ctx, a.Base, lostDef, nil, getRequest("/items/requests"))
}

// MyListings lists the found items the caller posted.
func (a *API) MyListings(ctx context.Context) ([]models.LostFoundItem, error) {
	return endpoint.List[models.LostFoundItem](ctx, a.Base, myListingsDef, nil, getRequest("/items/my-listings"))
}

// MyRequests lists the lost-item requests the caller posted.
func (a *API) MyRequests(ctx context.Context) ([]models.LostFoundItem, error) {
	return endpoint.List[models.LostFoundItem](ctx, a.Base, myRequestsDef, nil, getRequest("/items/my-requests"))
}

// ClaimsForItem lists the claims filed on one item.
func (a *API) ClaimsForItem(ctx context.Context, itemID string) ([]models.ClaimRequest, error) {
	if itemID == "" {
		return nil, ErrMissingID
	}
	arg := ClaimsArg{ItemID: itemID}
	return endpoint.List[models.ClaimRequest](ctx, a.Base, claimsDef, arg, claimsRequest(arg))
}

// UpdateClaimStatus approves or rejects a claim. Whether an approval is
// allowed (the item must still be unclaimed) is the backend's call.
func (a *API) UpdateClaimStatus(ctx context.Context, claimID string, status models.ClaimStatus) (*models.ClaimRequest, error) {
	if claimID == "" {
		return nil, ErrMissingID
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return endpoint.Mutate[models.ClaimRequest](ctx, a.Base, EndpointUpdateClaimStatus,
		[]querycache.Tag{domainTag, querycache.EntityTag(TagClaim, claimID)},
		apiclient.Request{Method: http.MethodPost, Path: "/items/update-claim-status",
			JSON: map[string]string{"claimId": claimID, "status": string(status)}})
}

func (a *API) Queries() endpoint.Index {
	list := func(def querycache.QueryDef, path string) endpoint.Binder {
		return endpoint.NoArg(func() endpoint.Binding {
			return endpoint.Binding{Def: def, Fetch: endpoint.ListFetcher[models.LostFoundItem](a.Base, getRequest(path))}
		})
	}
	return endpoint.Index{
		EndpointFoundItems:   list(foundDef, "/items/found-items"),
		EndpointLostRequests: list(lostDef, "/items/requests"),
		EndpointMyListings:   list(myListingsDef, "/items/my-listings"),
		EndpointMyRequests:   list(myRequestsDef, "/items/my-requests"),
		EndpointClaimsForItem: func(raw json.RawMessage) (endpoint.Binding, error) {
			var arg ClaimsArg
			if err := json.Unmarshal(raw, &arg); err != nil || arg.ItemID == "" {
				return endpoint.Binding{}, fmt.Errorf("%w: want {\"itemId\": ...}", endpoint.ErrBadArgument)
			}
			return endpoint.Binding{Def: claimsDef, Arg: arg, Fetch: endpoint.ListFetcher[models.ClaimRequest](a.Base, claimsRequest(arg))}, nil
		},
	}
}
