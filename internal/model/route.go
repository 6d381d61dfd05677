package model

import (
	"time"

	"go-gin-bus-booking/internal/seating"

	"github.com/google/uuid"
)

// RouteStatus is the publication state of a route.
type RouteStatus string

const (
	RouteStatusDraft     RouteStatus = "draft"
	RouteStatusActive    RouteStatus = "active"
	RouteStatusCancelled RouteStatus = "cancelled"
)

const (
	MinHomepagePosition = 1
	MaxHomepagePosition = 6
)

func (s RouteStatus) IsValid() bool {
	switch s {
	case RouteStatusDraft, RouteStatusActive, RouteStatusCancelled:
		return true
	}
	return false
}

func (s RouteStatus) CanTransitionTo(target RouteStatus) bool {
	switch s {
	case RouteStatusDraft:
		return target == RouteStatusActive || target == RouteStatusCancelled
	case RouteStatusActive:
		return target == RouteStatusDraft || target == RouteStatusCancelled
	}
	return false
}

// Route is one scheduled departure.
type Route struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	Origin           string      `json:"origin" db:"origin"`
	Destination      string      `json:"destination" db:"destination"`
	DepartureAt      time.Time   `json:"departure_at" db:"departure_at"`
	TotalCapacity    int         `json:"total_capacity" db:"total_capacity"`
	OfflineReserve   int         `json:"offline_reserve" db:"offline_reserve"`
	Price            int64       `json:"price" db:"price"`
	Currency         string      `json:"currency" db:"currency"`
	Status           RouteStatus `json:"status" db:"status"`
	CoverImageURL    *string     `json:"cover_image_url,omitempty" db:"cover_image_url"`
	Description      *string     `json:"description,omitempty" db:"description"`
	HomepagePosition *int        `json:"homepage_position,omitempty" db:"homepage_position"`
	Category         *string     `json:"category,omitempty" db:"category"`
	Subcategory      *string     `json:"subcategory,omitempty" db:"subcategory"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

func (r *Route) Boundary() seating.Boundary {
	return seating.Boundary{Total: r.TotalCapacity, OfflineReserve: r.OfflineReserve}
}

func (r *Route) OnlineCapacity() int {
	return r.TotalCapacity - r.OfflineReserve
}

// IsBookable reports whether customers can buy seats on the route at the given time.
func (r *Route) IsBookable(now time.Time) bool {
	return r.Status == RouteStatusActive && r.DepartureAt.After(now)
}

// RouteFilter narrows route listings. Zero values are ignored.
type RouteFilter struct {
	Status         RouteStatus
	Category       string
	DepartingAfter *time.Time
}

// RoutePatch carries the columns an admin edit may change; nil means unchanged.
type RoutePatch struct {
	Origin         *string
	Destination    *string
	DepartureAt    *time.Time
	TotalCapacity  *int
	OfflineReserve *int
	Price          *int64
	Currency       *string
	Description    *string
	Category       *string
	Subcategory    *string
	CoverImageURL  *string
}

func (p RoutePatch) IsEmpty() bool {
	return p == RoutePatch{}
}

// CreateRouteRequest 建立路線請求
type CreateRouteRequest struct {
	Origin           string    `json:"origin" binding:"required"`
	Destination      string    `json:"destination" binding:"required"`
	DepartureAt      time.Time `json:"departure_at" binding:"required"`
	TotalCapacity    int       `json:"total_capacity" binding:"required,min=1"`
	OfflineReserve   int       `json:"offline_reserve" binding:"min=0"`
	Price            int64     `json:"price" binding:"min=0"`
	Currency         string    `json:"currency" binding:"required,len=3"`
	Status           string    `json:"status"`
	Description      *string   `json:"description"`
	HomepagePosition *int      `json:"homepage_position"`
	Category         *string   `json:"category"`
	Subcategory      *string   `json:"subcategory"`
}

// UpdateRouteRequest 更新路線請求
type UpdateRouteRequest struct {
	Origin         *string    `json:"origin"`
	Destination    *string    `json:"destination"`
	DepartureAt    *time.Time `json:"departure_at"`
	TotalCapacity  *int       `json:"total_capacity"`
	OfflineReserve *int       `json:"offline_reserve"`
	Price          *int64     `json:"price"`
	Currency       *string    `json:"currency"`
	Description    *string    `json:"description"`
	Category       *string    `json:"category"`
	Subcategory    *string    `json:"subcategory"`
}

func (r UpdateRouteRequest) ToPatch() RoutePatch {
	return RoutePatch{
		Origin:         r.Origin,
		Destination:    r.Destination,
		DepartureAt:    r.DepartureAt,
		TotalCapacity:  r.TotalCapacity,
		OfflineReserve: r.OfflineReserve,
		Price:          r.Price,
		Currency:       r.Currency,
		Description:    r.Description,
		Category:       r.Category,
		Subcategory:    r.Subcategory,
	}
}

type UpdateRouteStatusRequest struct {
	Status RouteStatus `json:"status" binding:"required"`
}

// HomepagePositionRequest sets or clears (null) a homepage slot.
type HomepagePositionRequest struct {
	Position *int `json:"position"`
}

// RebalanceReport lists the seats whose pool tag changed during a reserve edit.
type RebalanceReport struct {
	OldReserve int   `json:"old_reserve"`
	NewReserve int   `json:"new_reserve"`
	ToOffline  []int `json:"to_offline"`
	ToOnline   []int `json:"to_online"`
}

// RouteUpdateResult is returned by an admin edit.
type RouteUpdateResult struct {
	Route     *Route           `json:"route"`
	Rebalance *RebalanceReport `json:"rebalance,omitempty"`
}
