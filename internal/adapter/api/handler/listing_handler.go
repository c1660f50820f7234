package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"basera/internal/domain/entity"
	"basera/internal/domain/repository"
	"basera/internal/usecase"
	"basera/pkg/response"
	"basera/pkg/utils"
)

type ListingHandler struct {
	listingUseCase *usecase.ListingUseCase
}

func NewListingHandler(listingUseCase *usecase.ListingUseCase) *ListingHandler {
	return &ListingHandler{
		listingUseCase: listingUseCase,
	}
}

type locationRequest struct {
	Lat      float64 `json:"lat" validate:"required"`
	Lng      float64 `json:"lng" validate:"required"`
	Address  string  `json:"address" validate:"required"`
	City     string  `json:"city"`
	District string  `json:"district"`
}

type createListingRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"required,max=2000"`
	Price       float64         `json:"price" validate:"required,min=0"`
	Currency    string          `json:"currency"`
	Type        string          `json:"type" validate:"required,oneof=room apartment house flat studio"`
	Location    locationRequest `json:"location" validate:"required"`
	Images      []string        `json:"images" validate:"required,min=1,dive,url"`
	Amenities   []string        `json:"amenities"`
}

type updateListingRequest struct {
	Title       string           `json:"title" validate:"omitempty,max=200"`
	Description string           `json:"description" validate:"omitempty,max=2000"`
	Price       float64          `json:"price" validate:"omitempty,min=0"`
	Location    *locationRequest `json:"location"`
	Images      []string         `json:"images" validate:"omitempty,dive,url"`
	Amenities   []string         `json:"amenities"`
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	var req createListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ownerID := c.Get("uid").(string)

	listing, err := h.listingUseCase.Create(c.Request().Context(), ownerID, usecase.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Type:        req.Type,
		Location: entity.Location{
			Lat:      req.Location.Lat,
			Lng:      req.Location.Lng,
			Address:  req.Location.Address,
			City:     req.Location.City,
			District: req.Location.District,
		},
		Images:    req.Images,
		Amenities: req.Amenities,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, listing)
}

func (h *ListingHandler) GetListings(c echo.Context) error {
	params := utils.GetPaginationParams(c)

	filter := repository.ListingFilter{
		City:   c.QueryParam("city"),
		Type:   c.QueryParam("type"),
		Limit:  params.PageSize,
		Offset: params.Offset,
	}
	if minPrice, err := strconv.ParseFloat(c.QueryParam("min_price"), 64); err == nil {
		filter.MinPrice = minPrice
	}
	if maxPrice, err := strconv.ParseFloat(c.QueryParam("max_price"), 64); err == nil {
		filter.MaxPrice = maxPrice
	}

	listings, total, err := h.listingUseCase.List(c.Request().Context(), filter)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, listings, total, params.Page, params.PageSize)
}

func (h *ListingHandler) GetMyListings(c echo.Context) error {
	ownerID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c)

	listings, total, err := h.listingUseCase.ListByOwner(c.Request().Context(), ownerID, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, listings, total, params.Page, params.PageSize)
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	listing, err := h.listingUseCase.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) UpdateListing(c echo.Context) error {
	var req updateListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ownerID := c.Get("uid").(string)

	input := usecase.UpdateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Amenities:   req.Amenities,
	}
	if req.Location != nil {
		input.Location = &entity.Location{
			Lat:      req.Location.Lat,
			Lng:      req.Location.Lng,
			Address:  req.Location.Address,
			City:     req.Location.City,
			District: req.Location.District,
		}
	}

	listing, err := h.listingUseCase.Update(c.Request().Context(), ownerID, c.Param("id"), input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) DeleteListing(c echo.Context) error {
	ownerID := c.Get("uid").(string)

	if err := h.listingUseCase.Delete(c.Request().Context(), ownerID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}

func (h *ListingHandler) RenewListing(c echo.Context) error {
	ownerID := c.Get("uid").(string)

	listing, err := h.listingUseCase.Renew(c.Request().Context(), ownerID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}
