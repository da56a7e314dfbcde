package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type categoryResponse struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Image        string    `json:"image"`
	ProductCount int       `json:"productCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

type productResponse struct {
	ID          string            `json:"_id"`
	Name        string            `json:"name"`
	Price       float64           `json:"price"`
	Description string            `json:"description"`
	Category    *categoryResponse `json:"category"`
	Images      []string          `json:"images"`
	Sizes       []string          `json:"sizes"`
	Colors      []string          `json:"colors"`
	Features    []string          `json:"features"`
	Stock       int               `json:"stock"`
	Rating      float64           `json:"rating"`
	NumReviews  int               `json:"numReviews"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type addressJSON struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type orderItemResponse struct {
	Product  *productResponse `json:"product"`
	Quantity int              `json:"quantity"`
	Price    float64          `json:"price"`
}

type orderResponse struct {
	ID              string              `json:"_id"`
	User            string              `json:"user"`
	Items           []orderItemResponse `json:"items"`
	ShippingAddress addressJSON         `json:"shippingAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	PaymentStatus   string              `json:"paymentStatus"`
	TotalAmount     float64             `json:"totalAmount"`
	CreatedAt       time.Time           `json:"createdAt"`
}

type productRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Images      []string        `json:"images"`
	Sizes       []string        `json:"sizes"`
	Colors      []string        `json:"colors"`
	Features    []string        `json:"features"`
	Stock       int             `json:"stock"`
	Rating      float64         `json:"rating"`
	NumReviews  int             `json:"numReviews"`
}

type orderLineRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type orderRequest struct {
	Items           []orderLineRequest `json:"items"`
	ShippingAddress addressJSON        `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

func toCategoryResponse(c *model.Category) *categoryResponse {
	if c == nil {
		return nil
	}
	return &categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		Description:  c.Description,
		Image:        c.Image,
		ProductCount: c.ProductCount,
		CreatedAt:    c.CreatedAt,
	}
}

func toProductResponse(p *model.Product) *productResponse {
	if p == nil {
		return nil
	}
	return &productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price.InexactFloat64(),
		Description: p.Description,
		Category:    toCategoryResponse(p.Category),
		Images:      nonNil(p.Images),
		Sizes:       nonNil(p.Sizes),
		Colors:      nonNil(p.Colors),
		Features:    nonNil(p.Features),
		Stock:       p.Stock,
		Rating:      p.Rating,
		NumReviews:  p.NumReviews,
		CreatedAt:   p.CreatedAt,
	}
}

func toOrderResponse(o *model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			Product:  toProductResponse(it.Product),
			Quantity: it.Quantity,
			Price:    it.Price.InexactFloat64(),
		})
	}

	a := o.ShippingAddress
	return orderResponse{
		ID:    o.ID,
		User:  o.UserID,
		Items: items,
		ShippingAddress: addressJSON{
			FullName:   a.FullName,
			Address:    a.Address,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		},
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		TotalAmount:   o.TotalAmount.InexactFloat64(),
		CreatedAt:     o.CreatedAt,
	}
}

func (req productRequest) toModel() *model.Product {
	return &model.Product{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		CategoryID:  req.Category,
		Images:      req.Images,
		Sizes:       req.Sizes,
		Colors:      req.Colors,
		Features:    req.Features,
		Stock:       req.Stock,
		Rating:      req.Rating,
		NumReviews:  req.NumReviews,
	}
}

func (req orderRequest) toModel() model.OrderRequest {
	lines := make([]model.OrderLine, 0, len(req.Items))
	for _, l := range req.Items {
		lines = append(lines, model.OrderLine{ProductID: l.Product, Quantity: l.Quantity})
	}

	a := req.ShippingAddress
	return model.OrderRequest{
		Items: lines,
		ShippingAddress: model.ShippingAddress{
			FullName:   a.FullName,
			Address:    a.Address,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		},
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
