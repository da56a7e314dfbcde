package storeclient

import "time"

// User описывает публичный профиль пользователя.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthResult описывает ответ на регистрацию и вход.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Category описывает категорию каталога.
type Category struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Image        string    `json:"image"`
	ProductCount int       `json:"productCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Product описывает товар каталога.
type Product struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Category    *Category `json:"category"`
	Images      []string  `json:"images"`
	Sizes       []string  `json:"sizes"`
	Colors      []string  `json:"colors"`
	Features    []string  `json:"features"`
	Stock       int       `json:"stock"`
	Rating      float64   `json:"rating"`
	NumReviews  int       `json:"numReviews"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewProduct описывает данные для создания товара.
type NewProduct struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Images      []string `json:"images,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	Features    []string `json:"features,omitempty"`
	Stock       int      `json:"stock"`
}

// Address описывает адрес доставки.
type Address struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderLine описывает строку корзины.
type OrderLine struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

// PlaceOrderRequest описывает данные для оформления заказа.
type PlaceOrderRequest struct {
	Items           []OrderLine `json:"items"`
	ShippingAddress Address     `json:"shippingAddress"`
	PaymentMethod   string      `json:"paymentMethod"`
}

// OrderItem описывает позицию заказа.
type OrderItem struct {
	Product  *Product `json:"product"`
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
}

// Order описывает оформленный заказ.
type Order struct {
	ID              string      `json:"_id"`
	User            string      `json:"user"`
	Items           []OrderItem `json:"items"`
	ShippingAddress Address     `json:"shippingAddress"`
	PaymentMethod   string      `json:"paymentMethod"`
	PaymentStatus   string      `json:"paymentStatus"`
	TotalAmount     float64     `json:"totalAmount"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// Health описывает состояние сервиса.
type Health struct {
	Status   string `json:"status"`
	Env      string `json:"env"`
	Database string `json:"database"`
}
