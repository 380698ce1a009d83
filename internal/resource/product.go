package resource

import "net/url"

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}

var ProductSchema = Schema[Product]{
	Table:   "products",
	Columns: []string{"name", "description", "price", "image"},
	Values: func(p Product) []any {
		return []any{p.Name, p.Description, p.Price, p.Image}
	},
	Fields: func(p *Product) []any {
		return []any{&p.ID, &p.Name, &p.Description, &p.Price, &p.Image}
	},
	ID:    func(p Product) int64 { return p.ID },
	SetID: func(p *Product, id int64) { p.ID = id },
}

func ProductFromForm(form url.Values) (Product, error) {
	price, err := parseAmount(form.Get("price"), "price")
	if err != nil {
		return Product{}, err
	}
	return Product{
		Name:        form.Get("name"),
		Description: form.Get("description"),
		Price:       price,
		Image:       form.Get("image"),
	}, nil
}
