package catalog

import "context"

// ProductRepository reads products from the inventory database
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*Product, error)
	FindByCode(ctx context.Context, code string) (*Product, error)
	List(ctx context.Context, filter Filter) ([]Product, error)
}
