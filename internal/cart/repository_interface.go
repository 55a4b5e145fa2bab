package cart

import "context"

type Repository interface {
	GetOrCreateCart(ctx context.Context, buyerID, sellerID int) (*Cart, error)
	GetActiveCarts(ctx context.Context, buyerID int) ([]Cart, error)
	GetItems(ctx context.Context, cartID int) ([]ItemDetail, error)
	GetItemQuantity(ctx context.Context, cartID, listingID int) (int, error)
	UpsertItem(ctx context.Context, cartID, listingID, quantity int, unitPriceCents int64) (*Item, error)
	DeleteItemOwned(ctx context.Context, itemID, buyerID int) error
}
