package cart

import (
	"context"
	"errors"

	"farmfuzion/internal/catalog"
)

var (
	ErrListingNotSellable = errors.New("listing is not available for sale")
	ErrOwnListing         = errors.New("cannot add own listing to cart")
)

type Service interface {
	AddItem(ctx context.Context, buyerID, listingID, quantity int) (*Cart, *Item, error)
	RemoveItem(ctx context.Context, buyerID, itemID int) error
	ViewCarts(ctx context.Context, buyerID int) ([]View, error)
}

type service struct {
	cartRepo    Repository
	catalogRepo catalog.Repository
}

func NewService(cartRepo Repository, catalogRepo catalog.Repository) Service {
	return &service{cartRepo: cartRepo, catalogRepo: catalogRepo}
}

// AddItem checks stock advisorily: the authoritative check is the conditional
// decrement at checkout, this one just rejects obviously hopeless adds.
func (s *service) AddItem(ctx context.Context, buyerID, listingID, quantity int) (*Cart, *Item, error) {
	listing, err := s.catalogRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}

	if listing.Status != catalog.StatusActive {
		return nil, nil, ErrListingNotSellable
	}
	if listing.FarmerID == buyerID {
		return nil, nil, ErrOwnListing
	}

	c, err := s.cartRepo.GetOrCreateCart(ctx, buyerID, listing.FarmerID)
	if err != nil {
		return nil, nil, err
	}

	inCart, err := s.cartRepo.GetItemQuantity(ctx, c.ID, listingID)
	if err != nil {
		return nil, nil, err
	}
	if inCart+quantity > listing.Quantity {
		return nil, nil, catalog.ErrInsufficientStock
	}

	item, err := s.cartRepo.UpsertItem(ctx, c.ID, listingID, quantity, listing.UnitPriceCents)
	if err != nil {
		return nil, nil, err
	}

	return c, item, nil
}

func (s *service) RemoveItem(ctx context.Context, buyerID, itemID int) error {
	return s.cartRepo.DeleteItemOwned(ctx, itemID, buyerID)
}

func (s *service) ViewCarts(ctx context.Context, buyerID int) ([]View, error) {
	carts, err := s.cartRepo.GetActiveCarts(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	views := []View{}
	for _, c := range carts {
		items, err := s.cartRepo.GetItems(ctx, c.ID)
		if err != nil {
			return nil, err
		}

		var total int64
		for _, item := range items {
			total += item.LineTotalCents
		}

		views = append(views, View{
			CartID:     c.ID,
			SellerID:   c.SellerID,
			Items:      items,
			TotalCents: total,
		})
	}

	return views, nil
}
