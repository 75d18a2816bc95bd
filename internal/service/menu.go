package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/mirror"
)

// MenuStore defines the DB methods the menu service needs.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]database.MenuItem, error)
}

// MenuService lists menu items and keeps a mirrored snapshot so the
// menu stays readable, and orders priceable, while Postgres is down.
type MenuService struct {
	store  MenuStore
	mirror Mirror
}

func NewMenuService(store MenuStore, m Mirror) *MenuService {
	return &MenuService{store: store, mirror: m}
}

func (s *MenuService) List(ctx context.Context, restaurantID uuid.UUID) ([]database.MenuItem, bool, error) {
	items, err := s.store.ListMenuItems(ctx, restaurantID)
	if err == nil {
		if serr := s.mirror.SaveSnapshot(ctx, restaurantID, mirror.CollectionMenuItems, items); serr != nil {
			log.Printf("ERROR: snapshot menu for %s: %v", restaurantID, serr)
		}
		return items, false, nil
	}
	if !IsConnectivityError(err) {
		return nil, false, err
	}

	log.Printf("ERROR: list menu: database unreachable, reading local mirror: %v", err)
	var mirrored []database.MenuItem
	if merr := s.mirror.LoadSnapshot(ctx, restaurantID, mirror.CollectionMenuItems, &mirrored); merr != nil {
		if errors.Is(merr, mirror.ErrNotMirrored) {
			return nil, false, ErrDatabaseDegraded
		}
		return nil, false, fmt.Errorf("load menu snapshot: %w", merr)
	}
	return mirrored, true, nil
}
