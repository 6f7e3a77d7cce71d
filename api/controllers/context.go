package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopflow-backend/internal/cart"
	"github.com/angelmondragon/shopflow-backend/internal/identity"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
)

func ownerFromContext(ctx context.Context) (cart.Owner, error) {
	id, ok := identity.FromContext(ctx)
	if !ok || id.Key == "" {
		return cart.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity missing")
	}
	if id.Kind == enums.CartOwnerUser {
		return cart.UserOwner(id.UserID), nil
	}
	return cart.GuestOwner(id.Key), nil
}

func userFromContext(ctx context.Context) (uuid.UUID, error) {
	id, ok := identity.FromContext(ctx)
	if !ok || !id.IsUser() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return id.UserID, nil
}
