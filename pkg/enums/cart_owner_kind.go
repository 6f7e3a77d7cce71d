package enums

// CartOwnerKind says whether a cart is keyed by a user id or a guest token.
type CartOwnerKind string

const (
	CartOwnerUser  CartOwnerKind = "user"
	CartOwnerGuest CartOwnerKind = "guest"
)

var cartOwnerKinds = []CartOwnerKind{CartOwnerUser, CartOwnerGuest}

func (k CartOwnerKind) String() string { return string(k) }
func (k CartOwnerKind) IsValid() bool  { return member(k, cartOwnerKinds) }

func ParseCartOwnerKind(raw string) (CartOwnerKind, error) {
	return parse("cart owner kind", raw, cartOwnerKinds)
}
