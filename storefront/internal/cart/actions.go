package cart

import "fmt"

// Action is the closed set of cart mutations. Only the types in this file
// implement it.
type Action interface {
	isAction()
}

// AddItem adds one unit of Item. Item.Quantity is ignored.
type AddItem struct {
	Item CartItem
}

type RemoveItem struct {
	ID   string
	Size string
}

// UpdateQuantity sets the quantity of a line; a quantity below 1 removes it.
type UpdateQuantity struct {
	ID       string
	Size     string
	Quantity int
}

type ClearCart struct{}

type ToggleCart struct{}

func (AddItem) isAction()        {}
func (RemoveItem) isAction()     {}
func (UpdateQuantity) isAction() {}
func (ClearCart) isAction()      {}
func (ToggleCart) isAction()     {}

// Reduce applies a to s and returns the new state. s is not modified.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case AddItem:
		next := s.clone()
		if i := next.indexOf(a.Item.ID, a.Item.Size); i >= 0 {
			next.Items[i].Quantity++
			return next
		}
		item := a.Item
		item.Quantity = 1
		next.Items = append(next.Items, item)
		return next

	case RemoveItem:
		i := s.indexOf(a.ID, a.Size)
		if i < 0 {
			return s
		}
		next := s.clone()
		next.Items = append(next.Items[:i], next.Items[i+1:]...)
		return next

	case UpdateQuantity:
		i := s.indexOf(a.ID, a.Size)
		if i < 0 {
			return s
		}
		if a.Quantity < 1 {
			return Reduce(s, RemoveItem{ID: a.ID, Size: a.Size})
		}
		next := s.clone()
		next.Items[i].Quantity = a.Quantity
		return next

	case ClearCart:
		return InitialState()

	case ToggleCart:
		next := s.clone()
		next.IsOpen = !next.IsOpen
		return next

	default:
		panic(fmt.Sprintf("cart: unhandled action %T", a))
	}
}
