package store

import "fmt"

const (
	KeyCatalog       = "%s:toys"
	KeyCart          = "%s:cart"
	KeyReservations  = "%s:reservations"
	KeyTotalBorrowed = "%s:totalBorrowed"
	KeyUser          = "%s:user"
)

// Keys resolves the key formats above for one namespace.
type Keys struct{ Namespace string }

func (k Keys) Catalog() string       { return k.key(KeyCatalog) }
func (k Keys) Cart() string          { return k.key(KeyCart) }
func (k Keys) Reservations() string  { return k.key(KeyReservations) }
func (k Keys) TotalBorrowed() string { return k.key(KeyTotalBorrowed) }
func (k Keys) User() string          { return k.key(KeyUser) }

func (k Keys) key(format string) string {
	ns := k.Namespace
	if ns == "" {
		ns = "bn"
	}
	return fmt.Sprintf(format, ns)
}
