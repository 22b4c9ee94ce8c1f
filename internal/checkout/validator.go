package checkout

import (
	"fmt"

	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/go-playground/validator/v10"
)

// StructValidator: implementasi AddressValidator default di atas
// go-playground/validator, baca tag `validate` di orders.Address.
type StructValidator struct {
	v *validator.Validate
}

func NewStructValidator() *StructValidator {
	return &StructValidator{v: validator.New()}
}

func (s *StructValidator) Validate(addr orders.Address) []string {
	err := s.v.Struct(addr)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("address field %s failed %s", fe.Field(), fe.Tag()))
	}
	return out
}
