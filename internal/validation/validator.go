package validation

import (
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// register struct-level validation for CreateOrderRequest to reject
	// repeated product ids in a single order.
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})

	return v
}

func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	seen := map[int64]bool{}
	for _, id := range req.ProductIDs {
		if seen[id] {
			sl.ReportError(req.ProductIDs, "product_ids", "ProductIDs", "unique_product_ids", fmt.Sprintf("product %d listed more than once", id))
			return
		}
		seen[id] = true
	}
}
