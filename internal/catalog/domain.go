package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Category distinguishes gas content from the cylinder container that holds it.
type Category string

const (
	// CategoryGas is gas content stock.
	CategoryGas Category = "gas"
	// CategoryCylinder is physical cylinder stock.
	CategoryCylinder Category = "cylinder"
)

// CylinderStatus is the intrinsic state of a cylinder SKU.
type CylinderStatus string

const (
	// CylinderEmpty marks an empty-cylinder SKU.
	CylinderEmpty CylinderStatus = "empty"
	// CylinderFull marks a full-cylinder SKU.
	CylinderFull CylinderStatus = "full"
)

// Product is a sellable/trackable SKU. Identity is immutable; pricing mutates.
type Product struct {
	ID             uuid.UUID
	Name           string
	Category       Category
	CylinderStatus CylinderStatus
	CylinderSize   string
	CostPrice      float64
	LeastPrice     float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsGas reports whether the product tracks gas content.
func (p Product) IsGas() bool {
	return p.Category == CategoryGas
}

// IsFullCylinder reports whether the product is a full-cylinder SKU.
func (p Product) IsFullCylinder() bool {
	return p.Category == CategoryCylinder && p.CylinderStatus == CylinderFull
}
