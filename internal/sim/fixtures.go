package sim

import "github.com/medfield/order-catalog/internal/model"

// DefaultCatalog returns the demo product seed.
func DefaultCatalog() []model.Product {
	return []model.Product{
		{SKU: "MED-1001", Name: "Aspirin 500mg (100 tabs)", Category: "analgesics", UnitPrice: 4.20, SupplierName: "Bayer Pharma"},
		{SKU: "MED-1002", Name: "Ibuprofen 400mg (50 tabs)", Category: "analgesics", UnitPrice: 3.10, SupplierName: "Hexal"},
		{SKU: "MED-1003", Name: "Paracetamol 500mg (20 tabs)", Category: "analgesics", UnitPrice: 1.95, SupplierName: "Ratiopharm"},
		{SKU: "MED-2001", Name: "Amoxicillin 875mg (14 tabs)", Category: "antibiotics", UnitPrice: 12.80, SupplierName: "Sandoz"},
		{SKU: "MED-2002", Name: "Azithromycin 250mg (6 tabs)", Category: "antibiotics", UnitPrice: 18.50, SupplierName: "Pfizer"},
		{SKU: "MED-3001", Name: "Insulin Glargine 100U/ml", Category: "diabetes", UnitPrice: 42.00, RequiresColdChain: true, SupplierName: "Sanofi"},
		{SKU: "MED-3002", Name: "Metformin 850mg (120 tabs)", Category: "diabetes", UnitPrice: 8.90, SupplierName: "Teva"},
		{SKU: "MED-4001", Name: "Sterile Gauze Pads 10x10 (25)", Category: "wound-care", UnitPrice: 6.40, SupplierName: "Hartmann"},
		{SKU: "MED-4002", Name: "Adhesive Bandage Roll 5m", Category: "wound-care", UnitPrice: 2.75, SupplierName: "3M"},
		{SKU: "MED-5001", Name: "Nitrile Exam Gloves M (200)", Category: "consumables", UnitPrice: 9.99, SupplierName: "Ansell"},
		{SKU: "MED-5002", Name: "Surgical Masks Type IIR (50)", Category: "consumables", UnitPrice: 5.60, SupplierName: "Medline"},
		{SKU: "MED-6001", Name: "Influenza Vaccine 2026", Category: "vaccines", UnitPrice: 15.30, RequiresColdChain: true, SupplierName: "GSK"},
	}
}

// DefaultStock returns demo stock levels for the default catalog.
// MED-5002 is intentionally absent to exercise partial responses.
func DefaultStock() []model.StockLevel {
	return []model.StockLevel{
		level("MED-1001", 240, 12, 60),
		level("MED-1002", 180, 0, 0),
		level("MED-1003", 95, 5, 20),
		level("MED-2001", 40, 8, 0),
		level("MED-2002", 12, 2, 24),
		level("MED-3001", 18, 6, 12),
		level("MED-3002", 300, 0, 0),
		level("MED-4001", 75, 0, 50),
		level("MED-4002", 0, 0, 120),
		level("MED-5001", 64, 10, 0),
		level("MED-6001", 2, 1, 40),
	}
}

func level(sku string, avail, reserved, transit int64) model.StockLevel {
	return model.StockLevel{
		ProductSKU:     sku,
		TotalAvailable: avail,
		TotalReserved:  reserved,
		TotalInTransit: transit,
		Centers: []model.CenterStock{
			{DistributionCenter: "DC-NORTH", Available: avail / 2, Reserved: reserved, InTransit: transit},
			{DistributionCenter: "DC-SOUTH", Available: avail - avail/2},
		},
	}
}
