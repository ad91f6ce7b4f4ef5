package domain

import "github.com/shopspring/decimal"

// ServiceOffer is an income line the agency sells, with a suggested price.
type ServiceOffer struct {
	Name           string          `json:"name"`
	SuggestedPrice decimal.Decimal `json:"suggestedPrice"`
}

// Catalog lists the presets offered when entering a transaction.
// Stored categories remain free text.
type Catalog struct {
	Services          []ServiceOffer `json:"services"`
	ExpenseCategories []string       `json:"expenseCategories"`
}

// DefaultCategory is used when an entry arrives without a category.
const DefaultCategory = "Autre"

// DefaultCatalog returns a fresh copy of the agency's presets.
func DefaultCatalog() Catalog {
	return Catalog{
		Services: []ServiceOffer{
			{Name: "Réels & Vidéos", SuggestedPrice: decimal.NewFromInt(40000)},
			{Name: "Graphic Design", SuggestedPrice: decimal.NewFromInt(25000)},
			{Name: "Sponsors & Suivis", SuggestedPrice: decimal.NewFromInt(60000)},
			{Name: "Audit & Stratégie", SuggestedPrice: decimal.NewFromInt(35000)},
			{Name: "Website & Store Site", SuggestedPrice: decimal.NewFromInt(150000)},
		},
		ExpenseCategories: []string{
			"Matériel",
			"Logiciels",
			"Loyer",
			"Marketing",
			"Freelancers",
			DefaultCategory,
		},
	}
}
