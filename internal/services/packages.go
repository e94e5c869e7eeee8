package services

type CreditPackage struct {
	ID         string `json:"id"`
	Credits    int64  `json:"credits"`
	PriceMinor int64  `json:"price_minor"`
	Currency   string `json:"currency"`
}

var creditPackages = []CreditPackage{
	{ID: "starter", Credits: 50, PriceMinor: 499, Currency: "USD"},
	{ID: "value", Credits: 120, PriceMinor: 999, Currency: "USD"},
	{ID: "mega", Credits: 300, PriceMinor: 1999, Currency: "USD"},
}

func Packages() []CreditPackage {
	packages := make([]CreditPackage, len(creditPackages))
	copy(packages, creditPackages)
	return packages
}

func PackageByID(id string) (CreditPackage, bool) {
	for _, pkg := range creditPackages {
		if pkg.ID == id {
			return pkg, true
		}
	}
	return CreditPackage{}, false
}
