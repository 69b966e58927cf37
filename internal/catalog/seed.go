package catalog

const placeholderImage = "/placeholder.svg?height=400&width=300"

// seedProducts is the built-in storefront assortment.
var seedProducts = []Product{
	{
		ID:            "1",
		Name:          "Classic Denim Jacket",
		Price:         "89.99",
		OriginalPrice: "120.0",
		Image:         placeholderImage,
		Category:      "Jackets",
		Brand:         "Urban Style",
		Rating:        "4.5",
		Reviews:       "128",
		Colors:        SingleColor("Blue"),
		Sizes:         []string{"XS", "S", "M", "L", "XL"},
		IsSale:        "true",
	},
	{
		ID:       "2",
		Name:     "Floral Summer Dress",
		Price:    "65.99",
		Image:    placeholderImage,
		Category: "Dresses",
		Brand:    "Bloom & Co",
		Rating:   "4.8",
		Reviews:  "89",
		Colors:   ColorList("Pink", "Blue", "Yellow"),
		Sizes:    []string{"XS", "S", "M", "L"},
		IsNew:    "true",
	},
	{
		ID:       "3",
		Name:     "Casual White Sneakers",
		Price:    "79.99",
		Image:    placeholderImage,
		Category: "Shoes",
		Brand:    "ComfortStep",
		Rating:   "4.3",
		Reviews:  "256",
		Colors:   ColorList("White", "Black", "Gray"),
		Sizes:    []string{"6", "7", "8", "9", "10", "11"},
	},
	{
		ID:       "4",
		Name:     "Leather Crossbody Bag",
		Price:    "120.0",
		Image:    placeholderImage,
		Category: "Accessories",
		Brand:    "Luxe Leather",
		Rating:   "4.7",
		Reviews:  "45",
		Colors:   ColorList("Brown", "Black", "Tan"),
		Sizes:    []string{"One Size"},
	},
	{
		ID:       "5",
		Name:     "Striped Cotton T-Shirt",
		Price:    "29.99",
		Image:    placeholderImage,
		Category: "Tops",
		Brand:    "Basic Essentials",
		Rating:   "4.2",
		Reviews:  "312",
		Colors:   ColorList("Navy", "Red", "Green"),
		Sizes:    []string{"XS", "S", "M", "L", "XL", "XXL"},
	},
	{
		ID:       "6",
		Name:     "High-Waisted Jeans",
		Price:    "95.0",
		Image:    placeholderImage,
		Category: "Bottoms",
		Brand:    "Denim Dreams",
		Rating:   "4.6",
		Reviews:  "178",
		Colors:   ColorList("Blue", "Black", "Light Blue"),
		Sizes:    []string{"24", "26", "28", "30", "32", "34"},
	},
	{
		ID:            "7",
		Name:          "Wool Blend Coat",
		Price:         "189.99",
		OriginalPrice: "250.0",
		Image:         placeholderImage,
		Category:      "Outerwear",
		Brand:         "Winter Warmth",
		Rating:        "4.9",
		Reviews:       "67",
		Colors:        ColorList("Camel", "Black", "Gray"),
		Sizes:         []string{"XS", "S", "M", "L", "XL"},
		IsSale:        "true",
	},
	{
		ID:       "8",
		Name:     "Athletic Running Shoes",
		Price:    "110.0",
		Image:    placeholderImage,
		Category: "Shoes",
		Brand:    "SportMax",
		Rating:   "4.4",
		Reviews:  "203",
		Colors:   ColorList("Black", "White", "Blue"),
		Sizes:    []string{"6", "7", "8", "9", "10", "11", "12"},
		IsNew:    "true",
	},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(seedProducts)
	if err != nil {
		panic("catalog: invalid seed data: " + err.Error())
	}
	return c
}
